package service

import (
	"errors"
	"testing"

	"predictarb/internal/models"
)

// TestableNotificationService - версия сервиса для тестирования
type TestableNotificationService struct {
	notificationRepo NotificationRepositoryInterface
	settingsRepo     SettingsRepositoryInterface
	wsHub            NotificationBroadcaster
}

func newTestableNotificationService(
	notifRepo NotificationRepositoryInterface,
	settingsRepo SettingsRepositoryInterface,
) *TestableNotificationService {
	return &TestableNotificationService{
		notificationRepo: notifRepo,
		settingsRepo:     settingsRepo,
	}
}

func (s *TestableNotificationService) SetWebSocketHub(hub NotificationBroadcaster) {
	s.wsHub = hub
}

func (s *TestableNotificationService) isEnabled(notifType string) bool {
	prefs, err := s.settingsRepo.GetNotificationPrefs()
	if err != nil || prefs == nil {
		return true
	}

	switch notifType {
	case models.NotificationTypeOpportunityFound:
		return prefs.OpportunityFound
	case models.NotificationTypeTradeFilled:
		return prefs.TradeFilled
	case models.NotificationTypeTradeFailed:
		return prefs.TradeFailed
	case models.NotificationTypeRebalanceExecuted:
		return prefs.RebalanceExecuted
	case models.NotificationTypeVenueDisconnected:
		return prefs.VenueDisconnected
	case models.NotificationTypeAPIError:
		return prefs.APIError
	case models.NotificationTypePause:
		return prefs.Pause
	default:
		return true
	}
}

func (s *TestableNotificationService) CreateNotification(notifType, severity string, marketID *string, message string, meta map[string]interface{}) (*models.Notification, error) {
	if !s.isEnabled(notifType) {
		return nil, nil
	}

	notif := &models.Notification{
		Type:     notifType,
		Severity: severity,
		MarketID: marketID,
		Message:  message,
		Meta:     meta,
	}

	if err := s.notificationRepo.Create(notif); err != nil {
		return nil, err
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastNotification(notif)
	}

	return notif, nil
}

func (s *TestableNotificationService) GetNotifications(limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	notifs, err := s.notificationRepo.GetRecent(limit)
	if err != nil {
		return nil, err
	}
	if notifs == nil {
		notifs = []*models.Notification{}
	}
	return notifs, nil
}

func (s *TestableNotificationService) GetNotificationsByMarket(marketID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.notificationRepo.GetByMarketID(marketID, limit)
}

func (s *TestableNotificationService) GetNotificationsBySeverity(severity string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.notificationRepo.GetBySeverity(severity, limit)
}

func (s *TestableNotificationService) ClearNotifications() error {
	return s.notificationRepo.DeleteAll()
}

func (s *TestableNotificationService) PruneNotifications(keep int) (int64, error) {
	return s.notificationRepo.KeepRecent(keep)
}

// ============ ТЕСТЫ ============

func TestNotificationService_CreateNotification(t *testing.T) {
	marketID := "market-1"

	tests := []struct {
		name          string
		notifType     string
		severity      string
		marketID      *string
		message       string
		setupSettings func(*MockSettingsRepository)
		setupNotif    func(*MockNotificationRepository)
		wantErr       bool
		wantNil       bool
		wantBroadcast bool
	}{
		{
			name:          "успешное создание уведомления opportunity_found",
			notifType:     models.NotificationTypeOpportunityFound,
			severity:      models.SeverityInfo,
			marketID:      &marketID,
			message:       "Найдена возможность",
			wantBroadcast: true,
		},
		{
			name:      "уведомление отключено в настройках",
			notifType: models.NotificationTypeOpportunityFound,
			severity:  models.SeverityInfo,
			message:   "Найдена возможность",
			setupSettings: func(m *MockSettingsRepository) {
				m.settings.NotificationPrefs.OpportunityFound = false
			},
			wantNil: true,
		},
		{
			name:          "уведомление trade_failed включено",
			notifType:     models.NotificationTypeTradeFailed,
			severity:      models.SeverityError,
			message:       "Сделка не исполнена",
			wantBroadcast: true,
		},
		{
			name:      "ошибка создания",
			notifType: models.NotificationTypeOpportunityFound,
			message:   "тест",
			setupNotif: func(m *MockNotificationRepository) {
				m.createErr = errors.New("create error")
			},
			wantErr: true,
		},
		{
			name:          "неизвестный тип - все равно создаем",
			notifType:     "unknown",
			message:       "тест",
			wantBroadcast: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotifRepo := NewMockNotificationRepository()
			mockSettingsRepo := NewMockSettingsRepository()
			mockWsHub := NewMockWebSocketBroadcaster()

			if tt.setupSettings != nil {
				tt.setupSettings(mockSettingsRepo)
			}
			if tt.setupNotif != nil {
				tt.setupNotif(mockNotifRepo)
			}

			svc := newTestableNotificationService(mockNotifRepo, mockSettingsRepo)
			svc.SetWebSocketHub(mockWsHub)

			notif, err := svc.CreateNotification(tt.notifType, tt.severity, tt.marketID, tt.message, nil)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if tt.wantNil {
				if notif != nil {
					t.Error("expected nil notification (disabled)")
				}
				if len(mockNotifRepo.notifications) > 0 {
					t.Error("expected notification not to be persisted")
				}
				return
			}

			if tt.wantBroadcast {
				if len(mockWsHub.notifications) == 0 {
					t.Error("expected broadcast, got none")
				}
			}
		})
	}
}

func TestNotificationService_GetNotifications(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		setup     func(*MockNotificationRepository)
		wantCount int
		wantErr   bool
	}{
		{
			name:  "получение всех уведомлений",
			limit: 100,
			setup: func(m *MockNotificationRepository) {
				m.notifications = []*models.Notification{
					{ID: 1, Type: models.NotificationTypeOpportunityFound},
					{ID: 2, Type: models.NotificationTypeTradeFilled},
					{ID: 3, Type: models.NotificationTypeTradeFailed},
				}
			},
			wantCount: 3,
		},
		{
			name:  "дефолтный лимит при 0",
			limit: 0,
			setup: func(m *MockNotificationRepository) {
				m.notifications = []*models.Notification{
					{ID: 1, Type: models.NotificationTypeOpportunityFound},
				}
			},
			wantCount: 1,
		},
		{
			name:  "ошибка базы данных",
			limit: 100,
			setup: func(m *MockNotificationRepository) {
				m.getErr = errors.New("db error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotifRepo := NewMockNotificationRepository()
			mockSettingsRepo := NewMockSettingsRepository()

			if tt.setup != nil {
				tt.setup(mockNotifRepo)
			}

			svc := newTestableNotificationService(mockNotifRepo, mockSettingsRepo)
			notifications, err := svc.GetNotifications(tt.limit)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(notifications) != tt.wantCount {
				t.Errorf("expected %d notifications, got %d", tt.wantCount, len(notifications))
			}
		})
	}
}

func TestNotificationService_GetNotificationsByMarket(t *testing.T) {
	marketA := "market-a"
	marketB := "market-b"

	mockNotifRepo := NewMockNotificationRepository()
	mockSettingsRepo := NewMockSettingsRepository()
	mockNotifRepo.notifications = []*models.Notification{
		{ID: 1, MarketID: &marketA},
		{ID: 2, MarketID: &marketB},
		{ID: 3, MarketID: &marketA},
	}

	svc := newTestableNotificationService(mockNotifRepo, mockSettingsRepo)
	notifs, err := svc.GetNotificationsByMarket("market-a", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifs) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(notifs))
	}
}

func TestNotificationService_GetNotificationsBySeverity(t *testing.T) {
	mockNotifRepo := NewMockNotificationRepository()
	mockSettingsRepo := NewMockSettingsRepository()
	mockNotifRepo.notifications = []*models.Notification{
		{ID: 1, Severity: models.SeverityError},
		{ID: 2, Severity: models.SeverityInfo},
		{ID: 3, Severity: models.SeverityError},
	}

	svc := newTestableNotificationService(mockNotifRepo, mockSettingsRepo)
	notifs, err := svc.GetNotificationsBySeverity(models.SeverityError, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifs) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(notifs))
	}
}

func TestNotificationService_ClearNotifications(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*MockNotificationRepository)
		wantErr bool
	}{
		{
			name: "успешная очистка",
			setup: func(m *MockNotificationRepository) {
				m.notifications = []*models.Notification{
					{ID: 1, Type: models.NotificationTypeOpportunityFound},
					{ID: 2, Type: models.NotificationTypeTradeFilled},
				}
			},
		},
		{
			name: "ошибка базы данных",
			setup: func(m *MockNotificationRepository) {
				m.deleteErr = errors.New("db error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotifRepo := NewMockNotificationRepository()
			mockSettingsRepo := NewMockSettingsRepository()

			if tt.setup != nil {
				tt.setup(mockNotifRepo)
			}

			svc := newTestableNotificationService(mockNotifRepo, mockSettingsRepo)
			err := svc.ClearNotifications()

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNotificationService_PruneNotifications(t *testing.T) {
	tests := []struct {
		name  string
		keep  int
		setup func(*MockNotificationRepository)
		want  int64
	}{
		{
			name: "удаление старых уведомлений",
			keep: 2,
			setup: func(m *MockNotificationRepository) {
				m.notifications = []*models.Notification{
					{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4},
				}
			},
			want: 2,
		},
		{
			name: "ничего не удалено",
			keep: 10,
			setup: func(m *MockNotificationRepository) {
				m.notifications = []*models.Notification{{ID: 1}}
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotifRepo := NewMockNotificationRepository()
			mockSettingsRepo := NewMockSettingsRepository()

			if tt.setup != nil {
				tt.setup(mockNotifRepo)
			}

			svc := newTestableNotificationService(mockNotifRepo, mockSettingsRepo)
			deleted, err := svc.PruneNotifications(tt.keep)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if deleted != tt.want {
				t.Errorf("expected %d deleted, got %d", tt.want, deleted)
			}
		})
	}
}

func TestNotificationService_NotificationPrefsFiltering(t *testing.T) {
	tests := []struct {
		name       string
		notifType  string
		setupPrefs func(*MockSettingsRepository)
		wantCreate bool
	}{
		{
			name:      "opportunity_found включен",
			notifType: models.NotificationTypeOpportunityFound,
			setupPrefs: func(m *MockSettingsRepository) {
				m.settings.NotificationPrefs.OpportunityFound = true
			},
			wantCreate: true,
		},
		{
			name:      "opportunity_found отключен",
			notifType: models.NotificationTypeOpportunityFound,
			setupPrefs: func(m *MockSettingsRepository) {
				m.settings.NotificationPrefs.OpportunityFound = false
			},
			wantCreate: false,
		},
		{
			name:      "venue_disconnected включен",
			notifType: models.NotificationTypeVenueDisconnected,
			setupPrefs: func(m *MockSettingsRepository) {
				m.settings.NotificationPrefs.VenueDisconnected = true
			},
			wantCreate: true,
		},
		{
			name:      "venue_disconnected отключен",
			notifType: models.NotificationTypeVenueDisconnected,
			setupPrefs: func(m *MockSettingsRepository) {
				m.settings.NotificationPrefs.VenueDisconnected = false
			},
			wantCreate: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotifRepo := NewMockNotificationRepository()
			mockSettingsRepo := NewMockSettingsRepository()

			if tt.setupPrefs != nil {
				tt.setupPrefs(mockSettingsRepo)
			}

			svc := newTestableNotificationService(mockNotifRepo, mockSettingsRepo)

			_, err := svc.CreateNotification(tt.notifType, models.SeverityInfo, nil, "тест", nil)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			created := len(mockNotifRepo.notifications) > 0
			if created != tt.wantCreate {
				t.Errorf("expected created=%v, got %v", tt.wantCreate, created)
			}
		})
	}
}
