package service

import (
	"predictarb/internal/models"
	"predictarb/internal/repository"
)

// NotificationBroadcaster - интерфейс для отправки уведомлений через WebSocket
type NotificationBroadcaster interface {
	BroadcastNotification(notif *models.Notification)
}

// NotificationService - бизнес-логика для уведомлений.
//
// Создает уведомления с учетом предпочтений оператора (settings.notification_prefs),
// сохраняет их в журнал и рассылает подписчикам через WebSocket hub.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	settingsRepo     *repository.SettingsRepository
	wsHub            NotificationBroadcaster
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(notificationRepo *repository.NotificationRepository, settingsRepo *repository.SettingsRepository) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		settingsRepo:     settingsRepo,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений.
func (s *NotificationService) SetWebSocketHub(hub NotificationBroadcaster) {
	s.wsHub = hub
}

func (s *NotificationService) isEnabled(notifType string) bool {
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

// CreateNotification создает уведомление, если соответствующий тип включен
// в настройках оператора, сохраняет его в БД и рассылает по WebSocket.
//
// Возвращает (nil, nil), если уведомления этого типа отключены.
func (s *NotificationService) CreateNotification(notifType, severity string, marketID *string, message string, meta map[string]interface{}) (*models.Notification, error) {
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

// GetNotifications возвращает последние N уведомлений.
func (s *NotificationService) GetNotifications(limit int) ([]*models.Notification, error) {
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

// GetNotificationsByMarket возвращает уведомления, относящиеся к рынку.
func (s *NotificationService) GetNotificationsByMarket(marketID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.notificationRepo.GetByMarketID(marketID, limit)
}

// GetNotificationsBySeverity возвращает уведомления заданной важности.
func (s *NotificationService) GetNotificationsBySeverity(severity string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.notificationRepo.GetBySeverity(severity, limit)
}

// ClearNotifications очищает журнал уведомлений.
func (s *NotificationService) ClearNotifications() error {
	return s.notificationRepo.DeleteAll()
}

// PruneNotifications оставляет только N последних уведомлений.
//
// Сервис не вызывает его сам: журнал очищается только по явному вызову.
func (s *NotificationService) PruneNotifications(keep int) (int64, error) {
	return s.notificationRepo.KeepRecent(keep)
}
