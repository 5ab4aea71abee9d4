package service

import (
	"errors"
	"testing"

	"predictarb/internal/models"
)

// TestableSettingsService - версия сервиса для тестирования
type TestableSettingsService struct {
	settingsRepo SettingsRepositoryInterface
}

func newTestableSettingsService(repo SettingsRepositoryInterface) *TestableSettingsService {
	return &TestableSettingsService{settingsRepo: repo}
}

func (s *TestableSettingsService) GetSettings() (*models.OperatorSettings, error) {
	return s.settingsRepo.Get()
}

func (s *TestableSettingsService) UpdateSettings(req *UpdateSettingsRequest) (*models.OperatorSettings, error) {
	settings, err := s.settingsRepo.Get()
	if err != nil {
		return nil, err
	}

	if req.MinProfitAbsolute != nil {
		if err := validateNonNegativeDecimal(*req.MinProfitAbsolute, ErrInvalidMinProfitAbsolute); err != nil {
			return nil, err
		}
		settings.MinProfitAbsolute = *req.MinProfitAbsolute
	}

	if req.LiquidityThreshold != nil {
		if err := validateNonNegativeDecimal(*req.LiquidityThreshold, ErrInvalidLiquidityThreshold); err != nil {
			return nil, err
		}
		settings.LiquidityThreshold = *req.LiquidityThreshold
	}

	if req.MaxTotalExposure != nil {
		if err := validateNonNegativeDecimal(*req.MaxTotalExposure, ErrInvalidMaxTotalExposure); err != nil {
			return nil, err
		}
		settings.MaxTotalExposure = *req.MaxTotalExposure
	}

	if req.EnableSequentialPlacement != nil {
		settings.EnableSequentialPlacement = *req.EnableSequentialPlacement
	}

	if req.DryRun != nil {
		settings.DryRun = *req.DryRun
	}

	if req.NotificationPrefs != nil {
		settings.NotificationPrefs = *req.NotificationPrefs
	}

	if err := s.settingsRepo.Update(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func (s *TestableSettingsService) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	return s.settingsRepo.UpdateNotificationPrefs(prefs)
}

func (s *TestableSettingsService) UpdateDryRun(dryRun bool) error {
	return s.settingsRepo.UpdateDryRun(dryRun)
}

func (s *TestableSettingsService) UpdateMaxTotalExposure(maxExposure string) error {
	if err := validateNonNegativeDecimal(maxExposure, ErrInvalidMaxTotalExposure); err != nil {
		return err
	}
	return s.settingsRepo.UpdateMaxTotalExposure(maxExposure)
}

func (s *TestableSettingsService) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	return s.settingsRepo.GetNotificationPrefs()
}

func (s *TestableSettingsService) ResetToDefaults() error {
	return s.settingsRepo.ResetToDefaults()
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

// ============ ТЕСТЫ ============

func TestSettingsService_GetSettings(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*MockSettingsRepository)
		wantErr bool
	}{
		{
			name: "успешное получение настроек",
		},
		{
			name: "ошибка базы данных",
			setup: func(m *MockSettingsRepository) {
				m.getErr = errors.New("db error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(mockRepo)
			}

			svc := newTestableSettingsService(mockRepo)
			settings, err := svc.GetSettings()

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

			if settings == nil {
				t.Error("expected settings, got nil")
			}
		})
	}
}

func TestSettingsService_UpdateSettings(t *testing.T) {
	tests := []struct {
		name    string
		req     *UpdateSettingsRequest
		setup   func(*MockSettingsRepository)
		check   func(*testing.T, *models.OperatorSettings)
		wantErr error
	}{
		{
			name: "обновление min_profit_absolute",
			req: &UpdateSettingsRequest{
				MinProfitAbsolute: strPtr("0.05"),
			},
			check: func(t *testing.T, s *models.OperatorSettings) {
				if s.MinProfitAbsolute != "0.05" {
					t.Errorf("expected MinProfitAbsolute 0.05, got %s", s.MinProfitAbsolute)
				}
			},
		},
		{
			name: "обновление liquidity_threshold",
			req: &UpdateSettingsRequest{
				LiquidityThreshold: strPtr("100"),
			},
			check: func(t *testing.T, s *models.OperatorSettings) {
				if s.LiquidityThreshold != "100" {
					t.Errorf("expected LiquidityThreshold 100, got %s", s.LiquidityThreshold)
				}
			},
		},
		{
			name: "обновление max_total_exposure",
			req: &UpdateSettingsRequest{
				MaxTotalExposure: strPtr("500"),
			},
			check: func(t *testing.T, s *models.OperatorSettings) {
				if s.MaxTotalExposure != "500" {
					t.Errorf("expected MaxTotalExposure 500, got %s", s.MaxTotalExposure)
				}
			},
		},
		{
			name: "обновление dry_run",
			req: &UpdateSettingsRequest{
				DryRun: boolPtr(false),
			},
			check: func(t *testing.T, s *models.OperatorSettings) {
				if s.DryRun {
					t.Error("expected DryRun to be false")
				}
			},
		},
		{
			name: "обновление notification_prefs",
			req: &UpdateSettingsRequest{
				NotificationPrefs: &models.NotificationPreferences{
					OpportunityFound: false,
					TradeFilled:      false,
				},
			},
			check: func(t *testing.T, s *models.OperatorSettings) {
				if s.NotificationPrefs.OpportunityFound {
					t.Error("expected OpportunityFound to be false")
				}
			},
		},
		{
			name: "невалидный min_profit_absolute",
			req: &UpdateSettingsRequest{
				MinProfitAbsolute: strPtr("not-a-number"),
			},
			wantErr: ErrInvalidMinProfitAbsolute,
		},
		{
			name: "отрицательный max_total_exposure",
			req: &UpdateSettingsRequest{
				MaxTotalExposure: strPtr("-10"),
			},
			wantErr: ErrInvalidMaxTotalExposure,
		},
		{
			name: "ошибка получения настроек",
			req:  &UpdateSettingsRequest{},
			setup: func(m *MockSettingsRepository) {
				m.getErr = errors.New("db error")
			},
			wantErr: errors.New("db error"),
		},
		{
			name: "ошибка обновления",
			req: &UpdateSettingsRequest{
				DryRun: boolPtr(false),
			},
			setup: func(m *MockSettingsRepository) {
				m.updateErr = errors.New("update error")
			},
			wantErr: errors.New("update error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(mockRepo)
			}

			svc := newTestableSettingsService(mockRepo)
			settings, err := svc.UpdateSettings(tt.req)

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("expected error %v, got nil", tt.wantErr)
					return
				}
				if tt.wantErr.Error() != err.Error() {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if tt.check != nil {
				tt.check(t, settings)
			}
		})
	}
}

func TestSettingsService_UpdateNotificationPrefs(t *testing.T) {
	tests := []struct {
		name    string
		prefs   models.NotificationPreferences
		setup   func(*MockSettingsRepository)
		wantErr bool
	}{
		{
			name: "успешное обновление",
			prefs: models.NotificationPreferences{
				OpportunityFound: false,
				TradeFilled:      false,
				TradeFailed:      true,
			},
		},
		{
			name: "все уведомления включены",
			prefs: models.NotificationPreferences{
				OpportunityFound:  true,
				TradeFilled:       true,
				TradeFailed:       true,
				RebalanceExecuted: true,
				VenueDisconnected: true,
				APIError:          true,
				Pause:             true,
			},
		},
		{
			name:  "ошибка обновления",
			prefs: models.NotificationPreferences{},
			setup: func(m *MockSettingsRepository) {
				m.updateErr = errors.New("update error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(mockRepo)
			}

			svc := newTestableSettingsService(mockRepo)
			err := svc.UpdateNotificationPrefs(tt.prefs)

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

func TestSettingsService_UpdateDryRun(t *testing.T) {
	tests := []struct {
		name    string
		dryRun  bool
		setup   func(*MockSettingsRepository)
		wantErr bool
	}{
		{
			name:   "включить dry-run",
			dryRun: true,
		},
		{
			name:   "отключить dry-run",
			dryRun: false,
		},
		{
			name:   "ошибка обновления",
			dryRun: true,
			setup: func(m *MockSettingsRepository) {
				m.updateErr = errors.New("update error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(mockRepo)
			}

			svc := newTestableSettingsService(mockRepo)
			err := svc.UpdateDryRun(tt.dryRun)

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

func TestSettingsService_UpdateMaxTotalExposure(t *testing.T) {
	tests := []struct {
		name        string
		maxExposure string
		setup       func(*MockSettingsRepository)
		wantErr     error
	}{
		{
			name:        "установка лимита",
			maxExposure: "1000",
		},
		{
			name:        "нулевой лимит",
			maxExposure: "0",
		},
		{
			name:        "невалидное значение",
			maxExposure: "abc",
			wantErr:     ErrInvalidMaxTotalExposure,
		},
		{
			name:        "отрицательное значение",
			maxExposure: "-5",
			wantErr:     ErrInvalidMaxTotalExposure,
		},
		{
			name:        "ошибка обновления",
			maxExposure: "500",
			setup: func(m *MockSettingsRepository) {
				m.updateErr = errors.New("update error")
			},
			wantErr: errors.New("update error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(mockRepo)
			}

			svc := newTestableSettingsService(mockRepo)
			err := svc.UpdateMaxTotalExposure(tt.maxExposure)

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("expected error %v, got nil", tt.wantErr)
					return
				}
				if tt.wantErr.Error() != err.Error() {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSettingsService_GetNotificationPrefs(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*MockSettingsRepository)
		check   func(*testing.T, *models.NotificationPreferences)
		wantErr bool
	}{
		{
			name: "успешное получение",
			check: func(t *testing.T, prefs *models.NotificationPreferences) {
				if prefs == nil {
					t.Error("expected prefs, got nil")
				}
			},
		},
		{
			name: "ошибка получения",
			setup: func(m *MockSettingsRepository) {
				m.getErr = errors.New("db error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(mockRepo)
			}

			svc := newTestableSettingsService(mockRepo)
			prefs, err := svc.GetNotificationPrefs()

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

			if tt.check != nil {
				tt.check(t, prefs)
			}
		})
	}
}

func TestSettingsService_ResetToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*MockSettingsRepository)
		wantErr bool
	}{
		{
			name: "успешный сброс",
			setup: func(m *MockSettingsRepository) {
				m.settings.DryRun = false
				m.settings.MaxTotalExposure = "1000"
				m.settings.NotificationPrefs.OpportunityFound = false
			},
		},
		{
			name: "ошибка сброса",
			setup: func(m *MockSettingsRepository) {
				m.updateErr = errors.New("update error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := NewMockSettingsRepository()
			if tt.setup != nil {
				tt.setup(mockRepo)
			}

			svc := newTestableSettingsService(mockRepo)
			err := svc.ResetToDefaults()

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

func TestSettingsService_DefaultValues(t *testing.T) {
	mockRepo := NewMockSettingsRepository()
	svc := newTestableSettingsService(mockRepo)

	settings, err := svc.GetSettings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !settings.DryRun {
		t.Error("default DryRun should be true")
	}

	if !settings.EnableSequentialPlacement {
		t.Error("default EnableSequentialPlacement should be true")
	}

	prefs := settings.NotificationPrefs
	if !prefs.OpportunityFound || !prefs.TradeFilled || !prefs.TradeFailed ||
		!prefs.RebalanceExecuted || !prefs.VenueDisconnected || !prefs.APIError || !prefs.Pause {
		t.Error("all notification types should be enabled by default")
	}
}
