package service

import (
	"errors"

	"github.com/shopspring/decimal"

	"predictarb/internal/models"
	"predictarb/internal/repository"
)

// Ошибки сервиса настроек
var (
	ErrInvalidMinProfitAbsolute  = errors.New("min_profit_absolute must be a non-negative decimal")
	ErrInvalidLiquidityThreshold = errors.New("liquidity_threshold must be a non-negative decimal")
	ErrInvalidMaxTotalExposure   = errors.New("max_total_exposure must be a non-negative decimal")
)

// SettingsService предоставляет бизнес-логику для управления глобальными
// настройками оператора.
//
// Отвечает за:
// - Получение и обновление параметров детектора и сайзера
// - Валидацию значений перед сохранением
// - Управление режимом dry-run и предпочтениями уведомлений
type SettingsService struct {
	settingsRepo *repository.SettingsRepository
}

// NewSettingsService создает новый экземпляр SettingsService.
func NewSettingsService(settingsRepo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
	}
}

// GetSettings возвращает текущие глобальные настройки.
//
// Если записи в БД нет, создается запись с дефолтными значениями.
func (s *SettingsService) GetSettings() (*models.OperatorSettings, error) {
	return s.settingsRepo.Get()
}

// UpdateSettingsRequest представляет запрос на обновление настроек.
// Все поля опциональны - обновляются только переданные.
type UpdateSettingsRequest struct {
	MinProfitAbsolute         *string                          `json:"min_profit_absolute,omitempty"`
	LiquidityThreshold        *string                          `json:"liquidity_threshold,omitempty"`
	MaxTotalExposure          *string                          `json:"max_total_exposure,omitempty"`
	EnableSequentialPlacement *bool                            `json:"enable_sequential_placement,omitempty"`
	DryRun                    *bool                            `json:"dry_run,omitempty"`
	NotificationPrefs         *models.NotificationPreferences  `json:"notification_prefs,omitempty"`
}

func validateNonNegativeDecimal(s string, errOnInvalid error) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errOnInvalid
	}
	if d.IsNegative() {
		return errOnInvalid
	}
	return nil
}

// UpdateSettings обновляет глобальные настройки.
//
// Принимает только те поля, которые нужно обновить, и валидирует их
// перед сохранением.
func (s *SettingsService) UpdateSettings(req *UpdateSettingsRequest) (*models.OperatorSettings, error) {
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

// UpdateNotificationPrefs обновляет только настройки уведомлений.
func (s *SettingsService) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	return s.settingsRepo.UpdateNotificationPrefs(prefs)
}

// UpdateDryRun сохраняет флаг dry_run в настройках оператора. Работающий
// исполнитель его не читает: его режим задается флагом --dry-run при запуске.
func (s *SettingsService) UpdateDryRun(dryRun bool) error {
	return s.settingsRepo.UpdateDryRun(dryRun)
}

// UpdateMaxTotalExposure обновляет лимит совокупной открытой экспозиции.
func (s *SettingsService) UpdateMaxTotalExposure(maxExposure string) error {
	if err := validateNonNegativeDecimal(maxExposure, ErrInvalidMaxTotalExposure); err != nil {
		return err
	}
	return s.settingsRepo.UpdateMaxTotalExposure(maxExposure)
}

// GetNotificationPrefs возвращает только настройки уведомлений.
func (s *SettingsService) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	return s.settingsRepo.GetNotificationPrefs()
}

// ResetToDefaults сбрасывает все настройки к значениям по умолчанию.
func (s *SettingsService) ResetToDefaults() error {
	return s.settingsRepo.ResetToDefaults()
}
