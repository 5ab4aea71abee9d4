package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"predictarb/internal/models"
)

// Ошибки репозитория настроек
var (
	ErrSettingsNotFound = errors.New("settings not found")
)

// SettingsRepository - работа с таблицей settings (одна запись, id=1)
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository создает новый экземпляр репозитория
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// defaultNotificationPrefs возвращает настройки уведомлений по умолчанию:
// включены все каналы
func defaultNotificationPrefs() models.NotificationPreferences {
	return models.NotificationPreferences{
		OpportunityFound:  true,
		TradeFilled:       true,
		TradeFailed:       true,
		RebalanceExecuted: true,
		VenueDisconnected: true,
		APIError:          true,
		Pause:             true,
	}
}

func defaultSettings() *models.OperatorSettings {
	return &models.OperatorSettings{
		ID:                        1,
		MinProfitAbsolute:         "0.01",
		LiquidityThreshold:        "0",
		MaxTotalExposure:          "0",
		EnableSequentialPlacement: true,
		DryRun:                    true,
		NotificationPrefs:         defaultNotificationPrefs(),
	}
}

// Get возвращает глобальные настройки, создавая запись по умолчанию, если её нет
func (r *SettingsRepository) Get() (*models.OperatorSettings, error) {
	query := `
		SELECT id, min_profit_absolute, liquidity_threshold, max_total_exposure, enable_sequential_placement, dry_run, notification_prefs, updated_at
		FROM settings WHERE id = 1`

	var s models.OperatorSettings
	var prefsJSON []byte

	err := r.db.QueryRow(query).Scan(
		&s.ID,
		&s.MinProfitAbsolute,
		&s.LiquidityThreshold,
		&s.MaxTotalExposure,
		&s.EnableSequentialPlacement,
		&s.DryRun,
		&prefsJSON,
		&s.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.createDefault()
		}
		return nil, err
	}

	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &s.NotificationPrefs); err != nil {
			return nil, err
		}
	} else {
		s.NotificationPrefs = defaultNotificationPrefs()
	}

	return &s, nil
}

func (r *SettingsRepository) createDefault() (*models.OperatorSettings, error) {
	defaults := defaultSettings()
	prefsJSON, err := json.Marshal(defaults.NotificationPrefs)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO settings (id, min_profit_absolute, liquidity_threshold, max_total_exposure, enable_sequential_placement, dry_run, notification_prefs, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)`

	defaults.UpdatedAt = time.Now()
	_, err = r.db.Exec(
		query,
		defaults.MinProfitAbsolute,
		defaults.LiquidityThreshold,
		defaults.MaxTotalExposure,
		defaults.EnableSequentialPlacement,
		defaults.DryRun,
		prefsJSON,
		defaults.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return defaults, nil
}

// Update обновляет все поля настроек целиком
func (r *SettingsRepository) Update(s *models.OperatorSettings) error {
	prefsJSON, err := json.Marshal(s.NotificationPrefs)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now()

	query := `
		UPDATE settings
		SET min_profit_absolute = $1, liquidity_threshold = $2, max_total_exposure = $3,
		    enable_sequential_placement = $4, dry_run = $5, notification_prefs = $6, updated_at = $7
		WHERE id = 1`

	result, err := r.db.Exec(
		query,
		s.MinProfitAbsolute,
		s.LiquidityThreshold,
		s.MaxTotalExposure,
		s.EnableSequentialPlacement,
		s.DryRun,
		prefsJSON,
		s.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrSettingsNotFound
	}

	return nil
}

// UpdateNotificationPrefs обновляет только preferences уведомлений
func (r *SettingsRepository) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`UPDATE settings SET notification_prefs = $1, updated_at = $2 WHERE id = 1`, prefsJSON, time.Now())
	return err
}

// UpdateDryRun переключает режим dry-run
func (r *SettingsRepository) UpdateDryRun(dryRun bool) error {
	_, err := r.db.Exec(`UPDATE settings SET dry_run = $1, updated_at = $2 WHERE id = 1`, dryRun, time.Now())
	return err
}

// UpdateMaxTotalExposure обновляет лимит совокупной экспозиции
func (r *SettingsRepository) UpdateMaxTotalExposure(maxExposure string) error {
	_, err := r.db.Exec(`UPDATE settings SET max_total_exposure = $1, updated_at = $2 WHERE id = 1`, maxExposure, time.Now())
	return err
}

// GetNotificationPrefs возвращает настройки уведомлений, по умолчанию если не заданы
func (r *SettingsRepository) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	var prefsJSON []byte
	err := r.db.QueryRow(`SELECT notification_prefs FROM settings WHERE id = 1`).Scan(&prefsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			prefs := defaultNotificationPrefs()
			return &prefs, nil
		}
		return nil, err
	}

	if len(prefsJSON) == 0 {
		prefs := defaultNotificationPrefs()
		return &prefs, nil
	}

	var prefs models.NotificationPreferences
	if err := json.Unmarshal(prefsJSON, &prefs); err != nil {
		return nil, err
	}

	return &prefs, nil
}

// ResetToDefaults сбрасывает настройки к значениям по умолчанию
func (r *SettingsRepository) ResetToDefaults() error {
	return r.Update(defaultSettings())
}
