package service

import (
	"time"

	"predictarb/internal/models"
	"predictarb/internal/repository"
)

// BlacklistRepositoryInterface определяет интерфейс репозитория черного списка
type BlacklistRepositoryInterface interface {
	Create(entry *models.BlacklistEntry) error
	GetAll() ([]*models.BlacklistEntry, error)
	GetByID(id int) (*models.BlacklistEntry, error)
	GetByConditionID(venue, conditionID string) (*models.BlacklistEntry, error)
	Delete(venue, conditionID string) error
	DeleteByID(id int) error
	Exists(venue, conditionID string) (bool, error)
	UpdateReason(venue, conditionID, reason string) error
	Count() (int, error)
	DeleteAll() error
	SearchByAsset(asset string) ([]*models.BlacklistEntry, error)
}

// SettingsRepositoryInterface определяет интерфейс репозитория настроек
type SettingsRepositoryInterface interface {
	Get() (*models.OperatorSettings, error)
	Update(settings *models.OperatorSettings) error
	UpdateNotificationPrefs(prefs models.NotificationPreferences) error
	UpdateDryRun(dryRun bool) error
	UpdateMaxTotalExposure(maxExposure string) error
	GetNotificationPrefs() (*models.NotificationPreferences, error)
	ResetToDefaults() error
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(notif *models.Notification) error
	GetByID(id int) (*models.Notification, error)
	GetRecent(limit int) ([]*models.Notification, error)
	GetByMarketID(marketID string, limit int) ([]*models.Notification, error)
	GetBySeverity(severity string, limit int) ([]*models.Notification, error)
	GetInTimeRange(from, to time.Time, limit int) ([]*models.Notification, error)
	DeleteAll() error
	DeleteOlderThan(timestamp time.Time) (int64, error)
	DeleteByMarketID(marketID string) error
	Count() (int, error)
	CountByType(notifType string) (int, error)
	CountBySeverity(severity string) (int, error)
	KeepRecent(n int) (int64, error)
}

// StatsRepositoryInterface определяет интерфейс репозитория статистики
type StatsRepositoryInterface interface {
	GetStats() (*models.Stats, error)
	RecordTrade(marketID, venue, token string, entryTime, exitTime time.Time, pnl float64) error
	GetTopMarketsByTrades(limit int) ([]models.MarketStat, error)
	GetTopMarketsByProfit(limit int) ([]models.MarketStat, error)
	GetTopMarketsByLoss(limit int) ([]models.MarketStat, error)
	IncrementOpportunitiesDetected() error
	IncrementOpportunitiesExecuted() error
	IncrementRebalancesTriggered() error
	ResetCounters() error
	GetTradesByMarketID(marketID string, limit int) ([]*models.TradeRecord, error)
	GetTradesInTimeRange(from, to time.Time, limit int) ([]*models.TradeRecord, error)
	Count() (int, error)
	GetPNLByMarket(marketID string) (float64, error)
	DeleteOlderThan(threshold time.Time) (int64, error)
}

// OrderRepositoryInterface определяет интерфейс репозитория ордеров
type OrderRepositoryInterface interface {
	Create(order *models.OrderRecord) error
	GetByID(id int) (*models.OrderRecord, error)
	GetByMarketID(marketID string) ([]*models.OrderRecord, error)
	GetRecent(limit int) ([]*models.OrderRecord, error)
	GetByStatus(status string) ([]*models.OrderRecord, error)
	GetByVenue(venue string, limit int) ([]*models.OrderRecord, error)
	UpdateStatus(id int, status string, priceAvg float64, filledAt *time.Time) error
	SetError(id int, errorMessage string) error
	Delete(id int) error
	DeleteByMarketID(marketID string) error
	DeleteOlderThan(threshold time.Time) (int64, error)
	Count() (int, error)
	CountByStatus(status string) (int, error)
	GetFilledByMarketIDInTimeRange(marketID string, from, to time.Time) ([]*models.OrderRecord, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ BlacklistRepositoryInterface = (*repository.BlacklistRepository)(nil)
var _ SettingsRepositoryInterface = (*repository.SettingsRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)
var _ StatsRepositoryInterface = (*repository.StatsRepository)(nil)
var _ OrderRepositoryInterface = (*repository.OrderRepository)(nil)
