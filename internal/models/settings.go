package models

import "time"

// OperatorSettings представляет глобальные настройки исполнителя, изменяемые
// через operator API без перезапуска процесса
type OperatorSettings struct {
	ID                       int                     `json:"id" db:"id"`
	MinProfitAbsolute        string                  `json:"min_profit_absolute" db:"min_profit_absolute"`   // Price как строка для точности
	LiquidityThreshold       string                  `json:"liquidity_threshold" db:"liquidity_threshold"`
	MaxTotalExposure         string                  `json:"max_total_exposure" db:"max_total_exposure"`
	EnableSequentialPlacement bool                   `json:"enable_sequential_placement" db:"enable_sequential_placement"`
	DryRun                   bool                    `json:"dry_run" db:"dry_run"`
	NotificationPrefs        NotificationPreferences `json:"notification_prefs" db:"notification_prefs"` // JSON в БД
	UpdatedAt                time.Time               `json:"updated_at" db:"updated_at"`
}

// NotificationPreferences представляет настройки уведомлений
type NotificationPreferences struct {
	OpportunityFound  bool `json:"opportunity_found"`
	TradeFilled       bool `json:"trade_filled"`
	TradeFailed       bool `json:"trade_failed"`
	RebalanceExecuted bool `json:"rebalance_executed"`
	VenueDisconnected bool `json:"venue_disconnected"`
	APIError          bool `json:"api_error"`
	Pause             bool `json:"pause"`
}
