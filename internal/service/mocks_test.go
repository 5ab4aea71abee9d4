package service

import (
	"errors"
	"sort"
	"time"

	"predictarb/internal/models"
)

// MockBlacklistRepository - заглушка репозитория черного списка для тестов.
// Ключ карты - venue+"|"+conditionID.
type MockBlacklistRepository struct {
	entries map[string]*models.BlacklistEntry
	nextID  int

	createErr error
	getErr    error
	deleteErr error
	existsErr error
	updateErr error
	searchErr error
}

func NewMockBlacklistRepository() *MockBlacklistRepository {
	return &MockBlacklistRepository{
		entries: make(map[string]*models.BlacklistEntry),
		nextID:  1,
	}
}

func blacklistKey(venue, conditionID string) string {
	return venue + "|" + conditionID
}

func (m *MockBlacklistRepository) Create(entry *models.BlacklistEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := blacklistKey(entry.Venue, entry.ConditionID)
	if _, ok := m.entries[key]; ok {
		return errors.New("blacklist entry already exists")
	}
	entry.ID = m.nextID
	m.nextID++
	entry.CreatedAt = time.Now()
	m.entries[key] = entry
	return nil
}

func (m *MockBlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.BlacklistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockBlacklistRepository) GetByID(id int) (*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.New("blacklist entry not found")
}

func (m *MockBlacklistRepository) GetByConditionID(venue, conditionID string) (*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.entries[blacklistKey(venue, conditionID)]
	if !ok {
		return nil, errors.New("blacklist entry not found")
	}
	return entry, nil
}

func (m *MockBlacklistRepository) Delete(venue, conditionID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	key := blacklistKey(venue, conditionID)
	if _, ok := m.entries[key]; !ok {
		return errors.New("blacklist entry not found")
	}
	delete(m.entries, key)
	return nil
}

func (m *MockBlacklistRepository) DeleteByID(id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for key, e := range m.entries {
		if e.ID == id {
			delete(m.entries, key)
			return nil
		}
	}
	return errors.New("blacklist entry not found")
}

func (m *MockBlacklistRepository) Exists(venue, conditionID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.entries[blacklistKey(venue, conditionID)]
	return ok, nil
}

func (m *MockBlacklistRepository) UpdateReason(venue, conditionID, reason string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	entry, ok := m.entries[blacklistKey(venue, conditionID)]
	if !ok {
		return errors.New("blacklist entry not found")
	}
	entry.Reason = reason
	return nil
}

func (m *MockBlacklistRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.entries), nil
}

func (m *MockBlacklistRepository) DeleteAll() error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.entries = make(map[string]*models.BlacklistEntry)
	return nil
}

func (m *MockBlacklistRepository) SearchByAsset(asset string) ([]*models.BlacklistEntry, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	result := make([]*models.BlacklistEntry, 0)
	for _, e := range m.entries {
		if containsIgnoreCase(e.Asset, asset) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MockSettingsRepository - заглушка репозитория настроек для тестов.
type MockSettingsRepository struct {
	settings *models.OperatorSettings

	getErr    error
	updateErr error
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{
		settings: &models.OperatorSettings{
			ID:                        1,
			MinProfitAbsolute:         "0.01",
			LiquidityThreshold:        "0",
			MaxTotalExposure:          "0",
			EnableSequentialPlacement: true,
			DryRun:                    true,
			NotificationPrefs: models.NotificationPreferences{
				OpportunityFound:  true,
				TradeFilled:       true,
				TradeFailed:       true,
				RebalanceExecuted: true,
				VenueDisconnected: true,
				APIError:          true,
				Pause:             true,
			},
			UpdatedAt: time.Now(),
		},
	}
}

func (m *MockSettingsRepository) Get() (*models.OperatorSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cp := *m.settings
	return &cp, nil
}

func (m *MockSettingsRepository) Update(settings *models.OperatorSettings) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings = settings
	return nil
}

func (m *MockSettingsRepository) UpdateNotificationPrefs(prefs models.NotificationPreferences) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings.NotificationPrefs = prefs
	return nil
}

func (m *MockSettingsRepository) UpdateDryRun(dryRun bool) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings.DryRun = dryRun
	return nil
}

func (m *MockSettingsRepository) UpdateMaxTotalExposure(maxExposure string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings.MaxTotalExposure = maxExposure
	return nil
}

func (m *MockSettingsRepository) GetNotificationPrefs() (*models.NotificationPreferences, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	prefs := m.settings.NotificationPrefs
	return &prefs, nil
}

func (m *MockSettingsRepository) ResetToDefaults() error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.settings = NewMockSettingsRepository().settings
	return nil
}

// MockNotificationRepository - заглушка репозитория уведомлений для тестов.
type MockNotificationRepository struct {
	notifications []*models.Notification
	nextID        int

	createErr error
	getErr    error
	deleteErr error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{nextID: 1}
}

func (m *MockNotificationRepository) Create(notif *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	notif.ID = m.nextID
	m.nextID++
	notif.Timestamp = time.Now()
	m.notifications = append(m.notifications, notif)
	return nil
}

func (m *MockNotificationRepository) GetByID(id int) (*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, n := range m.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, errors.New("notification not found")
}

func (m *MockNotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return lastN(m.notifications, limit), nil
}

func (m *MockNotificationRepository) GetByMarketID(marketID string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	filtered := make([]*models.Notification, 0)
	for _, n := range m.notifications {
		if n.MarketID != nil && *n.MarketID == marketID {
			filtered = append(filtered, n)
		}
	}
	return lastN(filtered, limit), nil
}

func (m *MockNotificationRepository) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	filtered := make([]*models.Notification, 0)
	for _, n := range m.notifications {
		if n.Severity == severity {
			filtered = append(filtered, n)
		}
	}
	return lastN(filtered, limit), nil
}

func (m *MockNotificationRepository) GetInTimeRange(from, to time.Time, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	filtered := make([]*models.Notification, 0)
	for _, n := range m.notifications {
		if !n.Timestamp.Before(from) && !n.Timestamp.After(to) {
			filtered = append(filtered, n)
		}
	}
	return lastN(filtered, limit), nil
}

func (m *MockNotificationRepository) DeleteAll() error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.notifications = nil
	return nil
}

func (m *MockNotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	kept := make([]*models.Notification, 0, len(m.notifications))
	var removed int64
	for _, n := range m.notifications {
		if n.Timestamp.Before(timestamp) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return removed, nil
}

func (m *MockNotificationRepository) DeleteByMarketID(marketID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	kept := make([]*models.Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		if n.MarketID == nil || *n.MarketID != marketID {
			kept = append(kept, n)
		}
	}
	m.notifications = kept
	return nil
}

func (m *MockNotificationRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.notifications), nil
}

func (m *MockNotificationRepository) CountByType(notifType string) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	count := 0
	for _, n := range m.notifications {
		if n.Type == notifType {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) CountBySeverity(severity string) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	count := 0
	for _, n := range m.notifications {
		if n.Severity == severity {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) KeepRecent(n int) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	if len(m.notifications) <= n {
		return 0, nil
	}
	removed := int64(len(m.notifications) - n)
	m.notifications = lastN(m.notifications, n)
	return removed, nil
}

func lastN(notifications []*models.Notification, n int) []*models.Notification {
	if n <= 0 || n >= len(notifications) {
		out := make([]*models.Notification, len(notifications))
		copy(out, notifications)
		return out
	}
	return append([]*models.Notification{}, notifications[len(notifications)-n:]...)
}

// MockStatsRepository - заглушка репозитория статистики для тестов.
type MockStatsRepository struct {
	trades                 []*models.TradeRecord
	nextID                 int
	opportunitiesDetected  int
	opportunitiesExecuted  int
	rebalancesTriggered    int

	createErr error
	getErr    error
	deleteErr error
}

func NewMockStatsRepository() *MockStatsRepository {
	return &MockStatsRepository{nextID: 1}
}

func (m *MockStatsRepository) RecordTrade(marketID, venue, token string, entryTime, exitTime time.Time, pnl float64) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.trades = append(m.trades, &models.TradeRecord{
		ID:        m.nextID,
		MarketID:  marketID,
		Venue:     venue,
		Token:     token,
		EntryTime: entryTime,
		ExitTime:  exitTime,
		Pnl:       pnl,
		CreatedAt: time.Now(),
	})
	m.nextID++
	return nil
}

func (m *MockStatsRepository) GetTradesByMarketID(marketID string, limit int) ([]*models.TradeRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	filtered := make([]*models.TradeRecord, 0)
	for _, tr := range m.trades {
		if tr.MarketID == marketID {
			filtered = append(filtered, tr)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (m *MockStatsRepository) GetTradesInTimeRange(from, to time.Time, limit int) ([]*models.TradeRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	filtered := make([]*models.TradeRecord, 0)
	for _, tr := range m.trades {
		if !tr.ExitTime.Before(from) && !tr.ExitTime.After(to) {
			filtered = append(filtered, tr)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (m *MockStatsRepository) Count() (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.trades), nil
}

func (m *MockStatsRepository) GetPNLByMarket(marketID string) (float64, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	var total float64
	for _, tr := range m.trades {
		if tr.MarketID == marketID {
			total += tr.Pnl
		}
	}
	return total, nil
}

func (m *MockStatsRepository) DeleteOlderThan(threshold time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	kept := make([]*models.TradeRecord, 0, len(m.trades))
	var removed int64
	for _, tr := range m.trades {
		if tr.ExitTime.Before(threshold) {
			removed++
			continue
		}
		kept = append(kept, tr)
	}
	m.trades = kept
	return removed, nil
}

type marketAgg struct {
	marketID string
	venue    string
	trades   int
	pnl      float64
}

func (m *MockStatsRepository) aggregateByMarket() []marketAgg {
	aggs := make(map[string]*marketAgg)
	order := make([]string, 0)
	for _, tr := range m.trades {
		a, ok := aggs[tr.MarketID]
		if !ok {
			a = &marketAgg{marketID: tr.MarketID, venue: tr.Venue}
			aggs[tr.MarketID] = a
			order = append(order, tr.MarketID)
		}
		a.trades++
		a.pnl += tr.Pnl
	}
	result := make([]marketAgg, 0, len(order))
	for _, id := range order {
		result = append(result, *aggs[id])
	}
	return result
}

func (m *MockStatsRepository) GetTopMarketsByTrades(limit int) ([]models.MarketStat, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	aggs := m.aggregateByMarket()
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].trades > aggs[j].trades })
	return marketStatsFromAgg(aggs, limit, func(a marketAgg) float64 { return float64(a.trades) }), nil
}

func (m *MockStatsRepository) GetTopMarketsByProfit(limit int) ([]models.MarketStat, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	aggs := m.aggregateByMarket()
	profitable := make([]marketAgg, 0)
	for _, a := range aggs {
		if a.pnl > 0 {
			profitable = append(profitable, a)
		}
	}
	sort.Slice(profitable, func(i, j int) bool { return profitable[i].pnl > profitable[j].pnl })
	return marketStatsFromAgg(profitable, limit, func(a marketAgg) float64 { return a.pnl }), nil
}

func (m *MockStatsRepository) GetTopMarketsByLoss(limit int) ([]models.MarketStat, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	aggs := m.aggregateByMarket()
	losing := make([]marketAgg, 0)
	for _, a := range aggs {
		if a.pnl < 0 {
			losing = append(losing, a)
		}
	}
	sort.Slice(losing, func(i, j int) bool { return losing[i].pnl < losing[j].pnl })
	return marketStatsFromAgg(losing, limit, func(a marketAgg) float64 { return a.pnl }), nil
}

func marketStatsFromAgg(aggs []marketAgg, limit int, value func(marketAgg) float64) []models.MarketStat {
	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}
	result := make([]models.MarketStat, 0, len(aggs))
	for _, a := range aggs {
		result = append(result, models.MarketStat{MarketID: a.marketID, Venue: a.venue, Value: value(a)})
	}
	return result
}

func (m *MockStatsRepository) IncrementOpportunitiesDetected() error {
	if m.createErr != nil {
		return m.createErr
	}
	m.opportunitiesDetected++
	return nil
}

func (m *MockStatsRepository) IncrementOpportunitiesExecuted() error {
	if m.createErr != nil {
		return m.createErr
	}
	m.opportunitiesExecuted++
	return nil
}

func (m *MockStatsRepository) IncrementRebalancesTriggered() error {
	if m.createErr != nil {
		return m.createErr
	}
	m.rebalancesTriggered++
	return nil
}

func (m *MockStatsRepository) ResetCounters() error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.trades = nil
	m.opportunitiesDetected = 0
	m.opportunitiesExecuted = 0
	m.rebalancesTriggered = 0
	return nil
}

func (m *MockStatsRepository) GetStats() (*models.Stats, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}

	stats := &models.Stats{
		OpportunitiesDetected: m.opportunitiesDetected,
		OpportunitiesExecuted: m.opportunitiesExecuted,
		RebalancesTriggered:   m.rebalancesTriggered,
	}

	now := time.Now()
	dayStart := now.Truncate(24 * time.Hour)
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	for _, tr := range m.trades {
		stats.TotalTrades++
		stats.TotalPnl += tr.Pnl

		if !tr.ExitTime.Before(dayStart) {
			stats.TodayTrades++
			stats.TodayPnl += tr.Pnl
		}
		if !tr.ExitTime.Before(weekStart) {
			stats.WeekTrades++
			stats.WeekPnl += tr.Pnl
		}
		if !tr.ExitTime.Before(monthStart) {
			stats.MonthTrades++
			stats.MonthPnl += tr.Pnl
		}
	}

	stats.TopMarketsByTrades, _ = m.GetTopMarketsByTrades(5)
	stats.TopMarketsByProfit, _ = m.GetTopMarketsByProfit(5)
	stats.TopMarketsByLoss, _ = m.GetTopMarketsByLoss(5)

	return stats, nil
}

// MockWebSocketBroadcaster - заглушка отправки уведомлений через WebSocket.
type MockWebSocketBroadcaster struct {
	notifications []*models.Notification
}

func NewMockWebSocketBroadcaster() *MockWebSocketBroadcaster {
	return &MockWebSocketBroadcaster{}
}

func (m *MockWebSocketBroadcaster) BroadcastNotification(notif *models.Notification) {
	m.notifications = append(m.notifications, notif)
}

// MockStatsBroadcaster - заглушка отправки обновлений статистики через WebSocket.
type MockStatsBroadcaster struct {
	updates []*models.Stats
}

func NewMockStatsBroadcaster() *MockStatsBroadcaster {
	return &MockStatsBroadcaster{}
}

func (m *MockStatsBroadcaster) BroadcastStatsUpdate(stats *models.Stats) {
	m.updates = append(m.updates, stats)
}

// containsIgnoreCase проверяет вхождение substr в s без учета регистра.
func containsIgnoreCase(s, substr string) bool {
	return contains(toLower(s), toLower(substr))
}

func toLower(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}

func contains(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
