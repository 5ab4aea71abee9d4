package repository

import (
	"database/sql"
	"errors"
	"time"

	"predictarb/internal/models"
)

// StatsRepository - работа со статистикой: агрегаты из таблицы trades
// и счетчики событий в таблице stats_counters (единственная строка id=1)
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository создает новый экземпляр репозитория
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RecordTrade записывает исполненную сделку
func (r *StatsRepository) RecordTrade(marketID, venue, token string, entryTime, exitTime time.Time, pnl float64) error {
	query := `
		INSERT INTO trades (market_id, venue, token, entry_time, exit_time, pnl, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(query, marketID, venue, token, entryTime, exitTime, pnl, time.Now())
	return err
}

func (r *StatsRepository) scanTrade(row interface{ Scan(...interface{}) error }) (*models.TradeRecord, error) {
	trade := &models.TradeRecord{}
	err := row.Scan(
		&trade.ID, &trade.MarketID, &trade.Venue, &trade.Token,
		&trade.EntryTime, &trade.ExitTime, &trade.Pnl, &trade.CreatedAt,
	)
	return trade, err
}

func (r *StatsRepository) queryTrades(query string, args ...interface{}) ([]*models.TradeRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.TradeRecord
	for rows.Next() {
		trade, err := r.scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// GetTradesByMarketID возвращает сделки по конкретному рынку
func (r *StatsRepository) GetTradesByMarketID(marketID string, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, market_id, venue, token, entry_time, exit_time, pnl, created_at
		FROM trades WHERE market_id = $1 ORDER BY exit_time DESC LIMIT $2`
	return r.queryTrades(query, marketID, limit)
}

// GetTradesInTimeRange возвращает сделки за период
func (r *StatsRepository) GetTradesInTimeRange(from, to time.Time, limit int) ([]*models.TradeRecord, error) {
	query := `
		SELECT id, market_id, venue, token, entry_time, exit_time, pnl, created_at
		FROM trades WHERE exit_time >= $1 AND exit_time <= $2 ORDER BY exit_time DESC LIMIT $3`
	return r.queryTrades(query, from, to, limit)
}

// Count возвращает общее количество сделок
func (r *StatsRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count)
	return count, err
}

// GetPNLByMarket возвращает суммарный PNL по рынку
func (r *StatsRepository) GetPNLByMarket(marketID string) (float64, error) {
	var pnl float64
	err := r.db.QueryRow(`SELECT COALESCE(SUM(pnl), 0) FROM trades WHERE market_id = $1`, marketID).Scan(&pnl)
	return pnl, err
}

// getTradesStats возвращает количество сделок и суммарный PNL за период;
// нулевой диапазон (from.IsZero()) означает "за все время"
func (r *StatsRepository) getTradesStats(from, to time.Time) (int, float64, error) {
	var count int
	var pnl float64

	if from.IsZero() {
		err := r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(pnl), 0) FROM trades`).Scan(&count, &pnl)
		return count, pnl, err
	}

	err := r.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(pnl), 0) FROM trades WHERE exit_time >= $1 AND exit_time <= $2`,
		from, to,
	).Scan(&count, &pnl)
	return count, pnl, err
}

// GetTopMarketsByTrades возвращает топ рынков по количеству сделок
func (r *StatsRepository) GetTopMarketsByTrades(limit int) ([]models.MarketStat, error) {
	query := `SELECT market_id, venue, COUNT(*) as trade_count FROM trades GROUP BY market_id, venue ORDER BY trade_count DESC LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.MarketStat
	for rows.Next() {
		var s models.MarketStat
		if err := rows.Scan(&s.MarketID, &s.Venue, &s.Value); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetTopMarketsByProfit возвращает топ прибыльных рынков
func (r *StatsRepository) GetTopMarketsByProfit(limit int) ([]models.MarketStat, error) {
	query := `SELECT market_id, venue, SUM(pnl) as total_pnl FROM trades GROUP BY market_id, venue HAVING SUM(pnl) > 0 ORDER BY total_pnl DESC LIMIT $1`
	return r.queryMarketStats(query, limit)
}

// GetTopMarketsByLoss возвращает топ убыточных рынков
func (r *StatsRepository) GetTopMarketsByLoss(limit int) ([]models.MarketStat, error) {
	query := `SELECT market_id, venue, SUM(pnl) as total_pnl FROM trades GROUP BY market_id, venue HAVING SUM(pnl) < 0 ORDER BY total_pnl ASC LIMIT $1`
	return r.queryMarketStats(query, limit)
}

func (r *StatsRepository) queryMarketStats(query string, limit int) ([]models.MarketStat, error) {
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.MarketStat
	for rows.Next() {
		var s models.MarketStat
		if err := rows.Scan(&s.MarketID, &s.Venue, &s.Value); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// IncrementOpportunitiesDetected увеличивает счетчик обнаруженных возможностей
func (r *StatsRepository) IncrementOpportunitiesDetected() error {
	return r.incrementCounter("opportunities_detected")
}

// IncrementOpportunitiesExecuted увеличивает счетчик исполненных возможностей
func (r *StatsRepository) IncrementOpportunitiesExecuted() error {
	return r.incrementCounter("opportunities_executed")
}

// IncrementRebalancesTriggered увеличивает счетчик запусков ребалансировки
func (r *StatsRepository) IncrementRebalancesTriggered() error {
	return r.incrementCounter("rebalances_triggered")
}

func (r *StatsRepository) incrementCounter(column string) error {
	query := `
		INSERT INTO stats_counters (id, ` + column + `) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET ` + column + ` = stats_counters.` + column + ` + 1`
	_, err := r.db.Exec(query)
	return err
}

func (r *StatsRepository) getCounters() (detected, executed, rebalances int, err error) {
	row := r.db.QueryRow(`SELECT opportunities_detected, opportunities_executed, rebalances_triggered FROM stats_counters WHERE id = 1`)
	err = row.Scan(&detected, &executed, &rebalances)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, 0, nil
	}
	return detected, executed, rebalances, err
}

// GetStats считает полный агрегат статистики за все периоды
func (r *StatsRepository) GetStats() (*models.Stats, error) {
	now := time.Now()
	dayStart := now.Truncate(24 * time.Hour)
	weekStart := dayStart.AddDate(0, 0, -int(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	totalTrades, totalPnl, err := r.getTradesStats(time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	todayTrades, todayPnl, err := r.getTradesStats(dayStart, now)
	if err != nil {
		return nil, err
	}
	weekTrades, weekPnl, err := r.getTradesStats(weekStart, now)
	if err != nil {
		return nil, err
	}
	monthTrades, monthPnl, err := r.getTradesStats(monthStart, now)
	if err != nil {
		return nil, err
	}

	detected, executed, rebalances, err := r.getCounters()
	if err != nil {
		return nil, err
	}

	topByTrades, err := r.GetTopMarketsByTrades(5)
	if err != nil {
		return nil, err
	}
	topByProfit, err := r.GetTopMarketsByProfit(5)
	if err != nil {
		return nil, err
	}
	topByLoss, err := r.GetTopMarketsByLoss(5)
	if err != nil {
		return nil, err
	}

	return &models.Stats{
		TotalTrades:           totalTrades,
		TotalPnl:              totalPnl,
		TodayTrades:           todayTrades,
		TodayPnl:              todayPnl,
		WeekTrades:            weekTrades,
		WeekPnl:               weekPnl,
		MonthTrades:           monthTrades,
		MonthPnl:              monthPnl,
		OpportunitiesDetected: detected,
		OpportunitiesExecuted: executed,
		RebalancesTriggered:   rebalances,
		TopMarketsByTrades:    topByTrades,
		TopMarketsByProfit:    topByProfit,
		TopMarketsByLoss:      topByLoss,
	}, nil
}

// ResetCounters очищает историю сделок и обнуляет счетчики событий
func (r *StatsRepository) ResetCounters() error {
	if _, err := r.db.Exec(`DELETE FROM trades`); err != nil {
		return err
	}
	_, err := r.db.Exec(`UPDATE stats_counters SET opportunities_detected = 0, opportunities_executed = 0, rebalances_triggered = 0 WHERE id = 1`)
	return err
}

// DeleteOlderThan удаляет сделки старше указанной даты
func (r *StatsRepository) DeleteOlderThan(threshold time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trades WHERE exit_time < $1`, threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
