package service

import (
	"time"

	"predictarb/internal/models"
	"predictarb/internal/repository"
)

// StatsBroadcaster - интерфейс для отправки обновлений статистики через WebSocket
type StatsBroadcaster interface {
	BroadcastStatsUpdate(stats *models.Stats)
}

// StatsService предоставляет бизнес-логику для работы со статистикой.
//
// Функции:
// - GetStats: получить полную агрегированную статистику
// - GetTopMarkets: получить топ-5 рынков по указанной метрике
// - ResetStats: сброс счетчиков статистики
// - RecordTradeCompletion: записать завершенную сделку
//
// WebSocket интеграция: после каждой записи сделки отправляет statsUpdate
type StatsService struct {
	statsRepo *repository.StatsRepository
	wsHub     StatsBroadcaster
}

// NewStatsService создает новый экземпляр StatsService
func NewStatsService(statsRepo *repository.StatsRepository) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast статистики.
func (s *StatsService) SetWebSocketHub(hub StatsBroadcaster) {
	s.wsHub = hub
}

// GetStats возвращает полную агрегированную статистику.
func (s *StatsService) GetStats() (*models.Stats, error) {
	return s.statsRepo.GetStats()
}

// GetTopMarkets возвращает топ-5 рынков по указанной метрике.
//
// Поддерживаемые метрики:
// - "trades": рынки с наибольшим количеством сделок
// - "profit": рынки с наибольшей прибылью (PNL > 0)
// - "loss": рынки с наибольшими убытками (PNL < 0)
func (s *StatsService) GetTopMarkets(metric string, limit int) ([]models.MarketStat, error) {
	if limit <= 0 {
		limit = 5
	}

	switch metric {
	case "trades":
		return s.statsRepo.GetTopMarketsByTrades(limit)
	case "profit":
		return s.statsRepo.GetTopMarketsByProfit(limit)
	case "loss":
		return s.statsRepo.GetTopMarketsByLoss(limit)
	default:
		return s.statsRepo.GetTopMarketsByTrades(limit)
	}
}

// ResetStats сбрасывает все счетчики статистики.
//
// ВАЖНО: это действие необратимо, удаляет все записи из таблицы trades
// и обнуляет счетчики событий. После сброса отправляет statsUpdate через
// WebSocket.
func (s *StatsService) ResetStats() error {
	if err := s.statsRepo.ResetCounters(); err != nil {
		return err
	}

	if s.wsHub != nil {
		stats, err := s.statsRepo.GetStats()
		if err == nil && stats != nil {
			s.wsHub.BroadcastStatsUpdate(stats)
		}
	}

	return nil
}

// RecordTradeCompletion записывает завершенную арбитражную сделку.
//
// Ни конвейер, ни исполнитель его не вызывают: сделка записывается только
// явным вызовом. Обновляет таблицу trades и отправляет statsUpdate через WebSocket.
func (s *StatsService) RecordTradeCompletion(
	marketID, venue, token string,
	entryTime, exitTime time.Time,
	pnl float64,
) error {
	if err := s.statsRepo.RecordTrade(marketID, venue, token, entryTime, exitTime, pnl); err != nil {
		return err
	}

	if err := s.statsRepo.IncrementOpportunitiesExecuted(); err != nil {
		return err
	}

	if s.wsHub != nil {
		stats, err := s.statsRepo.GetStats()
		if err == nil && stats != nil {
			s.wsHub.BroadcastStatsUpdate(stats)
		}
	}

	return nil
}

// RecordOpportunityDetected увеличивает счетчик обнаруженных возможностей.
//
// Вызывается конвейером (pipeline) при каждом новом сигнале, независимо от того,
// был ли он в итоге исполнен.
func (s *StatsService) RecordOpportunityDetected() error {
	return s.statsRepo.IncrementOpportunitiesDetected()
}

// RecordRebalanceTriggered увеличивает счетчик запусков ребалансировки.
func (s *StatsService) RecordRebalanceTriggered() error {
	return s.statsRepo.IncrementRebalancesTriggered()
}

// GetTradesByMarket возвращает историю сделок для конкретного рынка.
func (s *StatsService) GetTradesByMarket(marketID string, limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.statsRepo.GetTradesByMarketID(marketID, limit)
}

// GetTradesInRange возвращает сделки за указанный период.
func (s *StatsService) GetTradesInRange(from, to time.Time, limit int) ([]*models.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.statsRepo.GetTradesInTimeRange(from, to, limit)
}

// GetTotalTradesCount возвращает общее количество сделок.
func (s *StatsService) GetTotalTradesCount() (int, error) {
	return s.statsRepo.Count()
}

// GetPNLByMarket возвращает суммарный PNL по рынку.
func (s *StatsService) GetPNLByMarket(marketID string) (float64, error) {
	return s.statsRepo.GetPNLByMarket(marketID)
}

// CleanupOldTrades удаляет записи старше указанной даты.
func (s *StatsService) CleanupOldTrades(olderThan time.Time) (int64, error) {
	return s.statsRepo.DeleteOlderThan(olderThan)
}
