package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"predictarb/internal/models"
	"predictarb/internal/service"
)

// StatsHandler обрабатывает HTTP запросы для статистики исполнения.
//
// Endpoints:
// - GET /api/v1/stats - получить агрегированную статистику
// - GET /api/v1/stats/top-markets?metric=trades|profit|loss&limit=5 - топ рынков по метрике
// - GET /api/v1/stats/markets/{market_id}/trades - история сделок по рынку
// - POST /api/v1/stats/reset - сброс счетчиков статистики
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler создает новый StatsHandler с внедрением зависимости.
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// GetStats возвращает агрегированную статистику исполнения.
//
// GET /api/v1/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get stats: "+err.Error())
		return
	}

	if stats.TopMarketsByTrades == nil {
		stats.TopMarketsByTrades = []models.MarketStat{}
	}
	if stats.TopMarketsByProfit == nil {
		stats.TopMarketsByProfit = []models.MarketStat{}
	}
	if stats.TopMarketsByLoss == nil {
		stats.TopMarketsByLoss = []models.MarketStat{}
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetTopMarkets возвращает топ рынков по указанной метрике.
//
// GET /api/v1/stats/top-markets?metric=trades|profit|loss&limit=5
func (h *StatsHandler) GetTopMarkets(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "trades"
	}

	validMetrics := map[string]bool{"trades": true, "profit": true, "loss": true}
	if !validMetrics[metric] {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":         "invalid metric",
			"valid_metrics": []string{"trades", "profit", "loss"},
		})
		return
	}

	limit := 5
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 20 {
				limit = 20
			}
		}
	}

	topMarkets, err := h.statsService.GetTopMarkets(metric, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get top markets: "+err.Error())
		return
	}

	if topMarkets == nil {
		topMarkets = []models.MarketStat{}
	}

	respondJSON(w, http.StatusOK, topMarkets)
}

// GetTradesByMarket возвращает историю сделок по рынку.
//
// GET /api/v1/stats/markets/{market_id}/trades?limit=100
func (h *StatsHandler) GetTradesByMarket(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["market_id"]

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	trades, err := h.statsService.GetTradesByMarket(marketID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get trades: "+err.Error())
		return
	}

	if trades == nil {
		trades = []*models.TradeRecord{}
	}

	respondJSON(w, http.StatusOK, trades)
}

// ResetStats сбрасывает счетчики статистики.
//
// POST /api/v1/stats/reset
//
// ВАЖНО: это действие необратимо, удаляет все записи о сделках.
func (h *StatsHandler) ResetStats(w http.ResponseWriter, r *http.Request) {
	if err := h.statsService.ResetStats(); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reset stats: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "stats reset successfully"})
}
