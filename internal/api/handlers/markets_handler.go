package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"predictarb/internal/registry"
)

// MarketsHandler exposes a read-only view of the market registry.
//
// Endpoints:
// - GET /api/v1/markets?venue=polymarket&horizon_hours=24&limit=100
// - GET /api/v1/markets/{venue}/{condition_id}
type MarketsHandler struct {
	registry *registry.Registry
}

// NewMarketsHandler создает новый MarketsHandler с внедрением зависимости.
func NewMarketsHandler(reg *registry.Registry) *MarketsHandler {
	return &MarketsHandler{registry: reg}
}

// GetActiveMarkets возвращает активные рынки, истекающие в пределах окна.
//
// GET /api/v1/markets?venue=polymarket&horizon_hours=24&limit=100
func (h *MarketsHandler) GetActiveMarkets(w http.ResponseWriter, r *http.Request) {
	venue := r.URL.Query().Get("venue")

	horizonHours := 24
	if hStr := r.URL.Query().Get("horizon_hours"); hStr != "" {
		if parsed, err := strconv.Atoi(hStr); err == nil && parsed > 0 {
			horizonHours = parsed
		}
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	markets := h.registry.ActiveMarkets(venue, time.Now(), time.Duration(horizonHours)*time.Hour, limit)
	respondJSON(w, http.StatusOK, markets)
}

// GetMarket возвращает рынок по venue и condition_id.
//
// GET /api/v1/markets/{venue}/{condition_id}
func (h *MarketsHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	market, ok := h.registry.ByVenueCondition(vars["venue"], vars["condition_id"])
	if !ok {
		respondError(w, http.StatusNotFound, "market not found")
		return
	}

	respondJSON(w, http.StatusOK, market)
}
