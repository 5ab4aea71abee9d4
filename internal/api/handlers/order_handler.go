package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"predictarb/internal/models"
	"predictarb/internal/service"
)

// OrderHandler предоставляет доступ к истории исполненных ног сделок.
//
// Endpoints:
// - GET /api/v1/orders - последние ордера
// - GET /api/v1/orders/markets/{market_id} - ордера по рынку
// - GET /api/v1/orders/status/{status} - ордера по статусу
// - GET /api/v1/orders/venues/{venue} - ордера по venue
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler создает новый OrderHandler с внедрением зависимости.
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func emptyOrders(orders []*models.OrderRecord) []*models.OrderRecord {
	if orders == nil {
		return []*models.OrderRecord{}
	}
	return orders
}

// GetRecent возвращает последние ордера.
//
// GET /api/v1/orders?limit=100
func (h *OrderHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	orders, err := h.orderService.GetRecent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get orders: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, emptyOrders(orders))
}

// GetByMarket возвращает ордера для конкретного рынка.
//
// GET /api/v1/orders/markets/{market_id}
func (h *OrderHandler) GetByMarket(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["market_id"]

	orders, err := h.orderService.GetByMarket(marketID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get orders: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, emptyOrders(orders))
}

// GetByStatus возвращает ордера с определенным статусом.
//
// GET /api/v1/orders/status/{status}
func (h *OrderHandler) GetByStatus(w http.ResponseWriter, r *http.Request) {
	status := mux.Vars(r)["status"]

	orders, err := h.orderService.GetByStatus(status)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get orders: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, emptyOrders(orders))
}

// GetByVenue возвращает ордера для конкретного venue.
//
// GET /api/v1/orders/venues/{venue}?limit=100
func (h *OrderHandler) GetByVenue(w http.ResponseWriter, r *http.Request) {
	venue := mux.Vars(r)["venue"]
	limit := parseLimit(r, 100)

	orders, err := h.orderService.GetByVenue(venue, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get orders: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, emptyOrders(orders))
}

// GetByID возвращает один ордер по ID.
//
// GET /api/v1/orders/{id}
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.GetByID(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, order)
}
