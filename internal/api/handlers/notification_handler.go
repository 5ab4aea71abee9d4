package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"predictarb/internal/models"
	"predictarb/internal/service"
)

// NotificationHandler отвечает за управление журналом уведомлений.
//
// Endpoints:
// - GET /api/v1/notifications - получение списка уведомлений
// - GET /api/v1/notifications/markets/{market_id} - уведомления по рынку
// - GET /api/v1/notifications/severity/{severity} - уведомления по важности
// - DELETE /api/v1/notifications - очистка журнала уведомлений
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимости.
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

type getNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int                     `json:"total"`
}

func parseLimit(r *http.Request, def int) int {
	limit := def
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

// GetNotifications возвращает последние уведомления.
//
// GET /api/v1/notifications?limit=100
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 100)

	notifications, err := h.notificationService.GetNotifications(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notifications: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, getNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// GetNotificationsByMarket возвращает уведомления для конкретного рынка.
//
// GET /api/v1/notifications/markets/{market_id}?limit=100
func (h *NotificationHandler) GetNotificationsByMarket(w http.ResponseWriter, r *http.Request) {
	marketID := mux.Vars(r)["market_id"]
	limit := parseLimit(r, 100)

	notifications, err := h.notificationService.GetNotificationsByMarket(marketID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notifications: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, getNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// GetNotificationsBySeverity возвращает уведомления заданной важности.
//
// GET /api/v1/notifications/severity/{severity}?limit=100
func (h *NotificationHandler) GetNotificationsBySeverity(w http.ResponseWriter, r *http.Request) {
	severity := mux.Vars(r)["severity"]
	limit := parseLimit(r, 100)

	notifications, err := h.notificationService.GetNotificationsBySeverity(severity, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notifications: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, getNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// ClearNotifications очищает журнал уведомлений.
//
// DELETE /api/v1/notifications
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.notificationService.ClearNotifications(); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clear notifications: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "notifications cleared successfully"})
}
