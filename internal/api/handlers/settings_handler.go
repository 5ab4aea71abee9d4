package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"predictarb/internal/models"
	"predictarb/internal/service"
)

// SettingsHandler отвечает за управление глобальными настройками оператора.
//
// Endpoints:
// - GET /api/v1/settings - получение текущих настроек
// - PATCH /api/v1/settings - обновление настроек
// - PATCH /api/v1/settings/notifications - обновление предпочтений уведомлений
// - PATCH /api/v1/settings/dry-run - переключение режима dry-run
// - POST /api/v1/settings/reset - сброс к значениям по умолчанию
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler создает новый SettingsHandler с внедрением зависимости.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
	}
}

// GetSettings возвращает текущие глобальные настройки.
//
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetSettings()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get settings: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings обновляет глобальные настройки.
//
// PATCH /api/v1/settings
//
// Request Body (все поля опциональны):
//
//	{
//	  "min_profit_absolute": "0.02",
//	  "liquidity_threshold": "50",
//	  "max_total_exposure": "1000",
//	  "enable_sequential_placement": true,
//	  "dry_run": false
//	}
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	settings, err := h.settingsService.UpdateSettings(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidMinProfitAbsolute),
			errors.Is(err, service.ErrInvalidLiquidityThreshold),
			errors.Is(err, service.ErrInvalidMaxTotalExposure):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to update settings: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// UpdateNotificationPrefs обновляет предпочтения по типам уведомлений.
//
// PATCH /api/v1/settings/notifications
func (h *SettingsHandler) UpdateNotificationPrefs(w http.ResponseWriter, r *http.Request) {
	var prefs models.NotificationPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.settingsService.UpdateNotificationPrefs(prefs); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update notification preferences: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "notification preferences updated"})
}

type updateDryRunRequest struct {
	DryRun bool `json:"dry_run"`
}

// UpdateDryRun сохраняет флаг dry_run в настройках оператора.
//
// PATCH /api/v1/settings/dry-run
func (h *SettingsHandler) UpdateDryRun(w http.ResponseWriter, r *http.Request) {
	var req updateDryRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.settingsService.UpdateDryRun(req.DryRun); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update dry-run mode: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"dry_run": req.DryRun})
}

// ResetToDefaults сбрасывает все настройки к значениям по умолчанию.
//
// POST /api/v1/settings/reset
func (h *SettingsHandler) ResetToDefaults(w http.ResponseWriter, r *http.Request) {
	if err := h.settingsService.ResetToDefaults(); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reset settings: "+err.Error())
		return
	}

	settings, err := h.settingsService.GetSettings()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get settings after reset: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, settings)
}
