package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"predictarb/internal/models"
	"predictarb/internal/service"
)

// BlacklistHandler отвечает за управление черным списком рынков.
//
// Endpoints:
// - GET /api/v1/blacklist - получение черного списка
// - GET /api/v1/blacklist/search?asset=BTC - поиск по активу
// - POST /api/v1/blacklist - добавление записи
// - DELETE /api/v1/blacklist/{venue}/{condition_id} - удаление записи
type BlacklistHandler struct {
	blacklistService *service.BlacklistService
}

// NewBlacklistHandler создает новый BlacklistHandler с внедрением зависимости.
func NewBlacklistHandler(blacklistService *service.BlacklistService) *BlacklistHandler {
	return &BlacklistHandler{
		blacklistService: blacklistService,
	}
}

type addToBlacklistRequest struct {
	Venue       string `json:"venue"`
	ConditionID string `json:"condition_id"`
	Asset       string `json:"asset,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type blacklistEntryResponse struct {
	ID          int    `json:"id"`
	Venue       string `json:"venue"`
	ConditionID string `json:"condition_id"`
	Asset       string `json:"asset,omitempty"`
	Reason      string `json:"reason,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type blacklistResponse struct {
	Entries []blacklistEntryResponse `json:"entries"`
	Total   int                      `json:"total"`
}

func toBlacklistEntryResponse(e *models.BlacklistEntry) blacklistEntryResponse {
	return blacklistEntryResponse{
		ID:          e.ID,
		Venue:       e.Venue,
		ConditionID: e.ConditionID,
		Asset:       e.Asset,
		Reason:      e.Reason,
		CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// GetBlacklist возвращает весь черный список.
//
// GET /api/v1/blacklist
func (h *BlacklistHandler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.blacklistService.GetBlacklist()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get blacklist: "+err.Error())
		return
	}

	dtos := make([]blacklistEntryResponse, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toBlacklistEntryResponse(e))
	}

	respondJSON(w, http.StatusOK, blacklistResponse{Entries: dtos, Total: len(dtos)})
}

// SearchBlacklist ищет записи черного списка по активу.
//
// GET /api/v1/blacklist/search?asset=BTC
func (h *BlacklistHandler) SearchBlacklist(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")

	entries, err := h.blacklistService.SearchByAsset(asset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to search blacklist: "+err.Error())
		return
	}

	dtos := make([]blacklistEntryResponse, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toBlacklistEntryResponse(e))
	}

	respondJSON(w, http.StatusOK, blacklistResponse{Entries: dtos, Total: len(dtos)})
}

// AddToBlacklist добавляет рынок в черный список.
//
// POST /api/v1/blacklist
//
// Request Body:
//
//	{"venue": "polymarket", "condition_id": "0xabc...", "asset": "BTC", "reason": "thin book"}
func (h *BlacklistHandler) AddToBlacklist(w http.ResponseWriter, r *http.Request) {
	var req addToBlacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry, err := h.blacklistService.AddToBlacklist(req.Venue, req.ConditionID, req.Asset, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBlacklistVenueEmpty), errors.Is(err, service.ErrBlacklistConditionIDEmpty):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrBlacklistMarketExists):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to add to blacklist: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusCreated, toBlacklistEntryResponse(entry))
}

// RemoveFromBlacklist удаляет рынок из черного списка.
//
// DELETE /api/v1/blacklist/{venue}/{condition_id}
func (h *BlacklistHandler) RemoveFromBlacklist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	venue := vars["venue"]
	conditionID := vars["condition_id"]

	err := h.blacklistService.RemoveFromBlacklist(venue, conditionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBlacklistVenueEmpty), errors.Is(err, service.ErrBlacklistConditionIDEmpty):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrBlacklistEntryNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to remove from blacklist: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "removed from blacklist"})
}

type updateReasonRequest struct {
	Reason string `json:"reason"`
}

// UpdateReason обновляет причину добавления в черный список.
//
// PATCH /api/v1/blacklist/{venue}/{condition_id}
func (h *BlacklistHandler) UpdateReason(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	venue := vars["venue"]
	conditionID := vars["condition_id"]

	var req updateReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	err := h.blacklistService.UpdateReason(venue, conditionID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBlacklistVenueEmpty), errors.Is(err, service.ErrBlacklistConditionIDEmpty):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrBlacklistEntryNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to update reason: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "reason updated"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: strings.TrimSpace(message)})
}
