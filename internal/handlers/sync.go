package handlers

import (
	"net/http"

	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// SyncHandler handles client snapshot reconciliation
type SyncHandler struct {
	wardrobe *services.WardrobeService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(wardrobe *services.WardrobeService) *SyncHandler {
	return &SyncHandler{wardrobe: wardrobe}
}

// SyncResponse represents the response of a sync
type SyncResponse struct {
	Success  bool                `json:"success"`
	UserData *models.SyncSummary `json:"userData"`
}

// Sync handles POST /users/{id}/sync
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req services.SyncRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	summary, err := h.wardrobe.Sync(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SyncResponse{Success: true, UserData: summary})
}
