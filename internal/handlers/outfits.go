package handlers

import (
	"net/http"
	"time"

	"wardrobe-backend/internal/apperror"
	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// OutfitHandler handles outfit and crush HTTP requests
type OutfitHandler struct {
	wardrobe *services.WardrobeService
}

// NewOutfitHandler creates a new outfit handler
func NewOutfitHandler(wardrobe *services.WardrobeService) *OutfitHandler {
	return &OutfitHandler{wardrobe: wardrobe}
}

// OutfitRequest represents the body of save-outfit and crush-outfit
type OutfitRequest struct {
	Outfit *models.OutfitPieces `json:"outfit"`
	Date   *time.Time           `json:"date"`
}

// SaveOutfit handles POST /users/{id}/saveOutfit
func (h *OutfitHandler) SaveOutfit(w http.ResponseWriter, r *http.Request) {
	h.addOutfit(w, r, models.CollectionOutfits, "Outfit saved successfully")
}

// CrushOutfit handles POST /users/{id}/crushOutfit
func (h *OutfitHandler) CrushOutfit(w http.ResponseWriter, r *http.Request) {
	h.addOutfit(w, r, models.CollectionCrushes, "Outfit added to crushes")
}

func (h *OutfitHandler) addOutfit(w http.ResponseWriter, r *http.Request, collection, message string) {
	var req OutfitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Outfit == nil {
		respondError(w, apperror.ValidationFailed("outfit", "outfit is required"))
		return
	}

	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}

	outfit := models.FromPieces(*req.Outfit, date)
	if _, err := h.wardrobe.AddOutfit(r.Context(), chi.URLParam(r, "id"), collection, outfit); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Success: true, Message: message})
}

// ListCrushes handles GET /users/{id}/crushes
func (h *OutfitHandler) ListCrushes(w http.ResponseWriter, r *http.Request) {
	crushes, err := h.wardrobe.ListCrushes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, crushes)
}
