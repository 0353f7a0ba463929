package handlers

import (
	"net/http"

	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ItemHandler handles garment HTTP requests
type ItemHandler struct {
	wardrobe *services.WardrobeService
}

// NewItemHandler creates a new item handler
func NewItemHandler(wardrobe *services.WardrobeService) *ItemHandler {
	return &ItemHandler{wardrobe: wardrobe}
}

// AddItemRequest represents the request body for adding a garment
type AddItemRequest struct {
	Category string       `json:"category"`
	ImageURL string       `json:"imageUrl"`
	Name     string       `json:"name"`
	Brand    string       `json:"brand"`
	Price    models.Price `json:"price"`
}

// AddItemResponse represents the response after adding a garment
type AddItemResponse struct {
	Success  bool         `json:"success"`
	Category string       `json:"category"`
	Item     *models.Item `json:"item"`
}

// DeleteItemRequest represents the request body for deleting a garment.
// ItemID may hold either the item id or its filename.
type DeleteItemRequest struct {
	Category string `json:"category"`
	ItemID   string `json:"itemId"`
}

// AddItem handles POST /users/{id}/addItem
func (h *ItemHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	item, err := h.wardrobe.Upload(r.Context(), chi.URLParam(r, "id"), services.UploadRequest{
		Category: req.Category,
		ImageURL: req.ImageURL,
		ItemMetadata: services.ItemMetadata{
			Name:  req.Name,
			Brand: req.Brand,
			Price: string(req.Price),
		},
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AddItemResponse{
		Success:  true,
		Category: req.Category,
		Item:     item,
	})
}

// ListItems handles GET /users/{id}/items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.wardrobe.ListItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

// DeleteItem handles POST /users/{id}/deleteItem
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	var req DeleteItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if _, err := h.wardrobe.RemoveItem(r.Context(), chi.URLParam(r, "id"), req.Category, req.ItemID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Item deleted successfully"})
}
