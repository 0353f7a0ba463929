package handlers

import (
	"net/http"

	"wardrobe-backend/internal/services"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	wardrobe *services.WardrobeService
}

// NewUserHandler creates a new user handler
func NewUserHandler(wardrobe *services.WardrobeService) *UserHandler {
	return &UserHandler{wardrobe: wardrobe}
}

// FindOrCreateRequest represents the request body for find-or-create
type FindOrCreateRequest struct {
	Email string `json:"email"`
}

// UserRef is the public identity of a user
type UserRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// FindOrCreateResponse represents the response of find-or-create
type FindOrCreateResponse struct {
	Success bool    `json:"success"`
	User    UserRef `json:"user"`
}

// FindOrCreate handles POST /users/findOrCreate
func (h *UserHandler) FindOrCreate(w http.ResponseWriter, r *http.Request) {
	var req FindOrCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.wardrobe.FindOrCreate(r.Context(), req.Email)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, FindOrCreateResponse{
		Success: true,
		User:    UserRef{ID: user.ID, Email: user.Email},
	})
}
