package handlers

import (
	"encoding/json"
	"net/http"

	"wardrobe-backend/internal/models"
	"wardrobe-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// DebugHandler exposes store contents and seeding for development
type DebugHandler struct {
	wardrobe *services.WardrobeService
}

// NewDebugHandler creates a new debug handler
func NewDebugHandler(wardrobe *services.WardrobeService) *DebugHandler {
	return &DebugHandler{wardrobe: wardrobe}
}

// UsersResponse summarizes every stored user by email
type UsersResponse struct {
	UserCount int                           `json:"userCount"`
	Users     map[string]models.SyncSummary `json:"users"`
}

// AddDataRequest represents the body of the seeding endpoint
type AddDataRequest struct {
	Email string `json:"email"`
	Data  struct {
		Collection string          `json:"collection"`
		Items      json.RawMessage `json:"items"`
	} `json:"data"`
}

// AddDataResponse represents the response of the seeding endpoint
type AddDataResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// ListUsers handles GET /debug/users
func (h *DebugHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.wardrobe.Users(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	resp := UsersResponse{UserCount: len(users), Users: make(map[string]models.SyncSummary, len(users))}
	for _, u := range users {
		resp.Users[u.Email] = models.Summarize(u)
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetUser handles GET /debug/users/{id}
func (h *DebugHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.wardrobe.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// AddData handles POST /admin/add-data
func (h *DebugHandler) AddData(w http.ResponseWriter, r *http.Request) {
	var req AddDataRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	user, err := h.wardrobe.Seed(r.Context(), req.Email, req.Data.Collection, req.Data.Items)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AddDataResponse{
		Success: true,
		Message: "Data added to " + req.Data.Collection,
		User:    user,
	})
}
