package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"wardrobe-backend/internal/apperror"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// MessageResponse is the body of operations that only report success
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondError maps an application error to its status code and sends it.
// Errors without a kind are reported as a generic 500.
func respondError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Msg("Unhandled error")
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	kind := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrInvalidCategory):
		status, kind = http.StatusBadRequest, "invalid_category"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrProcessing):
		kind = "processing_error"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", kind).Msg("Request failed")
	}

	respondJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.ValidationFailed("body", "Invalid request body")
	}
	return nil
}
