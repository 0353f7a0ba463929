package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrProcessing      = errors.New("processing error")
	ErrInvalidCategory = errors.New("invalid category")
)

// AppError carries a sentinel kind plus the message shown to API clients.
type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable message
	Field   string // optional request field that caused the error
	Cause   error  // optional underlying failure, never rendered to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with key %s", resource, key),
	}
}

// InvalidCategory reports a category outside the five garment categories.
func InvalidCategory(category string) *AppError {
	return &AppError{
		Err:     ErrInvalidCategory,
		Message: fmt.Sprintf("invalid category %q", category),
		Field:   "category",
	}
}

// Processing wraps a failure of the image pipeline. The cause is kept for
// logging; clients only see message.
func Processing(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrProcessing,
		Message: message,
		Cause:   cause,
	}
}
