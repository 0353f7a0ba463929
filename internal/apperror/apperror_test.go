package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("user", "u1"), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("email", "email is required"), ErrValidation, true},
		{"Conflict wraps ErrConflict", Conflict("user", "a@x.com"), ErrConflict, true},
		{"InvalidCategory wraps ErrInvalidCategory", InvalidCategory("hats"), ErrInvalidCategory, true},
		{"Processing wraps ErrProcessing", Processing("failed to process image", errors.New("boom")), ErrProcessing, true},
		{"NotFound does not match ErrValidation", NotFound("user", "u1"), ErrValidation, false},
		{"wrapped twice still matches", fmt.Errorf("outer: %w", NotFound("item", "i1")), ErrNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMatch, errors.Is(tt.err, tt.target))
		})
	}
}

func TestProcessingKeepsCause(t *testing.T) {
	cause := errors.New("upstream timeout")
	err := Processing("failed to process image", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to process image", err.Message)
	assert.Equal(t, "failed to process image: upstream timeout", err.Error())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "user not found with id u1", NotFound("user", "u1").Error())
	assert.Equal(t, "user conflict with key a@x.com", Conflict("user", "a@x.com").Error())
	assert.Equal(t, `invalid category "hats"`, InvalidCategory("hats").Error())
	assert.Equal(t, "category", InvalidCategory("hats").Field)
}
