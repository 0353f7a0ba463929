package repository

import (
	"context"
	"fmt"

	"wardrobe-backend/internal/models"
)

// UserStore persists user documents. Every backend implements the same
// contract: lookups return apperror.ErrNotFound when nothing matches, Create
// and EnsureExists return apperror.ErrConflict when the email is taken, and
// returned users are copies owned by the caller until passed to Save.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, email string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	EnsureExists(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Close() error
}

// ProvisionedEmail is the address given to users created by EnsureExists.
func ProvisionedEmail(id string) string {
	return fmt.Sprintf("user_%s@example.com", id)
}
