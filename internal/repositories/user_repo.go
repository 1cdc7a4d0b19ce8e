package repositories

import (
	"context"

	"storefront/internal/models"
)

// UserRepository defines access to the users collection, which holds both
// authenticated profiles and lazily created guest profile records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) error
}
