package repositories

import (
	"context"
	"time"

	"storefront/internal/models"
)

// OrderRepository defines access to the orders collection.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// ReassignOwner moves every order owned by fromID to toID in one batch,
	// stamping the provenance fields, and returns how many were moved.
	ReassignOwner(ctx context.Context, fromID, toID string, migratedAt time.Time) (int64, error)
}
