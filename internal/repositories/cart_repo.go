package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartRepository defines access to the carts collection. Each identity owns at
// most one cart document, keyed by its id.
type CartRepository interface {
	Get(ctx context.Context, ownerID string) (*models.Cart, error)
	Upsert(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, ownerID string) error
}
