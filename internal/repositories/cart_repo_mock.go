package repositories

import (
	"context"
	"sync"

	"storefront/internal/models"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	carts map[string]models.Cart
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]models.Cart),
	}
}

// Get returns the cart owned by ownerID, or ErrNotFound.
func (r *MockCartRepository) Get(ctx context.Context, ownerID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := cart.Clone()
	return clone, nil
}

// Upsert writes the cart document, creating it if absent.
func (r *MockCartRepository) Upsert(ctx context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cart.OwnerID] = *cart.Clone()
	return nil
}

// Delete removes the cart owned by ownerID.
func (r *MockCartRepository) Delete(ctx context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, ownerID)
	return nil
}
