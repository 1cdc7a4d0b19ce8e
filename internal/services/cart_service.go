package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/storage"
)

const localCartKeyPrefix = "cart_"

// localCartKey qualifies the cart mirror key by owner so guest and
// authenticated carts never collide in local storage.
func localCartKey(ownerID string) string {
	return localCartKeyPrefix + ownerID
}

// CartService loads, mutates and persists the cart of the effective identity.
// The in-memory cart is bound to the identity's state key; whenever the key
// changes the old cart is discarded from memory before the new identity's
// cart is loaded, so one identity's items never show up under another.
//
// Every mutation dual-writes: the remote cart document plus an
// identity-qualified local mirror. A remote failure still writes the mirror,
// and the dirty flag clears either way.
type CartService struct {
	identity *IdentityService
	carts    repositories.CartRepository
	local    storage.LocalStore
	logger   zerolog.Logger

	mu       sync.Mutex
	current  *models.Cart
	boundKey string
	dirty    bool
}

// NewCartService creates a new CartService.
func NewCartService(identity *IdentityService, carts repositories.CartRepository, local storage.LocalStore, logger zerolog.Logger) *CartService {
	return &CartService{
		identity: identity,
		carts:    carts,
		local:    local,
		logger:   logger,
	}
}

// Snapshot returns a copy of the effective identity's cart, loading it first
// if needed. Enables guest mode lazily when no identity is effective yet.
func (s *CartService) Snapshot(ctx context.Context) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLoaded(ctx)
	return cart.Clone(), nil
}

// AddItem merges a product into the cart: quantities of an existing line are
// incremented and its image reference refreshed; new products are appended.
// Quantities below 1 are a no-op.
func (s *CartService) AddItem(ctx context.Context, product *models.Product, quantity int) (Durability, error) {
	if quantity < 1 {
		return DurabilityNone, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLoaded(ctx)
	cart.Add(models.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Image:     product.Image,
	})
	s.dirty = true
	return s.persist(ctx), nil
}

// RemoveItem drops a product line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, productID string) (Durability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLoaded(ctx)
	before := len(cart.Items)
	cart.Remove(productID)
	if len(cart.Items) == before {
		return DurabilityNone, nil
	}
	s.dirty = true
	return s.persist(ctx), nil
}

// SetQuantity replaces the quantity of an existing line. Quantities below 1
// are rejected as a no-op; removal is RemoveItem's job.
func (s *CartService) SetQuantity(ctx context.Context, productID string, quantity int) (Durability, error) {
	if quantity < 1 {
		return DurabilityNone, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLoaded(ctx)
	if !cart.SetQuantity(productID, quantity) {
		return DurabilityNone, nil
	}
	s.dirty = true
	return s.persist(ctx), nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context) (Durability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureLoaded(ctx)
	if len(cart.Items) == 0 {
		return DurabilityNone, nil
	}
	cart.Clear()
	s.dirty = true
	return s.persist(ctx), nil
}

// ensureLoaded returns the cart bound to the current identity, discarding any
// cart that belonged to a previous identity first. Callers must hold s.mu.
func (s *CartService) ensureLoaded(ctx context.Context) *models.Cart {
	key := s.identity.StateKey()
	if key != s.boundKey {
		// Identity changed: drop the previous cart from memory before
		// anything of the new identity is loaded.
		s.current = nil
		s.dirty = false
		s.boundKey = key
	}
	if s.current != nil {
		return s.current
	}

	ownerID, ok := s.identity.EffectiveUserID()
	if !ok {
		// Guest profiles are provisioned lazily on first cart activity.
		ownerID, _ = s.identity.EnableGuestMode(ctx)
		s.boundKey = s.identity.StateKey()
	}

	s.current = s.load(ctx, ownerID)
	return s.current
}

// load resolves the cart for an owner: remote document first, then the local
// mirror (adopted and opportunistically written back), then an empty cart.
func (s *CartService) load(ctx context.Context, ownerID string) *models.Cart {
	cart, err := s.carts.Get(ctx, ownerID)
	if err == nil {
		return cart
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		s.logger.Warn().Err(err).Str("owner_id", ownerID).
			Msg("remote cart fetch failed, trying local mirror")
	}

	raw, lErr := s.local.Get(localCartKey(ownerID))
	if lErr == nil {
		var mirror models.Cart
		jErr := json.Unmarshal([]byte(raw), &mirror)
		if jErr == nil {
			mirror.OwnerID = ownerID
			// Migration-on-read: push the mirror to the remote store, outcome
			// ignored.
			if upErr := s.carts.Upsert(ctx, &mirror); upErr != nil {
				s.logger.Debug().Err(upErr).Str("owner_id", ownerID).
					Msg("mirror write-back failed")
			}
			return &mirror
		}
		s.logger.Warn().Err(jErr).Str("owner_id", ownerID).Msg("discarding corrupt cart mirror")
	}

	return models.NewCart(ownerID)
}

// persist writes the dirty cart remotely and mirrors it locally. The mirror
// is written even when the remote write fails, and the dirty flag clears
// regardless, so there is no retry loop. Callers must hold s.mu.
func (s *CartService) persist(ctx context.Context) Durability {
	if !s.dirty || s.current == nil {
		return DurabilityNone
	}
	cart := s.current
	cart.UpdatedAt = time.Now()

	durability := DurabilityRemote
	if err := s.carts.Upsert(ctx, cart); err != nil {
		s.logger.Warn().Err(err).Str("owner_id", cart.OwnerID).
			Msg("remote cart write failed, keeping local mirror only")
		durability = DurabilityLocal
	}

	payload, err := json.Marshal(cart)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_id", cart.OwnerID).Msg("failed to encode cart mirror")
		if durability == DurabilityLocal {
			durability = DurabilityNone
		}
	} else if err := s.local.Set(localCartKey(cart.OwnerID), string(payload)); err != nil {
		s.logger.Warn().Err(err).Str("owner_id", cart.OwnerID).Msg("failed to write cart mirror")
		if durability == DurabilityLocal {
			durability = DurabilityNone
		}
	}

	s.dirty = false
	return durability
}
