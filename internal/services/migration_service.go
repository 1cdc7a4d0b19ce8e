package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/storage"
)

// MigrationService converts a guest into a registered account and carries the
// guest's state over: the remote cart document, orders attributed to the
// guest id, and the local cart mirror. Account creation is the only step that
// can fail the conversion; every migration sub-step is best-effort and merely
// logged on failure.
type MigrationService struct {
	auth     *AuthService
	identity *IdentityService
	carts    repositories.CartRepository
	orders   repositories.OrderRepository
	local    storage.LocalStore
	events   EventPublisher
	logger   zerolog.Logger
}

// NewMigrationService creates a new MigrationService. events may be nil.
func NewMigrationService(
	auth *AuthService,
	identity *IdentityService,
	carts repositories.CartRepository,
	orders repositories.OrderRepository,
	local storage.LocalStore,
	events EventPublisher,
	logger zerolog.Logger,
) *MigrationService {
	return &MigrationService{
		auth:     auth,
		identity: identity,
		carts:    carts,
		orders:   orders,
		local:    local,
		events:   events,
		logger:   logger,
	}
}

// ConvertGuestToUser registers a new account and migrates the prior guest's
// state onto it. A registration failure aborts before any migration and
// leaves the guest markers untouched. Once the account exists, the guest
// markers are cleared no matter how the migration sub-steps fare.
func (s *MigrationService) ConvertGuestToUser(ctx context.Context, email, password, name string) (*models.User, string, error) {
	// Captured before registration; the auth subscription will flip the
	// identity to the new account as a side effect of Register.
	guestID := s.identity.GuestID()

	user, token, err := s.auth.Register(ctx, email, password, name)
	if err != nil {
		return nil, "", err
	}

	// The account exists from here on. Clearing the markers last, via defer,
	// means a failed sub-step still leaves the user on their new account
	// rather than half-guest.
	defer s.identity.ClearGuestMarkers()

	if guestID != "" {
		now := time.Now()
		s.migrateCart(ctx, guestID, user.ID, now)
		s.reassignOrders(ctx, guestID, user.ID, now)
		s.migrateLocalMirror(guestID, user.ID)
		s.publishMigrated(guestID, user.ID, now)
	}

	return user, token, nil
}

// migrateCart copies the guest's remote cart document under the new user id,
// stamped with migration provenance.
func (s *MigrationService) migrateCart(ctx context.Context, guestID, userID string, migratedAt time.Time) {
	cart, err := s.carts.Get(ctx, guestID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn().Err(err).Str("guest_id", guestID).Msg("guest cart fetch failed, skipping cart migration")
		}
		return
	}

	cart.OwnerID = userID
	cart.IsGuestCart = false
	cart.MigratedFrom = guestID
	at := migratedAt
	cart.MigratedAt = &at
	if err := s.carts.Upsert(ctx, cart); err != nil {
		s.logger.Warn().Err(err).Str("guest_id", guestID).Str("user_id", userID).
			Msg("migrated cart write failed")
		return
	}

	s.logger.Info().Str("guest_id", guestID).Str("user_id", userID).
		Int("items", len(cart.Items)).Msg("guest cart migrated")
}

// reassignOrders moves every order owned by the guest id to the new user id
// in one batch.
func (s *MigrationService) reassignOrders(ctx context.Context, guestID, userID string, migratedAt time.Time) {
	moved, err := s.orders.ReassignOwner(ctx, guestID, userID, migratedAt)
	if err != nil {
		s.logger.Warn().Err(err).Str("guest_id", guestID).Str("user_id", userID).
			Msg("order reassignment failed")
		return
	}
	if moved > 0 {
		s.logger.Info().Int64("orders", moved).Str("user_id", userID).Msg("guest orders reassigned")
	}
}

// migrateLocalMirror moves the identity-qualified cart mirror to the new
// user's key and removes the guest-keyed entry.
func (s *MigrationService) migrateLocalMirror(guestID, userID string) {
	raw, err := s.local.Get(localCartKey(guestID))
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("guest_id", guestID).Msg("local cart mirror read failed")
		}
		return
	}

	if err := s.local.Set(localCartKey(userID), raw); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("local cart mirror migration failed")
		return
	}
	if err := s.local.Delete(localCartKey(guestID)); err != nil {
		s.logger.Warn().Err(err).Str("guest_id", guestID).Msg("stale cart mirror removal failed")
	}
}

func (s *MigrationService) publishMigrated(guestID, userID string, migratedAt time.Time) {
	if s.events == nil {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"guest_id":    guestID,
		"user_id":     userID,
		"migrated_at": migratedAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode guest migration event")
		return
	}
	if err := s.events.Publish("storefront", "guest.migrated", body); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to publish guest migration event")
	}
}
