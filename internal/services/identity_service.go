package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/storage"
)

// IdentityState names the resolution states of the acting identity.
type IdentityState int

const (
	// StateUnresolved: no session and guest mode not yet enabled.
	StateUnresolved IdentityState = iota
	// StateGuest: acting under the locally generated guest id.
	StateGuest
	// StateAuthenticated: acting under an auth-provider identity.
	StateAuthenticated
)

func (s IdentityState) String() string {
	switch s {
	case StateGuest:
		return "guest"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unresolved"
	}
}

// Local storage keys for the guest markers. Cart mirrors use their own
// identity-qualified keys, see cart_service.go.
const (
	localKeyGuestID      = "guest_id"
	localKeyGuestProfile = "guest_profile"
)

// IdentityService resolves the effective acting identity for every cart and
// order operation: the authenticated user when a session is active, the guest
// id when guest mode has been enabled, otherwise nothing. It also lazily
// provisions the guest profile record, degrading to local-only storage when
// the remote store refuses the write.
type IdentityService struct {
	users  repositories.UserRepository
	local  storage.LocalStore
	logger zerolog.Logger

	mu              sync.RWMutex
	state           IdentityState
	userID          string
	role            string
	guestID         string
	guestMode       bool
	guestDurability Durability
}

// NewIdentityService creates the resolver, reads or creates the guest id
// exactly once, and subscribes to session changes. The subscription fires
// immediately with the current session, so the state machine leaves
// StateUnresolved as soon as the auth collaborator reports a session.
func NewIdentityService(auth *AuthService, users repositories.UserRepository, local storage.LocalStore, logger zerolog.Logger) *IdentityService {
	s := &IdentityService{
		users:  users,
		local:  local,
		logger: logger,
		state:  StateUnresolved,
		role:   models.RoleUser,
	}
	s.guestID = s.loadOrCreateGuestID()
	if auth != nil {
		auth.Subscribe(s.handleSessionChange)
	}
	return s
}

// EffectiveUserID returns the id of the acting identity: the authenticated
// user id if a session is active, the guest id if guest mode is enabled,
// otherwise ("", false).
func (s *IdentityService) EffectiveUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.state == StateAuthenticated:
		return s.userID, true
	case s.guestMode:
		return s.guestID, true
	default:
		return "", false
	}
}

// IsGuestMode reports whether the acting identity is the guest id.
func (s *IdentityService) IsGuestMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != StateAuthenticated && s.guestMode
}

// State returns the current resolution state.
func (s *IdentityService) State() IdentityState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentRole returns the role of the acting identity. Unknown or unfetched
// roles degrade to RoleUser.
func (s *IdentityService) CurrentRole() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.state {
	case StateAuthenticated:
		return s.role
	case StateGuest:
		return models.RoleGuest
	default:
		return models.RoleUser
	}
}

// StateKey derives a key that changes exactly when the resolution state or
// the concrete id changes. Cart state bound to a previous key must be
// discarded before the new identity's cart is loaded.
func (s *IdentityService) StateKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.state == StateAuthenticated:
		return "user:" + s.userID
	case s.guestMode:
		return "guest:" + s.guestID
	default:
		return "unresolved"
	}
}

// GuestID returns the device's guest id, or "" after the guest markers were
// cleared by a completed migration.
func (s *IdentityService) GuestID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guestID
}

// EnableGuestMode marks guest mode active, provisioning the guest profile
// record on first use. Idempotent, and never fails: a remote read or write
// error degrades the profile to local-only storage. The returned Durability
// tells the two outcomes apart. Local durability is not terminal; a later
// call retries the remote store.
func (s *IdentityService) EnableGuestMode(ctx context.Context) (string, Durability) {
	s.mu.Lock()
	if s.guestID == "" {
		// Markers were cleared by a migration; start a fresh guest identity.
		s.guestID = s.loadOrCreateGuestID()
		s.guestDurability = DurabilityNone
	}
	guestID := s.guestID

	if s.guestMode && s.guestDurability == DurabilityRemote {
		durability := s.guestDurability
		s.mu.Unlock()
		return guestID, durability
	}
	s.mu.Unlock()

	durability := s.ensureGuestProfile(ctx, guestID)

	s.mu.Lock()
	s.guestMode = true
	s.guestDurability = durability
	if s.state != StateAuthenticated {
		s.state = StateGuest
	}
	s.mu.Unlock()

	return guestID, durability
}

// ClearGuestMarkers removes the local guest markers after a completed
// guest-to-account migration. The remote guest profile is left behind; see
// DESIGN.md.
func (s *IdentityService) ClearGuestMarkers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.local.Delete(localKeyGuestID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete local guest id")
	}
	if err := s.local.Delete(localKeyGuestProfile); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete local guest profile")
	}
	s.guestID = ""
	s.guestMode = false
	s.guestDurability = DurabilityNone
}

// handleSessionChange is the auth subscription callback. A new session
// resolves to StateAuthenticated with the role fetched from the profile
// document (defaulting to RoleUser on fetch failure). A session ending after
// authentication re-establishes guest mode so sign-out never strands the
// user.
func (s *IdentityService) handleSessionChange(session *Session) {
	if session != nil {
		role := models.RoleUser
		user, err := s.users.GetByID(context.Background(), session.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", session.UserID).
				Msg("profile fetch failed, defaulting role to user")
		} else if user.Role != "" {
			role = user.Role
		}

		s.mu.Lock()
		s.state = StateAuthenticated
		s.userID = session.UserID
		s.role = role
		s.guestMode = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	wasAuthenticated := s.state == StateAuthenticated
	s.userID = ""
	s.role = models.RoleUser
	if s.guestMode {
		s.state = StateGuest
	} else {
		s.state = StateUnresolved
	}
	s.mu.Unlock()

	if wasAuthenticated {
		s.EnableGuestMode(context.Background())
	}
}

// ensureGuestProfile makes sure a guest profile record exists, preferring the
// remote store and falling back to a local-only record on any remote failure.
func (s *IdentityService) ensureGuestProfile(ctx context.Context, guestID string) Durability {
	_, err := s.users.GetByID(ctx, guestID)
	if err == nil {
		return DurabilityRemote
	}

	profile := models.NewGuestProfile(guestID)
	if errors.Is(err, repositories.ErrNotFound) {
		if upErr := s.users.Upsert(ctx, profile); upErr == nil {
			return DurabilityRemote
		} else {
			s.logger.Warn().Err(upErr).Str("guest_id", guestID).
				Msg("remote guest profile write failed, keeping profile local")
		}
	} else {
		s.logger.Warn().Err(err).Str("guest_id", guestID).
			Msg("remote guest profile read failed, keeping profile local")
	}

	payload, mErr := json.Marshal(profile)
	if mErr != nil {
		s.logger.Error().Err(mErr).Msg("failed to encode local guest profile")
		return DurabilityNone
	}
	if sErr := s.local.Set(localKeyGuestProfile, string(payload)); sErr != nil {
		s.logger.Warn().Err(sErr).Msg("failed to write local guest profile")
		return DurabilityNone
	}
	return DurabilityLocal
}

// loadOrCreateGuestID reuses a previously stored guest id verbatim and only
// generates one when none exists.
func (s *IdentityService) loadOrCreateGuestID() string {
	if existing, err := s.local.Get(localKeyGuestID); err == nil && existing != "" {
		return existing
	}

	guestID := models.GuestIDPrefix + uuid.New().String()
	if err := s.local.Set(localKeyGuestID, guestID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist guest id locally")
	}
	return guestID
}
