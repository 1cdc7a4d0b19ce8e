package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// ErrEmailTaken is returned by Register when the email already has an
// account.
var ErrEmailTaken = errors.New("already registered")

// Session represents an active authenticated session.
type Session struct {
	UserID string
	Email  string
	Role   string
}

// AuthService is the authentication collaborator: credential-based identity
// creation and sign-in, sign-out, display-name updates, and a subscription
// that fires on every session change. Credential errors are the only errors
// it surfaces; everything downstream of a session change degrades instead.
type AuthService struct {
	users      repositories.UserRepository
	jwtSecret  []byte
	tokenDurat time.Duration
	logger     zerolog.Logger

	mu        sync.Mutex
	current   *Session
	listeners []func(*Session)
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repositories.UserRepository, jwtSecret string, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
		logger:     logger,
	}
}

// Register creates a new authenticated identity and starts a session for it.
// Returns the created user and a signed session token.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, string, error) {
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", fmt.Errorf("email '%s': %w", email, ErrEmailTaken)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      models.RoleUser,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.setSession(&Session{UserID: user.ID, Email: user.Email, Role: user.Role})
	return user, token, nil
}

// SignIn authenticates a user and starts a session, returning the user and a
// signed session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the email exists.
		return nil, "", fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.setSession(&Session{UserID: user.ID, Email: user.Email, Role: user.Role})
	return user, token, nil
}

// SignOut ends the active session. Safe to call without one.
func (s *AuthService) SignOut() {
	s.setSession(nil)
}

// UpdateDisplayName updates the display name of the signed-in user.
func (s *AuthService) UpdateDisplayName(ctx context.Context, name string) error {
	s.mu.Lock()
	session := s.current
	s.mu.Unlock()

	if session == nil {
		return fmt.Errorf("no active session")
	}
	if err := s.users.UpdateName(ctx, session.UserID, name); err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

// CurrentSession returns the active session, or nil.
func (s *AuthService) CurrentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers a session-change callback. The callback is invoked once
// immediately with the current session state (possibly nil), then again on
// every change.
func (s *AuthService) Subscribe(fn func(*Session)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	current := s.current
	s.mu.Unlock()

	fn(current)
}

// ValidateToken parses and validates a session token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

func (s *AuthService) setSession(session *Session) {
	s.mu.Lock()
	s.current = session
	listeners := make([]func(*Session), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}
