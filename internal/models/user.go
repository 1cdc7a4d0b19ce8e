package models

import (
	"strings"
	"time"
)

// Roles stored on the user document. Anything unknown degrades to RoleUser.
const (
	RoleUser  = "user"
	RoleGuest = "guest"
	RoleAdmin = "admin"
)

// GuestIDPrefix distinguishes locally generated guest ids from ids issued
// by the auth provider.
const GuestIDPrefix = "guest_"

// User represents a profile document in the users collection. Guest profiles
// share the same shape with Role set to RoleGuest and no credentials.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email,omitempty" validate:"omitempty,email"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Role      string    `json:"role" bson:"role"`
	Password  string    `json:"-" bson:"password,omitempty"` // bcrypt hash, never serialized to JSON
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsGuestID reports whether an identity id was generated locally for guest use.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestIDPrefix)
}

// NewGuestProfile builds the minimal profile record created lazily the first
// time guest mode is needed.
func NewGuestProfile(guestID string) *User {
	now := time.Now()
	return &User{
		ID:        guestID,
		Name:      "Guest User",
		Role:      RoleGuest,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
