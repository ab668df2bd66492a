package auth

import (
	"time"

	"github.com/google/uuid"
)

// Account roles.
const (
	RoleFan    = "fan"
	RoleArtist = "artist"
	RoleAdmin  = "admin"
)

// User represents a row in the users table.
type User struct {
	ID             uuid.UUID
	Email          string
	Name           string
	PasswordHash   string
	Role           string
	StellarAddress *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UpdateFields holds user-editable profile fields. Nil fields are not updated.
type UpdateFields struct {
	Name           *string
	StellarAddress *string
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}
