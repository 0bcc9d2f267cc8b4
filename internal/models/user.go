package models

import (
	"time"
)

// Default role names. RoleAdmin grants access to the admin area,
// RoleViewer is what provisioning attaches to first-time logins unless
// configured otherwise.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

type User struct {
	ID       string `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;not null"`

	// Email carries a unique index. The reconciler checks for an existing
	// user with the same email before creating one, but that lookup is a
	// fast path only; this constraint is what makes concurrent duplicate
	// provisioning impossible.
	Email string `gorm:"uniqueIndex;not null"`

	PasswordHash string // empty for externally-authenticated users
	Role         string `gorm:"not null;default:'viewer'"`
	FullName     string
	AvatarURL    string

	// External authentication support
	ExternalID string `gorm:"index"`              // provider-scoped identifier (LDAP DN, OAuth sub)
	AuthSource string `gorm:"default:'standard'"` // "standard", "ldap", "social" or "saml"

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsExternal returns true if user authenticates via an external backend
func (u *User) IsExternal() bool {
	return u.AuthSource != "standard" && u.AuthSource != ""
}
