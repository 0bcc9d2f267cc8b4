package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrEmailConflict is returned when an insert or update would leave two
	// users sharing the same email address. The unique index on users.email
	// is the authoritative guard; this sentinel is how it surfaces.
	ErrEmailConflict = errors.New("email already in use by another user")

	// ErrUsernameConflict is returned when a username already exists
	ErrUsernameConflict = errors.New("username already exists")
)
