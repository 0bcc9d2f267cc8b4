package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")

	// OAuth errors
	ErrOAuthStateMismatch = errors.New("oauth state parameter mismatch")
)
