package auth

import (
	"context"

	"github.com/heshen/BookStack-1/internal/core"
	"github.com/heshen/BookStack-1/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// LocalProvider verifies credentials against the local user table. It backs
// the "standard" auth method.
type LocalProvider struct {
	store *store.Store
}

func NewLocalProvider(s *store.Store) *LocalProvider {
	return &LocalProvider{store: s}
}

// Authenticate verifies a password against the stored bcrypt hash. The
// lookup key depends on the configured method: standard logins key on the
// email address, so callers pass whatever UsernameField dictates.
func (p *LocalProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*core.AuthResult, error) {
	user, err := p.store.GetUserByEmail(ctx, username)
	if err != nil {
		user, err = p.store.GetUserByUsername(ctx, username)
	}
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash),
		[]byte(password),
	); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &core.AuthResult{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Success:  true,
	}, nil
}

// Name returns provider name for logging
func (p *LocalProvider) Name() string {
	return "standard"
}
