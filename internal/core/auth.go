package core

import "context"

// AuthResult holds the facts an authentication backend learned about the
// caller. It carries no decisions; mapping the result onto a local user is
// the reconciler's job.
type AuthResult struct {
	Username   string
	ExternalID string // external identifier (LDAP DN, OAuth sub)
	Email      string // optional, empty when the backend supplied none
	FullName   string // optional
	Success    bool
}

// AuthProvider is the interface that credential-verifying backends must
// implement. Verification itself (password hash compare, LDAP bind, OAuth
// code exchange) lives entirely behind this seam.
type AuthProvider interface {
	Authenticate(ctx context.Context, username, password string) (*AuthResult, error)
	Name() string
}
