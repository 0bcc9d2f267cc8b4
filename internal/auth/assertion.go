package auth

import (
	"fmt"

	"github.com/heshen/BookStack-1/internal/models"
)

// Method identifies which backend established a login.
type Method string

const (
	MethodStandard Method = "standard"
	MethodLDAP     Method = "ldap"
	MethodSocial   Method = "social"
	MethodSAML     Method = "saml"
)

// ParseMethod validates a configured auth method string.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodStandard, MethodLDAP, MethodSocial, MethodSAML:
		return Method(s), nil
	}
	return "", fmt.Errorf("unknown auth method %q", s)
}

// UsernameField returns the form field logins key on for this method.
// Standard auth keys on the email address; every external method keys on a
// username or external login identifier. Group sync uses the same field to
// resolve the directory entry.
func (m Method) UsernameField() string {
	if m == MethodStandard {
		return "email"
	}
	return "username"
}

// Assertion is the normalized, already-verified claim about who the caller
// is, handed from an authentication backend to the reconciler. Created
// fresh per login attempt and never persisted.
type Assertion struct {
	Method Method
	Exists bool   // identity already maps to a persisted local user
	Email  string // email claimed by the backend; empty when absent

	// Identifier is the username or external login identifier the caller
	// authenticated with, used as the directory lookup key for group sync.
	Identifier string

	// User is the persisted user when Exists is true. Otherwise it may
	// carry a template for the user to provision (full name, external id,
	// auth source); the reconciler fills in the rest.
	User *models.User
}
