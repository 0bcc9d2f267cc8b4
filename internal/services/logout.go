package services

import (
	"fmt"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/metrics"
)

// SessionState is the slice of the platform session the dispatcher needs:
// which method established it, and how to tear it down. Passed in
// explicitly so the dispatcher stays free of ambient request state.
type SessionState interface {
	// LastLoginMethod returns the method recorded at login. Empty when the
	// session never saw a login.
	LastLoginMethod() auth.Method

	// Invalidate destroys the local session record.
	Invalidate() error
}

// LogoutOutcome tells the caller where to send the user after the local
// session is gone.
type LogoutOutcome struct {
	RedirectURL string

	// ExternalLogout is true when the redirect hands control to an external
	// identity provider's logout endpoint rather than the local page.
	ExternalLogout bool
}

// LogoutDispatcher picks the logout sequence matching how the session was
// established. SAML sessions must notify the identity provider; everything
// else lands on the default logged-out page.
type LogoutDispatcher struct {
	samlEnabled   bool
	samlLogoutURL string
	loggedOutURL  string
	metrics       metrics.Recorder
}

func NewLogoutDispatcher(
	samlEnabled bool,
	samlLogoutURL, loggedOutURL string,
	recorder metrics.Recorder,
) *LogoutDispatcher {
	if recorder == nil {
		recorder = metrics.NewNoopMetrics()
	}
	return &LogoutDispatcher{
		samlEnabled:   samlEnabled,
		samlLogoutURL: samlLogoutURL,
		loggedOutURL:  loggedOutURL,
		metrics:       recorder,
	}
}

// Logout invalidates the local session and returns the redirect target.
// Local invalidation happens on every branch; only the destination
// differs.
func (d *LogoutDispatcher) Logout(session SessionState) (LogoutOutcome, error) {
	method := session.LastLoginMethod()

	if err := session.Invalidate(); err != nil {
		return LogoutOutcome{}, fmt.Errorf("failed to invalidate session: %w", err)
	}
	d.metrics.RecordSessionInvalidated("logout")
	d.metrics.RecordLogout(string(method))

	if method == auth.MethodSAML && d.samlEnabled {
		return LogoutOutcome{
			RedirectURL:    d.samlLogoutURL,
			ExternalLogout: true,
		}, nil
	}

	return LogoutOutcome{RedirectURL: d.loggedOutURL}, nil
}
