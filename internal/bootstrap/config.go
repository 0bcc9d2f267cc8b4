package bootstrap

import (
	"fmt"
	"log"

	"github.com/heshen/BookStack-1/internal/auth"
)

// validateConfiguration checks everything that would otherwise fail at an
// awkward moment later: the auth method, database settings, and insecure
// defaults in production.
func (app *Application) validateConfiguration() error {
	cfg := app.Config

	method, err := auth.ParseMethod(cfg.AuthMethod)
	if err != nil {
		return fmt.Errorf("invalid AUTH_METHOD: %w", err)
	}
	app.Method = method

	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %q", cfg.DatabaseDriver)
	}

	if method == auth.MethodSAML && !cfg.SAMLEnabled {
		return fmt.Errorf("AUTH_METHOD is saml but SAML_ENABLED is false")
	}

	if cfg.IsProduction() &&
		cfg.SessionSecret == "session-secret-change-in-production" {
		log.Println("WARNING: SESSION_SECRET still has its default value in production")
	}

	if cfg.GroupSyncEnabled && len(cfg.GroupRoleMap) == 0 {
		log.Println("WARNING: GROUP_SYNC_ENABLED is set but GROUP_ROLE_MAP is empty; sync will be skipped")
	}

	return nil
}
