package bootstrap

import (
	"fmt"
	"log"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/avatar"
	"github.com/heshen/BookStack-1/internal/client"
	"github.com/heshen/BookStack-1/internal/config"
	"github.com/heshen/BookStack-1/internal/services"
)

// initializeServices wires the reconciler and its collaborators
func initializeServices(app *Application) error {
	cfg := app.Config

	fetcher, err := initializeAvatarFetcher(cfg)
	if err != nil {
		return err
	}

	app.Provisioner = services.NewProvisioningService(
		app.DB,
		fetcher,
		cfg.DefaultUserRole,
	)

	app.UserService = services.NewUserService(app.DB, app.UserCache, cfg.UserCacheTTL)

	// Group sync runs against an external directory. Until a directory
	// client is configured the syncer reports ShouldSync() == false and the
	// reconciler skips the step entirely. The user service doubles as the
	// cache invalidator so a role change is visible on the next request.
	app.GroupSyncer = services.NewDirectoryGroupSyncer(
		app.DB,
		directoryClient(),
		app.UserService,
		cfg.GroupSyncEnabled,
		cfg.GroupRoleMap,
	)

	app.Reconciler = services.NewReconciler(
		app.DB,
		app.Provisioner,
		app.GroupSyncer,
		app.MetricsRecorder,
	)

	app.Dispatcher = services.NewLogoutDispatcher(
		cfg.SAMLEnabled,
		cfg.SAMLLogoutURL,
		"/login",
		app.MetricsRecorder,
	)

	app.LocalProvider = auth.NewLocalProvider(app.DB)

	return nil
}

// initializeAvatarFetcher builds the retrying HTTP fetcher, or nil when
// avatar assignment is disabled.
func initializeAvatarFetcher(cfg *config.Config) (services.AvatarFetcher, error) {
	if !cfg.AvatarFetchEnabled {
		log.Println("Avatar fetching disabled")
		return nil, nil
	}

	retryClient, err := client.CreateRetryClient(
		"none", "",
		cfg.AvatarTimeout,
		false,
		cfg.AvatarMaxRetries,
		cfg.AvatarRetryDelay,
		cfg.AvatarMaxRetryDelay,
		"",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create avatar client: %w", err)
	}

	log.Printf("Avatar fetching enabled (source: %s)", cfg.AvatarSourceURL)
	return avatar.NewFetcher(retryClient, cfg.AvatarSourceURL), nil
}

// directoryClient returns the external directory client for group sync.
// No directory backend is configured yet, so this returns nil and the
// syncer keeps ShouldSync() false.
func directoryClient() services.DirectoryClient {
	return nil
}
