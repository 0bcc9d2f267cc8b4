package bootstrap

import (
	"embed"
	"net/http"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/config"
	"github.com/heshen/BookStack-1/internal/core"
	"github.com/heshen/BookStack-1/internal/handlers"
	"github.com/heshen/BookStack-1/internal/metrics"
	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/services"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config
	Method auth.Method

	// Core infrastructure
	DB              *store.Store
	MetricsRecorder metrics.Recorder
	UserCache       core.Cache[models.User]

	// Services
	AuditService  *services.AuditService
	UserService   *services.UserService
	Reconciler    *services.Reconciler
	Dispatcher    *services.LogoutDispatcher
	GroupSyncer   services.GroupSyncer
	Provisioner   services.Provisioner
	LocalProvider core.AuthProvider

	// HTTP
	AuthHandler  *handlers.AuthHandler
	AuditHandler *handlers.AuditHandler
	Router       *gin.Engine
	Server       *http.Server
	TemplatesFS  embed.FS
}

// Run initializes and starts the application
func Run(cfg *config.Config, templatesFS embed.FS) error {
	app := &Application{
		Config:      cfg,
		TemplatesFS: templatesFS,
	}

	// Phase 1: Validate configuration
	if err := app.validateConfiguration(); err != nil {
		return err
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 4: Initialize HTTP layer
	app.initializeHTTPLayer()

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up the database, metrics and the user cache
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = initializeMetrics(app.Config)

	app.UserCache, err = initializeUserCache(app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer wires the reconciler and its collaborators
func (app *Application) initializeBusinessLayer() error {
	app.AuditService = services.NewAuditService(
		app.DB,
		app.Config.AuditEnabled,
		app.Config.AuditBufferSize,
	)

	return initializeServices(app)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() {
	socialProviders := initializeSocialProviders(app.Config)
	logSocialProvidersStatus(socialProviders)

	app.AuthHandler = handlers.NewAuthHandler(
		app.Config,
		app.Method,
		app.LocalProvider,
		socialProviders,
		app.Reconciler,
		app.Dispatcher,
		app.DB,
		app.AuditService,
	)
	app.AuditHandler = handlers.NewAuditHandler(app.AuditService)

	app.Router = setupRouter(app)
	app.Server = createHTTPServer(app.Config, app.Router)
}
