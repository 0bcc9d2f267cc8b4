package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/heshen/BookStack-1/internal/config"

	"github.com/appleboy/graceful"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// startWithGracefulShutdown runs the server until a shutdown signal
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addAuditShutdownJob(m, app)
	addCacheShutdownJob(m, app)

	<-m.Done()
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addAuditShutdownJob flushes pending audit events on shutdown
func addAuditShutdownJob(m *graceful.Manager, app *Application) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down audit service...")
		app.AuditService.Shutdown()
		return nil
	})
}

// addCacheShutdownJob closes the user cache connection on shutdown
func addCacheShutdownJob(m *graceful.Manager, app *Application) {
	if app.UserCache == nil {
		return
	}
	m.AddShutdownJob(func() error {
		log.Println("Closing user cache...")
		return app.UserCache.Close()
	})
}
