package bootstrap

import (
	"html/template"
	"log"
	"net/http"

	"github.com/heshen/BookStack-1/internal/config"
	"github.com/heshen/BookStack-1/internal/metrics"
	"github.com/heshen/BookStack-1/internal/middleware"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(app *Application) *gin.Engine {
	cfg := app.Config

	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(app.MetricsRecorder))
	r.Use(gin.Logger(), gin.Recovery())

	setupSessionMiddleware(r, cfg)

	// Templates are embedded in the binary
	tmpl := template.Must(template.ParseFS(app.TemplatesFS, "templates/*.html"))
	r.SetHTMLTemplate(tmpl)

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(app.DB))

	// Metrics endpoint
	if cfg.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Authentication routes
	r.GET("/login", app.AuthHandler.LoginPage)
	r.POST("/login", app.AuthHandler.Login)
	r.POST("/logout", middleware.RequireAuth(), app.AuthHandler.Logout)

	// Social login
	r.GET("/oauth/:driver", app.AuthHandler.SocialRedirect)
	r.GET("/oauth/:driver/callback", app.AuthHandler.SocialCallback)

	// Admin pages
	admin := r.Group("/admin", middleware.RequireAuth(), middleware.RequireAdmin(app.UserService))
	admin.GET("/audit", app.AuditHandler.ShowAuditLogsPage)

	// Landing page for logged-in users
	r.GET("/", middleware.RequireAuth(), func(c *gin.Context) {
		user, err := app.UserService.GetUserByID(
			c.Request.Context(), c.GetString("user_id"),
		)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{
				"error": "Failed to load user",
			})
			return
		}
		c.HTML(http.StatusOK, "home.html", gin.H{"user": user})
	})

	logServerStartup(cfg)

	return r
}

// setupSessionMiddleware configures session handling middleware
func setupSessionMiddleware(r *gin.Engine, cfg *config.Config) {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("auth_session", sessionStore))
}

func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
}

func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func logServerStartup(cfg *config.Config) {
	log.Printf("Server starting on %s (auth method: %s, env: %s)",
		cfg.ServerAddr, cfg.AuthMethod, cfg.Env)
	if cfg.SAMLEnabled {
		log.Printf("SAML logout redirect: %s", cfg.SAMLLogoutURL)
	}
}
