package handlers

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/heshen/BookStack-1/internal/middleware"
	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/services"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	userService := services.NewUserService(s, nil, 0)
	audit := services.NewAuditService(s, false, 10)
	h := NewAuditHandler(audit)

	router := gin.New()
	router.Use(sessions.Sessions("auth_session", cookie.NewStore([]byte("test-secret"))))
	router.SetHTMLTemplate(template.Must(template.ParseGlob("../../templates/*.html")))

	admin := router.Group("/admin", middleware.RequireAuth(), middleware.RequireAdmin(userService))
	admin.GET("/audit", h.ShowAuditLogsPage)

	router.GET("/seed-session", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(SessionUserID, c.Query("user_id"))
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})

	return &testApp{router: router, store: s}
}

func (a *testApp) createUserWithRole(t *testing.T, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		ID:         uuid.New().String(),
		Username:   username,
		Email:      username + "@example.com",
		Role:       role,
		AuthSource: "standard",
	}
	require.NoError(t, a.store.CreateUser(context.Background(), user))
	return user
}

func (a *testApp) seedAuditLog(t *testing.T, eventType models.EventType, action string, at time.Time) {
	t.Helper()
	entry := &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     eventType,
		Severity:      models.SeverityInfo,
		ActorUsername: "jane",
		Action:        action,
		Success:       true,
		CreatedAt:     at,
	}
	require.NoError(t, a.store.CreateAuditLogs(context.Background(), []*models.AuditLog{entry}))
}

func TestAuditPageRequiresLogin(t *testing.T) {
	app := newAuditTestApp(t)

	w := app.do(t, http.MethodGet, "/admin/audit", nil, nil)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login?redirect=")
}

func TestAuditPageForbiddenForViewer(t *testing.T) {
	app := newAuditTestApp(t)
	viewer := app.createUserWithRole(t, "jane", models.RoleViewer)

	seed := app.do(t, http.MethodGet, "/seed-session?user_id="+viewer.ID, nil, nil)
	require.Equal(t, http.StatusOK, seed.Code)

	w := app.do(t, http.MethodGet, "/admin/audit", nil, seed.Result().Cookies())

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Admin access required")
}

func TestAuditPageListsEventsForAdmin(t *testing.T) {
	app := newAuditTestApp(t)
	admin := app.createUserWithRole(t, "root", models.RoleAdmin)

	now := time.Now()
	app.seedAuditLog(t, models.EventAuthenticationSuccess, "User logged in", now.Add(-time.Minute))
	app.seedAuditLog(t, models.EventLogout, "User logged out", now)

	seed := app.do(t, http.MethodGet, "/seed-session?user_id="+admin.ID, nil, nil)
	require.Equal(t, http.StatusOK, seed.Code)

	w := app.do(t, http.MethodGet, "/admin/audit", nil, seed.Result().Cookies())

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "User logged in")
	assert.Contains(t, body, "User logged out")
	// Newest first.
	assert.Less(t,
		strings.Index(body, "User logged out"),
		strings.Index(body, "User logged in"),
	)
}

func TestAuditPageEventTypeFilter(t *testing.T) {
	app := newAuditTestApp(t)
	admin := app.createUserWithRole(t, "root", models.RoleAdmin)

	now := time.Now()
	app.seedAuditLog(t, models.EventAuthenticationSuccess, "User logged in", now.Add(-time.Minute))
	app.seedAuditLog(t, models.EventLogout, "User logged out", now)

	seed := app.do(t, http.MethodGet, "/seed-session?user_id="+admin.ID, nil, nil)
	require.Equal(t, http.StatusOK, seed.Code)

	target := fmt.Sprintf("/admin/audit?event_type=%s", models.EventLogout)
	w := app.do(t, http.MethodGet, target, nil, seed.Result().Cookies())

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "User logged out")
	assert.NotContains(t, body, "User logged in")
}
