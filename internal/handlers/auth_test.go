package handlers

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/config"
	"github.com/heshen/BookStack-1/internal/core"
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

// fakeProvider returns a canned result so handler tests control exactly
// what the backend asserts.
type fakeProvider struct {
	result *core.AuthResult
	err    error
}

func (f *fakeProvider) Authenticate(ctx context.Context, username, password string) (*core.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeProvider) Name() string { return "fake" }

type testApp struct {
	router *gin.Engine
	store  *store.Store
}

func newTestApp(t *testing.T, cfg *config.Config, method auth.Method, provider core.AuthProvider) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	provisioner := services.NewProvisioningService(s, nil, cfg.DefaultUserRole)
	syncer := services.NewDirectoryGroupSyncer(s, nil, nil, false, nil)
	reconciler := services.NewReconciler(s, provisioner, syncer, nil)
	dispatcher := services.NewLogoutDispatcher(cfg.SAMLEnabled, cfg.SAMLLogoutURL, "/login", nil)
	audit := services.NewAuditService(s, false, 10)

	h := NewAuthHandler(cfg, method, provider, nil, reconciler, dispatcher, s, audit)

	router := gin.New()
	router.Use(sessions.Sessions("auth_session", cookie.NewStore([]byte("test-secret"))))
	router.SetHTMLTemplate(template.Must(template.ParseGlob("../../templates/*.html")))

	router.GET("/login", h.LoginPage)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)

	// Seeds a session directly so logout tests can set up arbitrary
	// login states without walking a full backend flow.
	router.GET("/seed-session", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(SessionUserID, c.Query("user_id"))
		session.Set(SessionUsername, c.Query("username"))
		session.Set(SessionLastLoginMethod, c.Query("method"))
		require.NoError(t, session.Save())
		c.Status(http.StatusOK)
	})

	return &testApp{router: router, store: s}
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		BaseURL:         "http://localhost:8080",
		Env:             config.EnvDevelopment,
		DefaultUserRole: "viewer",
		SAMLLogoutURL:   "/saml2/logout",
	}
}

func (a *testApp) do(t *testing.T, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) createUser(t *testing.T, username, email string) *models.User {
	t.Helper()
	user := &models.User{
		ID:         uuid.New().String(),
		Username:   username,
		Email:      email,
		AuthSource: "standard",
	}
	require.NoError(t, a.store.CreateUser(context.Background(), user))
	return user
}

func TestLoginExistingUserRedirects(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodStandard, &fakeProvider{
		result: &core.AuthResult{Username: "jane", Email: "jane@example.com", Success: true},
	})
	app.createUser(t, "jane", "jane@example.com")

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"s3cret"},
	}, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Result().Cookies())
}

func TestLoginHonorsSafeRedirect(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodStandard, &fakeProvider{
		result: &core.AuthResult{Username: "jane", Email: "jane@example.com", Success: true},
	})
	app.createUser(t, "jane", "jane@example.com")

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"s3cret"},
		"redirect": {"/books/42"},
	}, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/books/42", w.Header().Get("Location"))
}

func TestLoginDropsUnsafeRedirect(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodStandard, &fakeProvider{
		result: &core.AuthResult{Username: "jane", Email: "jane@example.com", Success: true},
	})
	app.createUser(t, "jane", "jane@example.com")

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"s3cret"},
		"redirect": {"//evil.example"},
	}, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLoginInvalidCredentials(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodStandard, &fakeProvider{
		err: auth.ErrInvalidCredentials,
	})

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {"wrong"},
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid username or password")
}

func TestLoginProvisionsNewUser(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodLDAP, &fakeProvider{
		result: &core.AuthResult{Username: "newbie", Email: "newbie@example.com", Success: true},
	})

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"username": {"newbie"},
		"password": {"s3cret"},
	}, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	user, err := app.store.GetUserByEmail(context.Background(), "newbie@example.com")
	require.NoError(t, err)
	assert.Equal(t, "newbie", user.Username)
	assert.Equal(t, "viewer", user.Role)
	assert.Equal(t, "ldap", user.AuthSource)
}

func TestLoginDuplicateIdentityRejected(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodLDAP, &fakeProvider{
		result: &core.AuthResult{Username: "newbie", Email: "jane@example.com", Success: true},
	})
	app.createUser(t, "jane", "jane@example.com")

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"username": {"newbie"},
		"password": {"s3cret"},
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")

	// No account was created for the colliding identity.
	_, err := app.store.GetUserByUsername(context.Background(), "newbie")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestLoginNeedEmailRoundTrip(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodLDAP, &fakeProvider{
		result: &core.AuthResult{Username: "newbie", Success: true},
	})

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"username": {"newbie"},
		"password": {"s3cret"},
	}, nil)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// Follow the redirect with the flashed session. The login page shows
	// the extra email field and pre-fills the username; it must render the
	// form rather than treating the caller as logged in.
	page := app.do(t, http.MethodGet, "/login", nil, w.Result().Cookies())

	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "no email address yet")
	assert.Contains(t, body, `value="newbie"`)
	assert.NotContains(t, body, "s3cret")
}

func TestLoginNeedEmailKeepsRedirect(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodLDAP, &fakeProvider{
		result: &core.AuthResult{Username: "newbie", Success: true},
	})

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"username": {"newbie"},
		"password": {"s3cret"},
		"redirect": {"/books/7"},
	}, nil)
	require.Equal(t, http.StatusFound, w.Code)

	// The re-rendered form must carry the original redirect target in its
	// hidden field so the retry lands where the user was headed.
	page := app.do(t, http.MethodGet, "/login", nil, w.Result().Cookies())

	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `value="/books/7"`)

	// The flash is one-shot.
	again := app.do(t, http.MethodGet, "/login", nil, page.Result().Cookies())
	require.Equal(t, http.StatusOK, again.Code)
	assert.NotContains(t, again.Body.String(), "/books/7")
}

func TestLoginNeedEmailThenRetryWithEmail(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodLDAP, &fakeProvider{
		result: &core.AuthResult{Username: "newbie", Success: true},
	})

	w := app.do(t, http.MethodPost, "/login", url.Values{
		"username": {"newbie"},
		"password": {"s3cret"},
		"email":    {"typed@example.com"},
	}, nil)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	user, err := app.store.GetUserByEmail(context.Background(), "typed@example.com")
	require.NoError(t, err)
	assert.Equal(t, "newbie", user.Username)
}

func TestLoginPageRedirectsWhenLoggedIn(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodStandard, &fakeProvider{})

	seed := app.do(t, http.MethodGet, "/seed-session?user_id=u1&username=jane&method=standard", nil, nil)
	require.Equal(t, http.StatusOK, seed.Code)

	w := app.do(t, http.MethodGet, "/login", nil, seed.Result().Cookies())

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLogoutStandardSession(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodStandard, &fakeProvider{})

	seed := app.do(t, http.MethodGet, "/seed-session?user_id=u1&username=jane&method=standard", nil, nil)
	w := app.do(t, http.MethodPost, "/logout", url.Values{}, seed.Result().Cookies())

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLogoutSAMLSession(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.SAMLEnabled = true
	app := newTestApp(t, cfg, auth.MethodSAML, &fakeProvider{})

	seed := app.do(t, http.MethodGet, "/seed-session?user_id=u1&username=jane&method=saml", nil, nil)
	w := app.do(t, http.MethodPost, "/logout", url.Values{}, seed.Result().Cookies())

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/saml2/logout", w.Header().Get("Location"))
}

func TestLogoutInvalidatesSession(t *testing.T) {
	app := newTestApp(t, defaultTestConfig(), auth.MethodStandard, &fakeProvider{})

	seed := app.do(t, http.MethodGet, "/seed-session?user_id=u1&username=jane&method=standard", nil, nil)
	logout := app.do(t, http.MethodPost, "/logout", url.Values{}, seed.Result().Cookies())

	// The login page no longer sees a logged-in session.
	page := app.do(t, http.MethodGet, "/login", nil, logout.Result().Cookies())
	assert.Equal(t, http.StatusOK, page.Code)
}

func TestIsRedirectSafe(t *testing.T) {
	base := "http://localhost:8080"

	tests := []struct {
		redirect string
		want     bool
	}{
		{"", true},
		{"/", true},
		{"/books/42", true},
		{"//evil.example", false},
		{"/\\evil.example", false},
		{"/path\r\nSet-Cookie: x", false},
		{"http://localhost:8080/books", true},
		{"http://evil.example/books", false},
		{"https://localhost:8080/books", true},
		{"javascript:alert(1)", false},
		{"data:text/html,hi", false},
	}

	for _, tt := range tests {
		t.Run(tt.redirect, func(t *testing.T) {
			assert.Equal(t, tt.want, isRedirectSafe(tt.redirect, base))
		})
	}
}
