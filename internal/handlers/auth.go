package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/config"
	"github.com/heshen/BookStack-1/internal/core"
	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/services"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	SessionUserID          = "user_id"
	SessionUsername        = "username"
	SessionLastLoginMethod = "last_login_method"
	SessionOAuthState      = "oauth_state"

	// Flash keys for the missing-email round trip. Consumed (and cleared)
	// by the next render of the login page.
	FlashRequestEmail  = "request_email"
	FlashEmailInput    = "email_input"
	FlashPasswordInput = "password_input"
	FlashRedirect      = "redirect_input"
)

// isRedirectSafe validates that a redirect URL is safe to use.
// It only allows:
// 1. Relative paths starting with "/" but not "//"
// 2. Absolute URLs that match the baseURL host
func isRedirectSafe(redirectURL, baseURL string) bool {
	// Empty redirect is safe (will use default)
	if redirectURL == "" {
		return true
	}

	// Must not contain newlines or carriage returns (header injection)
	if strings.ContainsAny(redirectURL, "\r\n") {
		return false
	}

	// Check if it's a relative path
	if strings.HasPrefix(redirectURL, "/") {
		// Reject protocol-relative URLs like "//evil.com"
		if strings.HasPrefix(redirectURL, "//") {
			return false
		}
		// Reject backslash variations like "/\evil.com"
		if strings.Contains(redirectURL, "\\") {
			return false
		}
		// Valid relative path
		return true
	}

	// If it's an absolute URL, parse and validate against baseURL
	parsedRedirect, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}

	// Reject javascript:, data:, and other non-http(s) schemes
	if parsedRedirect.Scheme != "" && parsedRedirect.Scheme != "http" &&
		parsedRedirect.Scheme != "https" {
		return false
	}

	// If there's a host specified, it must match baseURL
	if parsedRedirect.Host != "" {
		parsedBase, err := url.Parse(baseURL)
		if err != nil {
			return false
		}
		// Host must match exactly
		if parsedRedirect.Host != parsedBase.Host {
			return false
		}
	}

	return true
}

type AuthHandler struct {
	cfg        *config.Config
	method     auth.Method
	provider   core.AuthProvider // credential backend for password logins
	social     map[string]*auth.SocialProvider
	reconciler *services.Reconciler
	dispatcher *services.LogoutDispatcher
	store      *store.Store
	audit      *services.AuditService
}

func NewAuthHandler(
	cfg *config.Config,
	method auth.Method,
	provider core.AuthProvider,
	social map[string]*auth.SocialProvider,
	reconciler *services.Reconciler,
	dispatcher *services.LogoutDispatcher,
	s *store.Store,
	audit *services.AuditService,
) *AuthHandler {
	return &AuthHandler{
		cfg:        cfg,
		method:     method,
		provider:   provider,
		social:     social,
		reconciler: reconciler,
		dispatcher: dispatcher,
		store:      s,
		audit:      audit,
	}
}

// LoginPage renders the login form. Flashed state from a NeedEmail round
// trip is consumed here: the original inputs pre-fill the form and an
// email field is shown.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(SessionUserID) != nil {
		// Already logged in
		c.Redirect(http.StatusFound, "/")
		return
	}

	redirectTo := c.Query("redirect")
	if !isRedirectSafe(redirectTo, h.cfg.BaseURL) {
		redirectTo = ""
	}

	requestEmail := false
	emailInput := ""
	passwordInput := ""
	if v, ok := session.Get(FlashRequestEmail).(bool); ok {
		requestEmail = v
	}
	if v, ok := session.Get(FlashEmailInput).(string); ok {
		emailInput = v
	}
	if v, ok := session.Get(FlashPasswordInput).(string); ok {
		passwordInput = v
	}
	if v, ok := session.Get(FlashRedirect).(string); ok && redirectTo == "" {
		if isRedirectSafe(v, h.cfg.BaseURL) {
			redirectTo = v
		}
	}
	session.Delete(FlashRequestEmail)
	session.Delete(FlashEmailInput)
	session.Delete(FlashPasswordInput)
	session.Delete(FlashRedirect)
	_ = session.Save()

	// A pre-filled email may arrive by query (e.g. from an invite link).
	// The password is echoed back only in demo mode.
	if v := c.Query("email"); v != "" {
		emailInput = v
		if h.cfg.IsDemo() {
			passwordInput = c.Query("password")
		} else {
			passwordInput = ""
		}
	}

	h.renderLogin(c, http.StatusOK, gin.H{
		"error":         c.Query("error"),
		"redirect":      redirectTo,
		"requestEmail":  requestEmail,
		"emailInput":    emailInput,
		"passwordInput": passwordInput,
	})
}

// Login handles the login form submission for password-based backends
// (standard and LDAP).
func (h *AuthHandler) Login(c *gin.Context) {
	identifier := c.PostForm(h.method.UsernameField())
	password := c.PostForm("password")
	redirectTo := c.PostForm("redirect")

	if !isRedirectSafe(redirectTo, h.cfg.BaseURL) {
		redirectTo = ""
	}

	result, err := h.provider.Authenticate(c.Request.Context(), identifier, password)
	if err != nil || !result.Success {
		h.audit.Record(services.AuditEntry{
			EventType:     models.EventAuthenticationFailure,
			Severity:      models.SeverityWarning,
			ActorUsername: identifier,
			ActorIP:       c.ClientIP(),
			AuthMethod:    string(h.method),
			Action:        "login",
		})
		h.renderLogin(c, http.StatusUnauthorized, gin.H{
			"error":    "Invalid username or password",
			"redirect": redirectTo,
		})
		return
	}

	assertion := h.assembleAssertion(c.Request.Context(), result)
	h.finishLogin(c, assertion, c.PostForm("email"), redirectTo)
}

// assembleAssertion resolves a backend result against the user table: a
// known username means the identity is already linked.
func (h *AuthHandler) assembleAssertion(
	ctx context.Context,
	result *core.AuthResult,
) auth.Assertion {
	assertion := auth.Assertion{
		Method:     h.method,
		Email:      result.Email,
		Identifier: result.Username,
	}

	if user, err := h.store.GetUserByUsername(ctx, result.Username); err == nil {
		assertion.Exists = true
		assertion.User = user
		return assertion
	}

	assertion.User = &models.User{
		Username:   result.Username,
		FullName:   result.FullName,
		ExternalID: result.ExternalID,
		AuthSource: string(h.method),
	}
	return assertion
}

// finishLogin runs the reconciler on an assertion and turns its outcome
// into HTTP: a session plus redirect, a missing-email round trip, or an
// error page.
func (h *AuthHandler) finishLogin(
	c *gin.Context,
	assertion auth.Assertion,
	requestEmail, redirectTo string,
) {
	outcome, err := h.reconciler.Reconcile(c.Request.Context(), assertion, requestEmail)
	if err != nil {
		var dup *services.DuplicateIdentityError
		if errors.As(err, &dup) {
			h.audit.Record(services.AuditEntry{
				EventType:     models.EventDuplicateIdentityRejected,
				Severity:      models.SeverityWarning,
				ActorUsername: assertion.Identifier,
				ActorIP:       c.ClientIP(),
				AuthMethod:    string(assertion.Method),
				Action:        "login",
				ErrorMessage:  dup.Error(),
			})
			h.renderLogin(c, http.StatusUnauthorized, gin.H{
				"error":    dup.Error(),
				"redirect": redirectTo,
			})
			return
		}

		h.renderLogin(c, http.StatusInternalServerError, gin.H{
			"error":    "Login failed, please try again",
			"redirect": redirectTo,
		})
		return
	}

	if outcome.State == services.StateNeedEmail {
		h.handleNeedEmail(c, assertion, redirectTo)
		return
	}

	session := sessions.Default(c)
	session.Set(SessionUserID, outcome.User.ID)
	session.Set(SessionUsername, outcome.User.Username)
	session.Set(SessionLastLoginMethod, string(assertion.Method))
	if err := session.Save(); err != nil {
		h.renderLogin(c, http.StatusInternalServerError, gin.H{
			"error": "Failed to create session",
		})
		return
	}

	if outcome.Provisioned {
		h.audit.Record(services.AuditEntry{
			EventType:     models.EventUserProvisioned,
			Severity:      models.SeverityInfo,
			ActorUserID:   outcome.User.ID,
			ActorUsername: outcome.User.Username,
			ActorIP:       c.ClientIP(),
			AuthMethod:    string(assertion.Method),
			Action:        "provision",
			Success:       true,
		})
	}
	h.audit.Record(services.AuditEntry{
		EventType:     models.EventAuthenticationSuccess,
		Severity:      models.SeverityInfo,
		ActorUserID:   outcome.User.ID,
		ActorUsername: outcome.User.Username,
		ActorIP:       c.ClientIP(),
		AuthMethod:    string(assertion.Method),
		Action:        "login",
		Success:       true,
	})
	if outcome.SyncErr != nil {
		h.audit.Record(services.AuditEntry{
			EventType:     models.EventGroupSyncFailed,
			Severity:      models.SeverityError,
			ActorUserID:   outcome.User.ID,
			ActorUsername: outcome.User.Username,
			ActorIP:       c.ClientIP(),
			AuthMethod:    string(assertion.Method),
			Action:        "group_sync",
			ErrorMessage:  outcome.SyncErr.Error(),
		})
	}

	// Redirect to the originally-intended destination when one was
	// recorded, else to the default landing page.
	if redirectTo != "" {
		c.Redirect(http.StatusFound, redirectTo)
	} else {
		c.Redirect(http.StatusFound, "/")
	}
}

// handleNeedEmail preserves the login input and bounces back to the login
// form so the user can supply the missing email. No session survives this
// outcome: whatever the backend may have established is cleared here.
func (h *AuthHandler) handleNeedEmail(c *gin.Context, assertion auth.Assertion, redirectTo string) {
	session := sessions.Default(c)
	session.Delete(SessionUserID)
	session.Delete(SessionUsername)
	session.Delete(SessionLastLoginMethod)

	session.Set(FlashRequestEmail, true)
	session.Set(FlashEmailInput, c.PostForm(h.method.UsernameField()))
	if h.cfg.IsDemo() {
		session.Set(FlashPasswordInput, c.PostForm("password"))
	}
	if redirectTo != "" {
		session.Set(FlashRedirect, redirectTo)
	}
	if err := session.Save(); err != nil {
		h.renderLogin(c, http.StatusInternalServerError, gin.H{
			"error": "Failed to save session",
		})
		return
	}

	h.audit.Record(services.AuditEntry{
		EventType:     models.EventEmailRequested,
		Severity:      models.SeverityInfo,
		ActorUsername: assertion.Identifier,
		ActorIP:       c.ClientIP(),
		AuthMethod:    string(assertion.Method),
		Action:        "login",
	})

	c.Redirect(http.StatusFound, "/login")
}

// Logout tears the session down according to how it was established and
// redirects to the dispatcher's target.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)

	username := ""
	if v, ok := session.Get(SessionUsername).(string); ok {
		username = v
	}
	userID := ""
	if v, ok := session.Get(SessionUserID).(string); ok {
		userID = v
	}

	outcome, err := h.dispatcher.Logout(&ginSessionState{session: session})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to save session",
		})
		return
	}

	h.audit.Record(services.AuditEntry{
		EventType:     models.EventLogout,
		Severity:      models.SeverityInfo,
		ActorUserID:   userID,
		ActorUsername: username,
		ActorIP:       c.ClientIP(),
		Action:        "logout",
		Success:       true,
	})

	c.Redirect(http.StatusFound, outcome.RedirectURL)
}

// renderLogin renders the login template with the fields every render
// needs merged in.
func (h *AuthHandler) renderLogin(c *gin.Context, status int, data gin.H) {
	drivers := make([]gin.H, 0, len(h.social))
	for _, p := range h.social {
		drivers = append(drivers, gin.H{
			"name":        p.Driver(),
			"displayName": p.DisplayName(),
		})
	}

	merged := gin.H{
		"authMethod":    string(h.method),
		"usernameField": h.method.UsernameField(),
		"samlEnabled":   h.cfg.SAMLEnabled,
		"socialDrivers": drivers,
		"emailInput":    "",
		"passwordInput": "",
		"redirect":      "",
	}
	for k, v := range data {
		merged[k] = v
	}
	c.HTML(status, "login.html", merged)
}
