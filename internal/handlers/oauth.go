package handlers

import (
	"log"
	"net/http"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SocialRedirect starts the OAuth dance for one social driver.
func (h *AuthHandler) SocialRedirect(c *gin.Context) {
	provider, ok := h.social[c.Param("driver")]
	if !ok {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"error": "Unknown social login driver",
		})
		return
	}

	state := uuid.New().String()
	session := sessions.Default(c)
	session.Set(SessionOAuthState, state)
	if err := session.Save(); err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Failed to save session",
		})
		return
	}

	c.Redirect(http.StatusFound, provider.GetAuthURL(state))
}

// SocialCallback finishes the OAuth dance: exchange the code, fetch the
// profile, build an assertion and hand it to the reconciler like any other
// login.
func (h *AuthHandler) SocialCallback(c *gin.Context) {
	driver := c.Param("driver")
	provider, ok := h.social[driver]
	if !ok {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"error": "Unknown social login driver",
		})
		return
	}

	session := sessions.Default(c)
	expectedState, _ := session.Get(SessionOAuthState).(string)
	session.Delete(SessionOAuthState)
	_ = session.Save()

	if expectedState == "" || c.Query("state") != expectedState {
		log.Printf("[OAuth] %s callback rejected: %v", driver, auth.ErrOAuthStateMismatch)
		h.renderLogin(c, http.StatusUnauthorized, gin.H{
			"error": "Social login failed, please try again",
		})
		return
	}

	token, err := provider.ExchangeCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.renderLogin(c, http.StatusUnauthorized, gin.H{
			"error": "Social login failed, please try again",
		})
		return
	}

	info, err := provider.GetUserInfo(c.Request.Context(), token)
	if err != nil {
		h.renderLogin(c, http.StatusUnauthorized, gin.H{
			"error": "Social login failed, please try again",
		})
		return
	}

	h.finishLogin(c, h.socialAssertion(c, driver, info), c.Query("email"), "")
}

// socialAssertion maps a social profile onto an assertion. The driver plus
// provider user id is the stable identity key; a match there means the
// identity is already linked regardless of email changes at the provider.
func (h *AuthHandler) socialAssertion(
	c *gin.Context,
	driver string,
	info *auth.SocialUserInfo,
) auth.Assertion {
	externalID := driver + ":" + info.ProviderUserID
	assertion := auth.Assertion{
		Method:     auth.MethodSocial,
		Email:      info.Email,
		Identifier: info.Username,
	}

	if user, err := h.store.GetUserByExternalID(
		c.Request.Context(), externalID, string(auth.MethodSocial),
	); err == nil {
		assertion.Exists = true
		assertion.User = user
		return assertion
	}

	assertion.User = &models.User{
		Username:   info.Username,
		FullName:   info.FullName,
		AvatarURL:  info.AvatarURL,
		ExternalID: externalID,
		AuthSource: string(auth.MethodSocial),
	}
	return assertion
}
