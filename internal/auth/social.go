package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// SocialProviderConfig contains configuration for a social login driver
type SocialProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// SocialUserInfo contains the profile a social driver returned for the
// authenticated caller.
type SocialUserInfo struct {
	ProviderUserID string // provider-scoped user ID (sub)
	Username       string
	Email          string // may be empty when the scope did not cover it
	FullName       string
	AvatarURL      string
}

// SocialProvider handles OAuth-based social login for one driver.
type SocialProvider struct {
	config *oauth2.Config
	driver string // "github", "google", etc.
}

// NewGitHubProvider creates a GitHub social login driver
func NewGitHubProvider(cfg SocialProviderConfig) *SocialProvider {
	return &SocialProvider{
		driver: "github",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
	}
}

// NewGoogleProvider creates a Google social login driver
func NewGoogleProvider(cfg SocialProviderConfig) *SocialProvider {
	return &SocialProvider{
		driver: "google",
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		},
	}
}

// GetAuthURL returns the OAuth authorization URL
func (p *SocialProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an authorization code for an access token
func (p *SocialProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

// GetUserInfo retrieves the caller's profile from the driver
func (p *SocialProvider) GetUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*SocialUserInfo, error) {
	switch p.driver {
	case "github":
		return p.getGitHubUserInfo(ctx, token)
	case "google":
		return p.getGoogleUserInfo(ctx, token)
	default:
		return nil, fmt.Errorf("unsupported social driver: %s", p.driver)
	}
}

// Driver returns the driver name
func (p *SocialProvider) Driver() string {
	return p.driver
}

// DisplayName returns the human-readable driver name for the login page
func (p *SocialProvider) DisplayName() string {
	switch p.driver {
	case "github":
		return "GitHub"
	case "google":
		return "Google"
	default:
		if len(p.driver) == 0 {
			return ""
		}
		firstChar := p.driver[0]
		if firstChar >= 'a' && firstChar <= 'z' {
			firstChar -= 32
		}
		return string(firstChar) + p.driver[1:]
	}
}

func (p *SocialProvider) getGitHubUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*SocialUserInfo, error) {
	var ghUser struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := p.fetchJSON(ctx, token, "https://api.github.com/user", &ghUser); err != nil {
		return nil, err
	}

	// The public profile email may be unset even when the account has one.
	// The reconciler treats a missing email as a prompt for the user, so we
	// pass it through as-is.
	return &SocialUserInfo{
		ProviderUserID: fmt.Sprintf("%d", ghUser.ID),
		Username:       ghUser.Login,
		Email:          ghUser.Email,
		FullName:       ghUser.Name,
		AvatarURL:      ghUser.AvatarURL,
	}, nil
}

func (p *SocialProvider) getGoogleUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*SocialUserInfo, error) {
	var gUser struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := p.fetchJSON(ctx, token,
		"https://openidconnect.googleapis.com/v1/userinfo", &gUser); err != nil {
		return nil, err
	}

	return &SocialUserInfo{
		ProviderUserID: gUser.Sub,
		Username:       gUser.Email,
		Email:          gUser.Email,
		FullName:       gUser.Name,
		AvatarURL:      gUser.Picture,
	}, nil
}

func (p *SocialProvider) fetchJSON(
	ctx context.Context,
	token *oauth2.Token,
	url string,
	out any,
) error {
	client := p.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("social profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("social profile request returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("social profile decode failed: %w", err)
	}
	return nil
}
