package bootstrap

import (
	"log"

	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/config"
)

// initializeSocialProviders creates the configured social login drivers
func initializeSocialProviders(cfg *config.Config) map[string]*auth.SocialProvider {
	providers := make(map[string]*auth.SocialProvider)

	if cfg.GitHubOAuthEnabled {
		providers["github"] = auth.NewGitHubProvider(auth.SocialProviderConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubOAuthRedirectURL,
			Scopes:       cfg.GitHubOAuthScopes,
		})
	}

	if cfg.GoogleOAuthEnabled {
		providers["google"] = auth.NewGoogleProvider(auth.SocialProviderConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleOAuthRedirectURL,
			Scopes:       cfg.GoogleOAuthScopes,
		})
	}

	return providers
}

func logSocialProvidersStatus(providers map[string]*auth.SocialProvider) {
	if len(providers) == 0 {
		log.Println("Social login: no drivers enabled")
		return
	}
	for name := range providers {
		log.Printf("Social login driver enabled: %s", name)
	}
}
