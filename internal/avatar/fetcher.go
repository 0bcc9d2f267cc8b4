package avatar

import (
	"context"
	"crypto/md5" // #nosec G501 -- gravatar addressing requires md5, not used for security
	"fmt"
	"net/http"
	"strings"

	retry "github.com/appleboy/go-httpretry"
)

// Fetcher resolves avatar images for newly provisioned users from a
// gravatar-compatible source. Every failure is the caller's to swallow;
// avatar assignment is best-effort by contract.
type Fetcher struct {
	client    *retry.Client
	sourceURL string
}

// NewFetcher creates an avatar fetcher. sourceURL is the base URL of a
// gravatar-compatible endpoint (e.g. "https://www.gravatar.com/avatar").
func NewFetcher(client *retry.Client, sourceURL string) *Fetcher {
	return &Fetcher{
		client:    client,
		sourceURL: strings.TrimRight(sourceURL, "/"),
	}
}

// Fetch verifies that the source serves an avatar for the email and
// returns its URL. The image bytes themselves stay at the source; users
// are assigned the URL.
func (f *Fetcher) Fetch(ctx context.Context, email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	hash := md5.Sum([]byte(normalized)) // #nosec G401 -- content addressing only

	url := fmt.Sprintf("%s/%x?d=identicon&s=250", f.sourceURL, hash)

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("avatar fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar source returned HTTP %d", resp.StatusCode)
	}

	return url, nil
}
