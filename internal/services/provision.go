package services

import (
	"context"
	"fmt"

	"github.com/heshen/BookStack-1/internal/avatar"
	"github.com/heshen/BookStack-1/internal/models"
)

// provisionStore is the persistence the provisioning service needs beyond
// what the reconciler already holds.
type provisionStore interface {
	SetUserRole(ctx context.Context, userID, role string) error
	UpdateUser(ctx context.Context, user *models.User) error
}

// AvatarFetcher resolves an avatar location for an email address.
type AvatarFetcher interface {
	Fetch(ctx context.Context, email string) (string, error)
}

// Compile-time check that the HTTP fetcher satisfies the seam.
var _ AvatarFetcher = (*avatar.Fetcher)(nil)

// ProvisioningService finishes account setup after the reconciler created
// the user record: default role membership and a best-effort avatar.
type ProvisioningService struct {
	store       provisionStore
	fetcher     AvatarFetcher // nil disables avatar assignment
	defaultRole string
}

func NewProvisioningService(
	s provisionStore,
	fetcher AvatarFetcher,
	defaultRole string,
) *ProvisioningService {
	if defaultRole == "" {
		defaultRole = models.RoleViewer
	}
	return &ProvisioningService{
		store:       s,
		fetcher:     fetcher,
		defaultRole: defaultRole,
	}
}

// AttachDefaultRole grants the configured default role to a newly created
// user. Only the role column is touched.
func (p *ProvisioningService) AttachDefaultRole(ctx context.Context, user *models.User) error {
	if err := p.store.SetUserRole(ctx, user.ID, p.defaultRole); err != nil {
		return fmt.Errorf("failed to set default role: %w", err)
	}
	user.Role = p.defaultRole
	return nil
}

// FetchAndAssignAvatar resolves and stores an avatar URL for the user.
// Callers treat any error as non-fatal.
func (p *ProvisioningService) FetchAndAssignAvatar(ctx context.Context, user *models.User) error {
	if p.fetcher == nil {
		return nil
	}
	if user.AvatarURL != "" {
		// The backend already delivered one (e.g. a social profile picture).
		return nil
	}

	url, err := p.fetcher.Fetch(ctx, user.Email)
	if err != nil {
		return err
	}

	user.AvatarURL = url
	return p.store.UpdateUser(ctx, user)
}
