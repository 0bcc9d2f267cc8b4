package services

import (
	"context"
	"fmt"

	"github.com/heshen/BookStack-1/internal/models"
)

// DirectoryClient answers group-membership questions for an external
// directory entry. The wire protocol behind it (LDAP search, SCIM, an HTTP
// API) is not this subsystem's concern.
type DirectoryClient interface {
	// GroupsFor returns the external group names the identifier belongs to.
	GroupsFor(ctx context.Context, identifier string) ([]string, error)
}

// UserCacheInvalidator drops a user's cached entry after a write changed
// the persisted record. The auth middleware reads users through a
// cache-aside layer, so a role change must not keep serving stale data.
type UserCacheInvalidator interface {
	InvalidateCached(ctx context.Context, id string)
}

// DirectoryGroupSyncer maps external directory groups onto local roles
// using a configured group-to-role table. It implements GroupSyncer.
type DirectoryGroupSyncer struct {
	store      provisionStore
	client     DirectoryClient
	cache      UserCacheInvalidator // nil when user lookups are uncached
	enabled    bool
	groupRoles map[string]string // external group name -> local role
}

var _ GroupSyncer = (*DirectoryGroupSyncer)(nil)

func NewDirectoryGroupSyncer(
	s provisionStore,
	client DirectoryClient,
	cache UserCacheInvalidator,
	enabled bool,
	groupRoles map[string]string,
) *DirectoryGroupSyncer {
	return &DirectoryGroupSyncer{
		store:      s,
		client:     client,
		cache:      cache,
		enabled:    enabled,
		groupRoles: groupRoles,
	}
}

// ShouldSync reports whether group sync is configured and usable.
func (g *DirectoryGroupSyncer) ShouldSync() bool {
	return g.enabled && g.client != nil && len(g.groupRoles) > 0
}

// Sync fetches the identifier's directory groups and applies the highest
// mapped role to the user. The admin role wins over any other mapping;
// otherwise the first matching group in directory order decides.
func (g *DirectoryGroupSyncer) Sync(
	ctx context.Context,
	user *models.User,
	identifier string,
) error {
	if identifier == "" {
		return fmt.Errorf("group sync: no directory identifier for user %s", user.Username)
	}

	groups, err := g.client.GroupsFor(ctx, identifier)
	if err != nil {
		return fmt.Errorf("group sync: directory lookup for %q failed: %w", identifier, err)
	}

	role := ""
	for _, group := range groups {
		mapped, ok := g.groupRoles[group]
		if !ok {
			continue
		}
		if mapped == models.RoleAdmin {
			role = mapped
			break
		}
		if role == "" {
			role = mapped
		}
	}

	if role == "" || role == user.Role {
		// Membership unchanged or nothing mapped; stale local role stands
		// until the directory says otherwise.
		return nil
	}

	if err := g.store.SetUserRole(ctx, user.ID, role); err != nil {
		return fmt.Errorf("group sync: failed to apply role %q: %w", role, err)
	}
	user.Role = role

	// The cached copy still carries the old role; drop it so the next
	// request sees the new membership.
	if g.cache != nil {
		g.cache.InvalidateCached(ctx, user.ID)
	}
	return nil
}
