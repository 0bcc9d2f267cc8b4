package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heshen/BookStack-1/internal/cache"
	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	groups map[string][]string
	err    error
}

func (f *fakeDirectory) GroupsFor(ctx context.Context, identifier string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.groups[identifier], nil
}

func TestShouldSync(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{}
	roles := map[string]string{"staff": models.RoleViewer}

	assert.True(t, NewDirectoryGroupSyncer(fs, dir, nil, true, roles).ShouldSync())
	assert.False(t, NewDirectoryGroupSyncer(fs, dir, nil, false, roles).ShouldSync())
	assert.False(t, NewDirectoryGroupSyncer(fs, nil, nil, true, roles).ShouldSync())
	assert.False(t, NewDirectoryGroupSyncer(fs, dir, nil, true, nil).ShouldSync())
}

func TestSyncAppliesMappedRole(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{groups: map[string][]string{
		"jane": {"everyone", "editors"},
	}}
	syncer := NewDirectoryGroupSyncer(fs, dir, nil, true, map[string]string{
		"editors": "editor",
	})
	user := &models.User{ID: "u1", Username: "jane", Role: models.RoleViewer}

	require.NoError(t, syncer.Sync(context.Background(), user, "jane"))

	assert.Equal(t, "editor", user.Role)
	assert.Equal(t, "editor", fs.roles["u1"])
}

func TestSyncAdminMappingWins(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{groups: map[string][]string{
		"jane": {"editors", "wheel", "everyone"},
	}}
	syncer := NewDirectoryGroupSyncer(fs, dir, nil, true, map[string]string{
		"editors": "editor",
		"wheel":   models.RoleAdmin,
	})
	user := &models.User{ID: "u1", Username: "jane", Role: models.RoleViewer}

	require.NoError(t, syncer.Sync(context.Background(), user, "jane"))
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestSyncNoMappedGroups(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{groups: map[string][]string{
		"jane": {"everyone"},
	}}
	syncer := NewDirectoryGroupSyncer(fs, dir, nil, true, map[string]string{
		"editors": "editor",
	})
	user := &models.User{ID: "u1", Username: "jane", Role: models.RoleViewer}

	require.NoError(t, syncer.Sync(context.Background(), user, "jane"))

	// Nothing mapped, local role stands untouched.
	assert.Equal(t, models.RoleViewer, user.Role)
	assert.Empty(t, fs.roles)
}

func TestSyncUnchangedRoleSkipsWrite(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{groups: map[string][]string{
		"jane": {"editors"},
	}}
	syncer := NewDirectoryGroupSyncer(fs, dir, nil, true, map[string]string{
		"editors": "editor",
	})
	user := &models.User{ID: "u1", Username: "jane", Role: "editor"}

	require.NoError(t, syncer.Sync(context.Background(), user, "jane"))
	assert.Empty(t, fs.roles)
}

func TestSyncDirectoryFailure(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{err: errors.New("connection refused")}
	syncer := NewDirectoryGroupSyncer(fs, dir, nil, true, map[string]string{
		"editors": "editor",
	})
	user := &models.User{ID: "u1", Username: "jane"}

	err := syncer.Sync(context.Background(), user, "jane")
	assert.ErrorContains(t, err, "directory lookup")
}

type fakeInvalidator struct {
	ids []string
}

func (f *fakeInvalidator) InvalidateCached(ctx context.Context, id string) {
	f.ids = append(f.ids, id)
}

func TestSyncInvalidatesCacheOnRoleChange(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{groups: map[string][]string{
		"jane": {"editors"},
	}}
	inv := &fakeInvalidator{}
	syncer := NewDirectoryGroupSyncer(fs, dir, inv, true, map[string]string{
		"editors": "editor",
	})
	user := &models.User{ID: "u1", Username: "jane", Role: models.RoleViewer}

	require.NoError(t, syncer.Sync(context.Background(), user, "jane"))
	assert.Equal(t, []string{"u1"}, inv.ids)
}

func TestSyncUnchangedRoleSkipsInvalidation(t *testing.T) {
	fs := newFakeProvisionStore()
	dir := &fakeDirectory{groups: map[string][]string{
		"jane": {"editors"},
	}}
	inv := &fakeInvalidator{}
	syncer := NewDirectoryGroupSyncer(fs, dir, inv, true, map[string]string{
		"editors": "editor",
	})
	user := &models.User{ID: "u1", Username: "jane", Role: "editor"}

	require.NoError(t, syncer.Sync(context.Background(), user, "jane"))
	assert.Empty(t, inv.ids)
}

// A role granted by directory sync must be visible through the cached
// user lookup on the next request, not after the cache TTL.
func TestSyncedRoleVisibleThroughCachedLookup(t *testing.T) {
	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	ctx := context.Background()

	userService := NewUserService(s, cache.NewMemoryCache[models.User](), time.Minute)

	user := &models.User{
		ID:         uuid.New().String(),
		Username:   "jane",
		Email:      "jane@example.com",
		AuthSource: "ldap",
	}
	require.NoError(t, s.CreateUser(ctx, user))

	// Warm the cache with the pre-sync role.
	warm, err := userService.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleViewer, warm.Role)

	dir := &fakeDirectory{groups: map[string][]string{
		"jane": {"wheel"},
	}}
	syncer := NewDirectoryGroupSyncer(s, dir, userService, true, map[string]string{
		"wheel": models.RoleAdmin,
	})
	user.Role = models.RoleViewer
	require.NoError(t, syncer.Sync(ctx, user, "jane"))

	promoted, err := userService.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestSyncMissingIdentifier(t *testing.T) {
	fs := newFakeProvisionStore()
	syncer := NewDirectoryGroupSyncer(fs, &fakeDirectory{}, nil, true, map[string]string{
		"editors": "editor",
	})

	err := syncer.Sync(context.Background(), &models.User{ID: "u1", Username: "jane"}, "")
	assert.ErrorContains(t, err, "no directory identifier")
}
