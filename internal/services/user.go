package services

import (
	"context"
	"errors"
	"time"

	"github.com/heshen/BookStack-1/internal/core"
	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/store"
)

var ErrUserNotFound = errors.New("user not found")

// UserService serves user lookups through a cache-aside layer. The auth
// middleware resolves the current user on every request, so lookups are
// cached.
type UserService struct {
	store    *store.Store
	cache    core.Cache[models.User] // nil disables caching
	cacheTTL time.Duration
}

func NewUserService(
	s *store.Store,
	userCache core.Cache[models.User],
	cacheTTL time.Duration,
) *UserService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &UserService{
		store:    s,
		cache:    userCache,
		cacheTTL: cacheTTL,
	}
}

// GetUserByID returns the user for a session's user id.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if s.cache == nil {
		return s.lookupByID(ctx, id)
	}

	user, err := s.cache.GetWithFetch(
		ctx,
		"user:"+id,
		s.cacheTTL,
		func(ctx context.Context, _ string) (models.User, error) {
			u, err := s.lookupByID(ctx, id)
			if err != nil {
				return models.User{}, err
			}
			return *u, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail returns the user owning an email address, uncached; the
// reconciler's collision check must always see current data.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// InvalidateCached drops a user's cached entry, e.g. after group sync
// changed their role.
func (s *UserService) InvalidateCached(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "user:"+id)
}

func (s *UserService) lookupByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
