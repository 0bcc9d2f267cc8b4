package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache[string]()

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", -time.Second))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache[string]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheGetWithFetch(t *testing.T) {
	c := NewMemoryCache[int]()
	ctx := context.Background()

	fetches := 0
	fetch := func(ctx context.Context, key string) (int, error) {
		fetches++
		return 42, nil
	}

	got, err := c.GetWithFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, fetches)

	// Second read is served from cache.
	got, err = c.GetWithFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, fetches)
}

func TestMemoryCacheGetWithFetchError(t *testing.T) {
	c := NewMemoryCache[int]()

	fetchErr := errors.New("backend down")
	_, err := c.GetWithFetch(context.Background(), "k", time.Minute,
		func(ctx context.Context, key string) (int, error) {
			return 0, fetchErr
		})
	assert.ErrorIs(t, err, fetchErr)

	// A failed fetch is not cached.
	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
