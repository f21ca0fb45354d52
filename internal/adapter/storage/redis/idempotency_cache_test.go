package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "confirm:tx-1700000000000-abcd1234"
	value := "SUCCESSFUL"

	// Get before set => empty
	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Empty(t, result)

	// Set
	err = cache.Set(ctx, key, value, 24*time.Hour)
	require.NoError(t, err)

	// Get after set
	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "confirm:tx-1700000000001-deadbeef"

	err := cache.Set(ctx, key, "FAILED", 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Empty(t, result, "expired key should return empty")
}

func TestIdempotencyCache_OverwriteKey(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "confirm:tx-1700000000002-cafebabe"

	err := cache.Set(ctx, key, "first", 1*time.Hour)
	require.NoError(t, err)

	err = cache.Set(ctx, key, "second", 1*time.Hour)
	require.NoError(t, err)

	result, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "second", result)
}
