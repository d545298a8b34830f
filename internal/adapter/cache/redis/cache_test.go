package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCache(client), server
}

func TestGet_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, ok, err := cache.Get(context.Background(), "key-1234567890")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t)

	reference := uuid.New()
	require.NoError(t, cache.Set(ctx, "key-1234567890", reference, time.Hour))

	got, ok, err := cache.Get(ctx, "key-1234567890")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, reference, got)

	// The mapping is namespaced and carries the TTL.
	assert.True(t, server.Exists("transfer:idempotency:key-1234567890"))
	ttl := server.TTL("transfer:idempotency:key-1234567890")
	assert.Equal(t, time.Hour, ttl)
}

func TestGet_ExpiredEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t)

	require.NoError(t, cache.Set(ctx, "key-1234567890", uuid.New(), time.Minute))
	server.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "key-1234567890")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, server := newTestCache(t)

	require.NoError(t, server.Set("transfer:idempotency:key-1234567890", "not-a-uuid"))

	_, ok, err := cache.Get(ctx, "key-1234567890")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_ServerDownReturnsError(t *testing.T) {
	cache, server := newTestCache(t)
	server.Close()

	_, _, err := cache.Get(context.Background(), "key-1234567890")
	assert.Error(t, err)
}
