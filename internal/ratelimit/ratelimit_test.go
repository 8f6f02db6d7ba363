package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exhaust(t *testing.T, l Limiter, key string, limit int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < limit; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		require.True(t, ok, "hit %d should be allowed", i+1)
	}
	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory(t *testing.T) {
	l := NewMemory(3, time.Minute)
	at := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return at }
	exhaust(t, l, "user:1", 3)

	ok, err := l.Allow(context.Background(), "user:2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_WindowRollover(t *testing.T) {
	l := NewMemory(1, time.Minute)
	at := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return at }
	exhaust(t, l, "k", 1)

	at = at.Add(time.Minute)
	ok, err := l.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	exhaust(t, NewRedis(client, 2, time.Minute), "test:"+uuid.NewString(), 2)
}
