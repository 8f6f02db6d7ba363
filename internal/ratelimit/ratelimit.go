// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Limiter reports whether one more hit for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window, prefix: "ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + windowKey(key, r.window, time.Now())
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(r.limit), nil
}

// Memory keeps counters in process. Counters are per instance.
type Memory struct {
	cache  *cache.Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		cache:  cache.New(window, 2*window),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	k := windowKey(key, m.window, m.now())
	for i := 0; i < 2; i++ {
		// Add is a no-op when the counter already exists
		_ = m.cache.Add(k, int64(0), m.window)
		n, err := m.cache.IncrementInt64(k, 1)
		if err == nil {
			return n <= int64(m.limit), nil
		}
	}
	return false, fmt.Errorf("rate limit %s: counter unavailable", key)
}

func windowKey(key string, window time.Duration, now time.Time) string {
	return fmt.Sprintf("%s:%d", key, now.UnixNano()/int64(window))
}
