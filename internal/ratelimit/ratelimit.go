// Package ratelimit bounds how often a caller may hit an endpoint.
//
// The two backends do not shape traffic the same way. RedisLimiter counts
// requests in fixed windows, so a caller may spend limit requests at the end
// of one window and limit more at the start of the next. MemoryLimiter is a
// token bucket holding at most limit tokens and refilling one every
// window/limit, so after the initial burst it admits a steady trickle rather
// than a fresh allowance at each window boundary.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every instance pointing at
// the same Redis.
type RedisLimiter struct {
	client redis.Cmdable
	scope  string
	limit  int
	window time.Duration
	logger zerolog.Logger
}

// NewRedisLimiter creates a limiter allowing limit requests per window for each key.
func NewRedisLimiter(client redis.Cmdable, scope string, limit int, window time.Duration, logger zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		scope:  scope,
		limit:  limit,
		window: window,
		logger: logger.With().Str("component", "ratelimit").Str("scope", scope).Logger(),
	}
}

// Key returns the Redis key holding the counter for id.
func (l *RedisLimiter) Key(id string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.scope, id)
}

// Allow increments the window counter for key. The window starts on the first hit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.Key(key)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	count := incr.Val()
	if count > int64(l.limit) {
		l.logger.Debug().Str("key", key).Int64("count", count).Msg("rate limit exceeded")
		return false, nil
	}
	return true, nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-process token bucket keyed by caller. It is the
// fallback when no Redis is configured; limits are per instance.
type MemoryLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiter creates a limiter refilling limit tokens per window with a
// burst of limit. Keys unused for idle are evicted.
func NewMemoryLimiter(limit int, window, idle time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow takes a token for key. It never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1), nil
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// sweep drops idle visitors at most once per idle period. Callers hold mu.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, key)
		}
	}
}
