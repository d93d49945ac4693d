// Package ratelimit provides per-key request limiting backed by Redis or process memory.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scanner_server/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

// =============================================================================
// SlidingWindowLimiter - Redis sorted-set sliding window
// =============================================================================

var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window_ms)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local wait = window_ms
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if #oldest > 0 then
		wait = tonumber(oldest[2]) + window_ms - now
	end
	return {0, 0, wait}
`)

// SlidingWindowLimiter implements sliding window rate limiting using Redis.
// Redis failures fail open.
type SlidingWindowLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewSlidingWindowLimiter creates a limiter allowing limit requests per window for each key.
func NewSlidingWindowLimiter(redisClient *redis.Client, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		prefix: "ratelimit:scan",
	}
}

// Allow checks if request is allowed and returns the wait duration if not.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) Decision {
	now := time.Now()
	open := Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: now.Add(l.window)}
	if l.redis == nil || l.limit <= 0 {
		return open
	}

	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	res, err := slidingWindowScript.Run(ctx, l.redis, []string{redisKey},
		now.UnixMilli(),
		l.window.Milliseconds(),
		l.limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil || len(res) != 3 {
		logger.WithError(err).WithField("key", redisKey).Warn("rate limit check failed, allowing request")
		return open
	}

	if res[0] == 1 {
		return Decision{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: int(res[1]),
			ResetAt:   now.Add(l.window),
		}
	}

	wait := time.Duration(res[2]) * time.Millisecond
	if wait <= 0 {
		wait = l.window
	}
	return Decision{
		Allowed:    false,
		Limit:      l.limit,
		RetryAfter: wait,
		ResetAt:    now.Add(wait),
	}
}

// =============================================================================
// FixedWindowLimiter - in-memory fallback
// =============================================================================

type windowEntry struct {
	count     int
	expiresAt time.Time
}

// FixedWindowLimiter counts requests per key in fixed windows held in memory.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	limit   int
	window  time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewFixedWindowLimiter creates an in-memory limiter and starts its cleanup loop.
// Call Close to stop the loop.
func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		entries: make(map[string]*windowEntry),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.cleanup()
			case <-l.stop:
				return
			}
		}
	}()

	return l
}

// Allow counts the request against key's current window.
func (l *FixedWindowLimiter) Allow(_ context.Context, key string) Decision {
	if l.limit <= 0 {
		return Decision{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &windowEntry{expiresAt: now.Add(l.window)}
		l.entries[key] = entry
	}

	if entry.count >= l.limit {
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			RetryAfter: entry.expiresAt.Sub(now),
			ResetAt:    entry.expiresAt,
		}
	}

	entry.count++
	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - entry.count,
		ResetAt:   entry.expiresAt,
	}
}

// Close stops the cleanup loop.
func (l *FixedWindowLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *FixedWindowLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.entries {
		if !now.Before(entry.expiresAt) {
			delete(l.entries, key)
		}
	}
}
