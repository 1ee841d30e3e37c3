package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Throttle limits login attempts per key (client IP plus username).
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// MemoryThrottle keeps a token bucket per key in process memory. Buckets
// idle for longer than the window are swept at most once per window.
type MemoryThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	window   time.Duration
	limiters map[string]*throttleEntry
	swept    time.Time
	now      func() time.Time
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryThrottle allows attempts per window, refilling evenly.
func NewMemoryThrottle(attempts int, window time.Duration) *MemoryThrottle {
	if attempts < 1 {
		attempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryThrottle{
		limit:    rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
		window:   window,
		limiters: make(map[string]*throttleEntry),
		now:      time.Now,
	}
}

func (t *MemoryThrottle) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.evict(now)

	entry, ok := t.limiters[key]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

func (t *MemoryThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	delete(t.limiters, key)
	t.mu.Unlock()
	return nil
}

func (t *MemoryThrottle) evict(now time.Time) {
	if now.Sub(t.swept) < t.window {
		return
	}
	t.swept = now
	for key, entry := range t.limiters {
		if now.Sub(entry.lastSeen) > t.window {
			delete(t.limiters, key)
		}
	}
}

// RedisThrottle counts attempts in a fixed window shared by every API
// replica.
type RedisThrottle struct {
	client   redis.UniversalClient
	attempts int64
	window   time.Duration
	prefix   string
}

func NewRedisThrottle(client redis.UniversalClient, attempts int, window time.Duration) *RedisThrottle {
	if attempts < 1 {
		attempts = 1
	}
	return &RedisThrottle{
		client:   client,
		attempts: int64(attempts),
		window:   window,
		prefix:   "guardpost:login:",
	}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := t.prefix + key
	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= t.attempts, nil
}

func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.prefix+key).Err()
}

// NoThrottle allows every attempt.
type NoThrottle struct{}

func (NoThrottle) Allow(context.Context, string) (bool, error) { return true, nil }
func (NoThrottle) Reset(context.Context, string) error { return nil }
