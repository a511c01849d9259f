package gate

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is per-submitter sliding-window admission control.
type RateLimiter interface {
	// Allow reports whether the submitter may be admitted now. A rejected
	// call records no timestamp, so hammering the limiter does not extend
	// the lockout.
	Allow(ctx context.Context, submitter int64) (bool, error)
}

// MemoryRateLimiter keeps admission history in process memory. History
// resets on restart; expired timestamps are pruned on every check so a
// submitter's slice never grows past max.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	history map[int64][]time.Time
	now     func() time.Time
}

// NewMemoryRateLimiter constructs the in-memory limiter.
func NewMemoryRateLimiter(window time.Duration, max int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		window:  window,
		max:     max,
		history: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// Allow implements RateLimiter.
func (l *MemoryRateLimiter) Allow(_ context.Context, submitter int64) (bool, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.history[submitter][:0]
	for _, ts := range l.history[submitter] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.history[submitter] = kept
		return false, nil
	}

	l.history[submitter] = append(kept, now)
	return true, nil
}

// RedisRateLimiter shares the sliding window across processes via a
// sorted set per submitter, scored by unix nanos.
type RedisRateLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
}

// NewRedisRateLimiter constructs the Redis-backed limiter.
func NewRedisRateLimiter(client *redis.Client, window time.Duration, max int) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, window: window, max: max}
}

// Allow implements RateLimiter.
func (l *RedisRateLimiter) Allow(ctx context.Context, submitter int64) (bool, error) {
	key := "ratelimit:" + strconv.FormatInt(submitter, 10)
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-l.window).UnixNano(), 10)

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err(); err != nil {
		return false, err
	}
	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count >= int64(l.max) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := l.client.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member}).Err(); err != nil {
		return false, err
	}
	return true, l.client.Expire(ctx, key, l.window).Err()
}
