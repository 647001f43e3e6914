package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cliptube/backend/internal/logging"
)

// redisRateLimiter implements a fixed-window counter per key: INCR the key,
// set its expiry on first increment, and reject once the window count exceeds
// the limit. Counting survives restarts and is shared across replicas.
type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRedisRateLimiter constructs a limiter allowing up to `requests` events
// per `window` per key, counted in redis.
func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration) RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &redisRateLimiter{
		client: client,
		limit:  int64(requests),
		window: window,
	}
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string) bool {
	if key == "" {
		key = "unknown"
	}
	key = fmt.Sprintf("ratelimit:%s", key)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		// Fail open when redis is unreachable.
		logging.FromContext(ctx).Warn("redis rate limiter unavailable", "error", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			logging.FromContext(ctx).Warn("redis rate limiter expire failed", "key", key, "error", err)
		}
	}

	return count <= l.limit
}
