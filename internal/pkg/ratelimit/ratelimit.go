package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter is a fixed-window per-key rate limiter backed by Redis.
// A nil Redis client disables limiting (every call is allowed), matching how
// the rest of the service treats Redis as optional in development.
type Limiter struct {
	redis  *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// New creates a limiter allowing limit calls per window per key
func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{redis: client, prefix: prefix, limit: limit, window: window}
}

// Allow reports whether the call for key is within the limit. Redis failures
// fail open: a broken limiter must not take the API down.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.redis == nil || l.limit <= 0 {
		return true
	}

	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
		return true
	}
	if count == 1 {
		l.redis.Expire(ctx, redisKey, l.window)
	}

	return count <= int64(l.limit)
}
