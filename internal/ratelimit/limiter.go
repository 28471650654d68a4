// Package ratelimit implements a fixed-window request limiter backed by Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "peernotes:rl"

var errMissingClient = errors.New("ratelimit: redis client is nil")

type Config struct {
	Client redis.Cmdable
	Limit  int
	Window time.Duration
}

// Limiter allows at most Limit hits per key within each Window.
type Limiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
}

func NewLimiter(cfg Config) (*Limiter, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("ratelimit: limit must be positive, got %d", cfg.Limit)
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: cfg.Client, limit: cfg.Limit, window: window}, nil
}

// Allow counts one hit for resource and key. It returns false once the window's
// budget is spent. Store errors are returned so callers can choose to fail open.
func (l *Limiter) Allow(ctx context.Context, resource, key string) (bool, error) {
	if l == nil || l.client == nil {
		return false, errMissingClient
	}

	storeKey := fmt.Sprintf("%s:%s:%s", keyPrefix, resource, key)
	count, err := l.client.Incr(ctx, storeKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, storeKey, l.window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}
