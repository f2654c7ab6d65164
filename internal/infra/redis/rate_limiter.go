package redis

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether one more request fits the caller's budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	client RedisClient
	limit  int
	window time.Duration
}

func NewRateLimiter(client RedisClient, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := r.client.IncrWithTTL(ctx, key, r.window)
	if err != nil {
		return false, err
	}
	return count <= int64(r.limit), nil
}

// NoopLimiter allows everything; used when no Redis is configured.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// ClientRouteKey scopes a budget to one client address and route.
func ClientRouteKey(clientIP, route string) string {
	return fmt.Sprintf("rate_limit:%s:%s", route, clientIP)
}
