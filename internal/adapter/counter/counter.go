// Package counter records per-user search usage.
package counter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Counter increments a user's search count. Callers treat failures as
// non-fatal.
type Counter interface {
	Increment(ctx context.Context, userID string) error
}

// Noop discards increments.
type Noop struct{}

func (Noop) Increment(context.Context, string) error { return nil }

// RedisKeyPrefix prefixes per-user count keys.
const RedisKeyPrefix = "search_count:"

// RedisCounter keeps counts in redis.
type RedisCounter struct {
	client redis.Cmdable
}

func NewRedisCounter(client redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: client}
}

// Increment is a no-op for anonymous callers.
func (c *RedisCounter) Increment(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if err := c.client.IncrBy(ctx, RedisKeyPrefix+userID, 1).Err(); err != nil {
		return fmt.Errorf("redis incrby failure: %w", err)
	}
	return nil
}
