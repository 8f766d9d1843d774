// Package cache is the Redis layer of the directory API. It serves
// two jobs: the short-TTL roster snapshot that absorbs the polling
// read load, and the token-bucket state behind login rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the Redis client shared by the roster snapshot and the
// login rate limiter.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection. The pool is
// tuned for this API's traffic shape: every connected client touches
// the roster key once per poll interval, so operations are frequent,
// tiny, and short-lived, and idle connections are worth keeping warm.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 16
	opt.MinIdleConns = 4
	opt.PoolTimeout = 3 * time.Second
	opt.ConnMaxIdleTime = 10 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity. The readiness probe calls this; the
// handlers themselves tolerate Redis being down (roster reads fall
// through to Postgres, rate limiting fails open).
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for health checks and
// tests. Application code goes through the typed methods on Cache.
func (c *Cache) Client() *redis.Client {
	return c.client
}
