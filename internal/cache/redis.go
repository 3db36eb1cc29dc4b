// Package cache holds the Redis connection shared by the rate
// limiters and the readiness probe.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the Redis client. All access goes through its methods;
// the raw client leaks out only for test plumbing.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection before returning.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	// The only traffic is one token-bucket script per request, so a
	// small pool is plenty.
	opt.PoolSize = 8
	opt.MinIdleConns = 1
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity for the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the underlying Redis client for test helpers.
func (c *Cache) Client() *redis.Client {
	return c.client
}
