// Package cache provides an optional Redis-backed cache for analytics
// snapshots. The service degrades to uncached reads when Redis is down,
// so every failure here is logged and swallowed.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/merchkit/storefront-api/pkg/circuitbreaker"
	"github.com/merchkit/storefront-api/pkg/logger"
)

// SnapshotCache stores serialized analytics snapshots under string keys
type SnapshotCache struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	ttl     time.Duration
	logger  logger.Logger
}

// NewSnapshotCache connects to Redis and returns a cache with the given TTL
func NewSnapshotCache(addr string, ttl time.Duration, logger logger.Logger) (*SnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &SnapshotCache{
		client: client,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     15 * time.Second,
			HalfOpenMaxCalls: 2,
		}),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get returns the cached snapshot for key, or false on miss, error, or
// open breaker.
func (c *SnapshotCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.breaker.Allow() {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.breaker.Success()
		return nil, false
	}
	if err != nil {
		c.breaker.Failure()
		c.logger.Warn("Cache read failed", "key", key, "error", err)
		return nil, false
	}

	c.breaker.Success()
	return data, true
}

// Set stores the snapshot under key with the configured TTL
func (c *SnapshotCache) Set(ctx context.Context, key string, data []byte) {
	if !c.breaker.Allow() {
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.breaker.Failure()
		c.logger.Warn("Cache write failed", "key", key, "error", err)
		return
	}

	c.breaker.Success()
}

// Close releases the Redis connection
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
