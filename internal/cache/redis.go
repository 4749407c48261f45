// Package cache provides the Redis cache access layer: auth contexts, rate
// limits, flow lookups and import resolution results.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the Redis client. Zero fields take the DefaultOptions value.
type Options struct {
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration

	// Namespace prefixes every key so several deployments can share one
	// Redis database.
	Namespace string
}

// DefaultOptions returns the pool settings used by the API server.
func DefaultOptions() Options {
	return Options{
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		Namespace:    "flowlet:",
	}
}

func (o Options) apply(opt *redis.Options) {
	def := DefaultOptions()
	opt.PoolSize = orDefault(o.PoolSize, def.PoolSize)
	opt.MinIdleConns = orDefault(o.MinIdleConns, def.MinIdleConns)
	opt.DialTimeout = orDefault(o.DialTimeout, def.DialTimeout)
	opt.PoolTimeout = opt.DialTimeout + time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
}

func orDefault[T int | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

// Cache provides Redis cache access methods.
type Cache struct {
	client    *redis.Client
	namespace string
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.apply(opt)

	c := NewFromClient(redis.NewClient(opt), opts.Namespace)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return c, nil
}

// NewFromClient wraps an existing client without checking connectivity.
func NewFromClient(client *redis.Client, namespace string) *Cache {
	return &Cache{client: client, namespace: namespace}
}

// key builds a namespaced Redis key.
func (c *Cache) key(prefix, id string) string {
	return c.namespace + prefix + id
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for components that own their
// own keys, such as the event stream publisher.
func (c *Cache) Client() *redis.Client {
	return c.client
}
