package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowlet/flowlet/internal/pymod"
)

const (
	moduleKeyPrefix = "pymod:"
	// ModuleCacheTTL bounds how long a resolution result is trusted.
	ModuleCacheTTL = 10 * time.Minute
)

// ModuleCache memoizes import resolution in Redis. Redis failures fall
// through to the wrapped resolver.
type ModuleCache struct {
	cache  *Cache
	next   pymod.Resolver
	logger *slog.Logger
}

var _ pymod.Resolver = (*ModuleCache)(nil)

// NewModuleCache wraps next with a Redis-backed cache.
func NewModuleCache(c *Cache, next pymod.Resolver, logger *slog.Logger) *ModuleCache {
	return &ModuleCache{cache: c, next: next, logger: logger}
}

// Resolve implements pymod.Resolver.
func (m *ModuleCache) Resolve(ctx context.Context, name string) (bool, error) {
	key := m.cache.key(moduleKeyPrefix, name)

	v, err := m.cache.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return v == "1", nil
	case !errors.Is(err, redis.Nil):
		m.logger.Debug("module cache read failed", slog.String("module", name), slog.String("error", err.Error()))
	}

	found, err := m.next.Resolve(ctx, name)
	if err != nil {
		return false, err
	}

	v = "0"
	if found {
		v = "1"
	}
	if err := m.cache.client.Set(ctx, key, v, ModuleCacheTTL).Err(); err != nil {
		m.logger.Debug("module cache write failed", slog.String("module", name), slog.String("error", err.Error()))
	}

	return found, nil
}
