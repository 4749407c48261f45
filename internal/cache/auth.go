package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowlet/flowlet/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:ctx:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// GetAuthContext retrieves a cached auth context by the key's lookup digest.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, lookup string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, c.key(authCachePrefix, lookup)).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached model.AuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &cached, nil
}

// SetAuthContext caches an auth context.
func (c *Cache) SetAuthContext(ctx context.Context, lookup string, auth *model.AuthContext) error {
	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, c.key(authCachePrefix, lookup), data, authCacheTTL).Err()
}

// DeleteAuthContext removes a cached auth context.
// Used when a key is revoked.
func (c *Cache) DeleteAuthContext(ctx context.Context, lookup string) error {
	return c.client.Del(ctx, c.key(authCachePrefix, lookup)).Err()
}
