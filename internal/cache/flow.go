package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowlet/flowlet/internal/model"
)

// Cache key prefixes and TTLs.
const (
	flowKeyPrefix     = "flow:"
	negCacheKeySuffix = ":neg"

	// DefaultFlowTTL is the TTL for cached flow graphs.
	DefaultFlowTTL = 10 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetFlow retrieves a cached flow by id.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetFlow(ctx context.Context, id string) (*model.Flow, error) {
	result, err := c.client.HGetAll(ctx, c.key(flowKeyPrefix, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrCacheMiss
	}

	updatedAt, _ := time.Parse(time.RFC3339Nano, result["updated_at"])
	return &model.Flow{
		ID:          id,
		UserID:      result["user_id"],
		Name:        result["name"],
		Description: result["description"],
		Data:        []byte(result["data"]),
		UpdatedAt:   updatedAt,
	}, nil
}

// SetFlow stores a flow in cache and clears any negative entry.
func (c *Cache) SetFlow(ctx context.Context, flow *model.Flow) error {
	key := c.key(flowKeyPrefix, flow.ID)

	fields := map[string]any{
		"user_id":     flow.UserID,
		"name":        flow.Name,
		"description": flow.Description,
		"data":        string(flow.Data),
		"updated_at":  flow.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, DefaultFlowTTL)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache flow: %w", err)
	}

	return nil
}

// DeleteFlow removes a flow and its negative entry from cache.
func (c *Cache) DeleteFlow(ctx context.Context, id string) error {
	key := c.key(flowKeyPrefix, id)

	if err := c.client.Del(ctx, key, key+negCacheKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to delete flow from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a flow id is in negative cache.
func (c *Cache) IsNegativelyCached(ctx context.Context, id string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.key(flowKeyPrefix, id)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a flow id as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, id string) error {
	err := c.client.SetEx(ctx, c.key(flowKeyPrefix, id)+negCacheKeySuffix, "", NegativeCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
