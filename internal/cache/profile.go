package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	profileKeyPrefix  = "profile:"
	negCacheKeySuffix = ":neg"

	// MaxNegativeCacheTTL caps how long a "not found" verdict sticks.
	// A handle can be registered at any moment, so entries must stay
	// short-lived.
	MaxNegativeCacheTTL = 60 * time.Second
)

// RedisNegativeCache marks handles as recently-not-found in Redis.
type RedisNegativeCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewRedisNegativeCache creates a negative cache over an existing
// Redis connection. TTLs above MaxNegativeCacheTTL are clamped.
func NewRedisNegativeCache(c *Cache, ttl time.Duration) *RedisNegativeCache {
	return &RedisNegativeCache{cache: c, ttl: clampTTL(ttl)}
}

// IsNegativelyCached checks whether a handle was recently confirmed
// missing.
func (r *RedisNegativeCache) IsNegativelyCached(ctx context.Context, handle string) (bool, error) {
	key := profileKeyPrefix + handle + negCacheKeySuffix

	exists, err := r.cache.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}
	return exists > 0, nil
}

// SetNegative marks a handle as not found.
func (r *RedisNegativeCache) SetNegative(ctx context.Context, handle string) error {
	key := profileKeyPrefix + handle + negCacheKeySuffix

	if err := r.cache.client.SetEx(ctx, key, "", r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}
	return nil
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > MaxNegativeCacheTTL {
		return MaxNegativeCacheTTL
	}
	return ttl
}
