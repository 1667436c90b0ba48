package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// memoryNegCacheMaxEntries bounds the in-process negative cache.
const memoryNegCacheMaxEntries = 4096

// MemoryNegativeCache is the in-process negative cache used when no
// Redis URL is configured. Ristretto gives it a hard size bound and
// per-entry TTL without any bookkeeping of our own.
type MemoryNegativeCache struct {
	cache *ristretto.Cache[string, struct{}]
	ttl   time.Duration
}

// NewMemoryNegativeCache creates an in-memory negative cache.
// TTLs above MaxNegativeCacheTTL are clamped.
func NewMemoryNegativeCache(ttl time.Duration) (*MemoryNegativeCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
		NumCounters: memoryNegCacheMaxEntries * 10,
		MaxCost:     memoryNegCacheMaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build negative cache: %w", err)
	}
	return &MemoryNegativeCache{cache: c, ttl: clampTTL(ttl)}, nil
}

// IsNegativelyCached checks whether a handle was recently confirmed
// missing.
func (m *MemoryNegativeCache) IsNegativelyCached(_ context.Context, handle string) (bool, error) {
	_, ok := m.cache.Get(profileKeyPrefix + handle + negCacheKeySuffix)
	return ok, nil
}

// SetNegative marks a handle as not found.
func (m *MemoryNegativeCache) SetNegative(_ context.Context, handle string) error {
	m.cache.SetWithTTL(profileKeyPrefix+handle+negCacheKeySuffix, struct{}{}, 1, m.ttl)
	return nil
}

// Wait flushes pending writes; tests need it because ristretto admits
// entries asynchronously.
func (m *MemoryNegativeCache) Wait() {
	m.cache.Wait()
}

// Close releases the cache's internal goroutines.
func (m *MemoryNegativeCache) Close() {
	m.cache.Close()
}
