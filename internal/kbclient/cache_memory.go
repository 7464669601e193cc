package kbclient

import (
	"context"
	"sync"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

// MemoryCache is a process-local, mutex-guarded TTL cache used when the KB
// use_redis setting is off.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     domain.KBCacheEntry
	expiresAt time.Time
}

// NewMemoryCache builds an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.KBCacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	v := e.value
	return &v, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, entry domain.KBCacheEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = memoryEntry{value: entry, expiresAt: time.Now().Add(ttl)}
	return nil
}
