// Package kbclient links entity mentions to an external knowledge base
// (Wikidata), caching results with a TTL in Redis and rate-limiting outbound
// lookups, following the same connection-construction shape as the teacher's
// FalkorDB-backed graph store.
package kbclient

import (
	"context"
	"sync"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

// Client enriches entity mentions with knowledge-base links.
type Client interface {
	Enrich(ctx context.Context, surface string, entityType domain.EntityType) (*domain.KBLink, error)
	Stats() map[string]int64
	Close() error
}

// Cache is the TTL-keyed lookup cache backing a Client. The Redis-backed
// implementation lives in cache_redis.go; an in-process map implementation
// (cache_memory.go) is used instead when the KB use_redis setting is off,
// so KB enrichment degrades to process-local caching rather
// than failing outright.
type Cache interface {
	Get(ctx context.Context, key string) (*domain.KBCacheEntry, bool, error)
	Set(ctx context.Context, entry domain.KBCacheEntry, ttl time.Duration) error
}

// statCounters is embedded by Client implementations to provide Stats().
type statCounters struct {
	mu                    sync.Mutex
	hits, misses, errors  int64
	requests, rateLimited int64
}

func (s *statCounters) incr(field *int64) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// Stats returns the accumulated counters. Embedding types inherit this
// directly, satisfying Client's Stats() method.
func (s *statCounters) Stats() map[string]int64 {
	return s.snapshot()
}

func (s *statCounters) snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int64{
		"cache_hits":   s.hits,
		"cache_misses": s.misses,
		"errors":       s.errors,
		"requests":     s.requests,
		"rate_limited": s.rateLimited,
	}
}

// CacheKeyFor is the cache key a Client uses to look up surface/entityType,
// exported so callers persisting a durable audit copy (internal/store's
// kb_cache table) key it identically to the live cache.
func CacheKeyFor(surface string, entityType domain.EntityType) string {
	return cacheKey(surface, entityType)
}

// Disabled is the no-op Client used when KB enrichment is turned off by
// configuration; every lookup returns a nil KBLink, per spec.
type Disabled struct{}

func (Disabled) Enrich(ctx context.Context, surface string, entityType domain.EntityType) (*domain.KBLink, error) {
	return nil, nil
}
func (Disabled) Stats() map[string]int64 { return map[string]int64{} }
func (Disabled) Close() error            { return nil }
