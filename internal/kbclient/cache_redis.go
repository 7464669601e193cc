package kbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amlandas/newsgraph/internal/domain"
)

// RedisCache backs the KB cache with Redis key/value storage, the same
// client construction the teacher uses for its graph store (minus the
// graph-query layer: this cache is a flat key→struct store, not a graph).
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisConfig configures the Redis connection used for KB caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// DefaultRedisConfig mirrors the teacher's localhost-only default.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Addr: "localhost:6379", DB: 0, PoolSize: 10, Prefix: "newsgraph:kb:"}
}

// NewRedisCache builds a RedisCache. It does not eagerly ping; the first
// Get/Set call surfaces connection failures.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "newsgraph:kb:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

func (c *RedisCache) Get(ctx context.Context, key string) (*domain.KBCacheEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kb cache get: %w", err)
	}
	var entry domain.KBCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("kb cache decode: %w", err)
	}
	return &entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, entry domain.KBCacheEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("kb cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(entry.Key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("kb cache set: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }
