package store

import (
	"context"
	"fmt"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

// UpsertKBCacheEntry persists a knowledge-base lookup result for audit and
// offline inspection. The live cache path used during enrichment is
// internal/kbclient's Redis/in-memory cache; this table is the durable
// record the KBCacheEntry lifecycle (§3) describes, kept alongside it.
func (s *Store) UpsertKBCacheEntry(ctx context.Context, entry domain.KBCacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kb_cache (cache_key, kb_id, label, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			kb_id = excluded.kb_id,
			label = excluded.label,
			description = excluded.description,
			created_at = excluded.created_at
	`, entry.Key, entry.KBID, entry.Label, nullString(entry.Description), entry.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert kb cache entry: %w", err)
	}
	return nil
}
