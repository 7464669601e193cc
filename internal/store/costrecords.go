package store

import (
	"context"
	"fmt"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

// InsertCostRecord persists one extractor call's priced token usage.
// Per spec, cost must be tallied before any model call's result is
// persisted; callers insert the CostRecord first, then the extraction.
func (s *Store) InsertCostRecord(ctx context.Context, rec domain.CostRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cost_records (id, article_id, provider, model, operation, input_tokens, output_tokens, cost_usd, created_at)
		VALUES (?, ?, ?, ?, 'extraction', ?, ?, ?, ?)
	`,
		rec.ID, nullString(rec.ArticleID), rec.Provider, rec.Model, rec.InputToks, rec.OutputToks, rec.CostUSD,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert cost record: %w", err)
	}
	return nil
}
