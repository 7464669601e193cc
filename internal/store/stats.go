package store

import (
	"context"
	"fmt"
)

// PipelineStats summarizes a batch's processed state, exposed by
// newsgraphctl status.
type PipelineStats struct {
	ArticlesPending   int64
	ArticlesCompleted int64
	ArticlesFailed    int64
	TotalFacts        int64
	TotalRelationships int64
	TotalCostUSD      float64
}

// Stats computes a snapshot of pipeline progress from persisted state.
func (s *Store) Stats(ctx context.Context) (PipelineStats, error) {
	var stats PipelineStats

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM articles WHERE processing_status = 'pending'),
			(SELECT COUNT(*) FROM articles WHERE processing_status = 'completed'),
			(SELECT COUNT(*) FROM articles WHERE processing_status = 'failed'),
			(SELECT COUNT(*) FROM facts),
			(SELECT COUNT(*) FROM entity_relationships),
			(SELECT COALESCE(SUM(cost_usd), 0) FROM cost_records)
	`).Scan(
		&stats.ArticlesPending, &stats.ArticlesCompleted, &stats.ArticlesFailed,
		&stats.TotalFacts, &stats.TotalRelationships, &stats.TotalCostUSD,
	)
	if err != nil {
		return PipelineStats{}, fmt.Errorf("compute pipeline stats: %w", err)
	}
	return stats, nil
}
