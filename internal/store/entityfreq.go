package store

import (
	"context"
	"fmt"
)

// EntityFrequencies returns the corpus-wide document frequency of every
// distinct entity seen across all stored facts, keyed the same way
// internal/graph canonicalizes an entity pair endpoint ("normalized|TYPE",
// lowercased), plus the total number of distinct articles that contributed
// at least one fact. graph.PMIBatch needs both to score a pair against
// real corpus-level probabilities rather than per-article-only counts.
func (s *Store) EntityFrequencies(ctx context.Context) (map[string]int, int, error) {
	var totalDocs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT article_id) FROM facts`).Scan(&totalDocs); err != nil {
		return nil, 0, fmt.Errorf("count documents with facts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT LOWER(normalized) || '|' || entity_type AS entity_key, COUNT(DISTINCT article_id)
		FROM facts
		GROUP BY entity_key
	`)
	if err != nil {
		return nil, 0, fmt.Errorf("query entity frequencies: %w", err)
	}
	defer rows.Close()

	freqs := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, 0, fmt.Errorf("scan entity frequency: %w", err)
		}
		freqs[key] = count
	}
	return freqs, totalDocs, rows.Err()
}
