package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/amlandas/newsgraph/internal/domain"
)

// RelationshipWrite is one scored, thresholded edge ready for persistence.
type RelationshipWrite struct {
	EntityA                string
	EntityB                string
	Type                   domain.RelationshipType
	Description            string
	Confidence             float64
	PMIScore               float64
	NPMIScore              float64
	ScoringMethod          string
	RawCooccurrenceCount   int
	ProximityWeight        float64
	MinSentenceDistance    int
	AvgSentenceDistance    float64
}

// UpsertRelationships clears and re-inserts all relationships for an
// article in one transaction, since relationship generation always fully
// rebuilds an article's edge set rather than patching it incrementally.
func (s *Store) UpsertRelationships(ctx context.Context, articleID string, edges []RelationshipWrite) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin relationships tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_relationships WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("clear relationships: %w", err)
	}

	for _, e := range edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entity_relationships (
				id, article_id, entity_a, entity_b, relationship_type, relationship_description,
				confidence, pmi_score, npmi_score, scoring_method, raw_cooccurrence_count,
				proximity_weight, min_sentence_distance, avg_sentence_distance
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(article_id, entity_a, entity_b, relationship_type) DO UPDATE SET
				confidence = excluded.confidence,
				pmi_score = excluded.pmi_score,
				npmi_score = excluded.npmi_score,
				scoring_method = excluded.scoring_method,
				raw_cooccurrence_count = excluded.raw_cooccurrence_count,
				proximity_weight = excluded.proximity_weight,
				min_sentence_distance = excluded.min_sentence_distance,
				avg_sentence_distance = excluded.avg_sentence_distance
		`,
			uuid.New().String(), articleID, e.EntityA, e.EntityB, string(e.Type), nullString(e.Description),
			e.Confidence, e.PMIScore, e.NPMIScore, e.ScoringMethod, e.RawCooccurrenceCount,
			e.ProximityWeight, e.MinSentenceDistance, e.AvgSentenceDistance,
		)
		if err != nil {
			return fmt.Errorf("upsert relationship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit relationships tx: %w", err)
	}
	return nil
}
