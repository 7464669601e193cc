package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amlandas/newsgraph/internal/domain"
)

// ExtractionWrite bundles the pieces written atomically for one article:
// the ExtractionResult plus its Facts, and the per-extractor summaries and
// validator diagnostics not carried on domain.ExtractionResult itself.
type ExtractionWrite struct {
	Result             domain.ExtractionResult
	SummaryA           string
	SummaryB           string
	SummaryArbitrator  string
	SummarySimilarity  float64
	NEREntityCount     int
	NERPrecision       float64
	NERRecall          float64
	NERF1              float64
	ProcessingSeconds  float64
}

// StoreExtraction persists an ExtractionResult and all its Facts in one
// transaction: either everything commits or nothing does.
func (s *Store) StoreExtraction(ctx context.Context, articleID string, w ExtractionWrite) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin extraction tx: %w", err)
	}
	defer tx.Rollback()

	resultID := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO extraction_results (
			id, article_id, consensus_summary, summary_a, summary_b, summary_arbitrator,
			summary_similarity, had_conflicts, used_arbitration,
			ner_entity_count, ner_precision, ner_recall, ner_f1, processing_seconds, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		resultID, articleID, w.Result.Consensus, nullString(w.SummaryA), nullString(w.SummaryB), nullString(w.SummaryArbitrator),
		w.SummarySimilarity, boolToInt(w.Result.UsedArbitration), boolToInt(w.Result.UsedArbitration),
		w.NEREntityCount, w.NERPrecision, w.NERRecall, w.NERF1, w.ProcessingSeconds, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert extraction result: %w", err)
	}

	for _, e := range w.Result.Entities {
		sources, _ := json.Marshal(e.Sources)
		var kbProps sql.NullString
		_, err = tx.ExecContext(ctx, `
			INSERT INTO facts (
				id, article_id, extraction_result_id, entity, normalized, entity_type, confidence,
				event_description, sources, sentence_index, paragraph_index, char_start, char_end,
				kb_id, kb_label, kb_description, kb_properties, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			uuid.New().String(), articleID, resultID, e.Surface, e.Normalized, string(e.Type), e.Confidence,
			nullString(e.EventDescription), string(sources), e.SentenceIdx, e.ParagraphIdx, e.CharStart, e.CharEnd,
			nullString(e.KBID), nullString(e.KBLabel), nullString(e.KBDescription), kbProps, time.Now().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("insert fact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit extraction tx: %w", err)
	}
	return nil
}

// ReadPositionedEntities returns every Fact for articleID that has a
// non-null sentence_index (a "positioned entity" per the glossary),
// reconstructed as EntityMentions for relationship generation.
func (s *Store) ReadPositionedEntities(ctx context.Context, articleID string) ([]domain.EntityMention, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity, normalized, entity_type, confidence, sources, event_description,
			sentence_index, paragraph_index, char_start, char_end, kb_id, kb_label, kb_description
		FROM facts
		WHERE article_id = ? AND sentence_index IS NOT NULL
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("read positioned entities: %w", err)
	}
	defer rows.Close()

	var out []domain.EntityMention
	for rows.Next() {
		var m domain.EntityMention
		var entityType string
		var sourcesJSON string
		var eventDesc, kbID, kbLabel, kbDescription sql.NullString
		var sentenceIdx, paragraphIdx, charStart, charEnd sql.NullInt64
		if err := rows.Scan(&m.Surface, &m.Normalized, &entityType, &m.Confidence, &sourcesJSON, &eventDesc,
			&sentenceIdx, &paragraphIdx, &charStart, &charEnd, &kbID, &kbLabel, &kbDescription); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		m.Type = domain.EntityType(entityType)
		_ = json.Unmarshal([]byte(sourcesJSON), &m.Sources)
		m.EventDescription = eventDesc.String
		m.SentenceIdx = int(sentenceIdx.Int64)
		m.ParagraphIdx = int(paragraphIdx.Int64)
		m.CharStart = int(charStart.Int64)
		m.CharEnd = int(charEnd.Int64)
		m.KBID = kbID.String
		m.KBLabel = kbLabel.String
		m.KBDescription = kbDescription.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
