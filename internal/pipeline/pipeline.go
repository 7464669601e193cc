// Package pipeline orchestrates one article end to end: ingestion, the
// two-extractor ensemble, validation and arbitration, the independent NER
// audit, position tracking, knowledge-base enrichment, proximity-graph
// generation, and persistence.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/amlandas/newsgraph/internal/cost"
	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/extract"
	"github.com/amlandas/newsgraph/internal/graph"
	"github.com/amlandas/newsgraph/internal/ingest"
	"github.com/amlandas/newsgraph/internal/kbclient"
	"github.com/amlandas/newsgraph/internal/ner"
	"github.com/amlandas/newsgraph/internal/observability"
	"github.com/amlandas/newsgraph/internal/store"
	"github.com/amlandas/newsgraph/internal/validate"
)

// Config holds every tunable the per-article pipeline consults.
type Config struct {
	ChunkSize           int
	ChunkOverlap        int
	ConfidenceThreshold float64
	SimilarityThreshold float64
	WindowSize          int
	MinFrequencyForPMI  int
	Smoothing           float64
	MaxRetries          int
	TimeoutSeconds      int
}

// Deps bundles the pipeline's collaborators. Extractors and the arbitrator
// are interfaces so tests can substitute fakes without standing up real
// providers or a database.
type Deps struct {
	Store      *store.Store
	ExtractorA extract.Client
	ExtractorB extract.Client
	ModelA     string
	ModelB     string
	Arbitrator validate.Arbitrator
	KB         kbclient.Client
	Tracker    *cost.Tracker
}

// Pipeline processes articles one at a time.
type Pipeline struct {
	cfg      Config
	deps     Deps
	ensemble extract.EnsembleConfig
	logger   zerolog.Logger
}

// New builds a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	retry := extract.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	return &Pipeline{
		cfg:  cfg,
		deps: deps,
		ensemble: extract.EnsembleConfig{
			ClientA:        deps.ExtractorA,
			ClientB:        deps.ExtractorB,
			ModelA:         deps.ModelA,
			ModelB:         deps.ModelB,
			TimeoutSeconds: cfg.TimeoutSeconds,
			Retry:          retry,
		},
		logger: observability.Logger("pipeline"),
	}
}

// ContentHash returns the stable dedup key for an article body, the same
// SHA-256-over-normalized-content approach the teacher uses to fingerprint
// indexed documents.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// ProcessArticle runs the full pipeline for one article and persists the
// result. On failure it marks the article failed rather than leaving it
// pending forever.
func (p *Pipeline) ProcessArticle(ctx context.Context, a domain.Article) error {
	start := time.Now()
	observability.LogEvent(p.logger, observability.EventArticleStarted, map[string]interface{}{"article_id": a.ID})

	if err := p.run(ctx, a, start); err != nil {
		if markErr := p.deps.Store.MarkFailed(ctx, a.ID, err.Error()); markErr != nil {
			p.logger.Error().Err(markErr).Str("article_id", a.ID).Msg("failed to mark article failed")
		}
		observability.LogEvent(p.logger, observability.EventArticleFailed, map[string]interface{}{"article_id": a.ID, "error": err.Error()})
		return err
	}

	observability.LogEvent(p.logger, observability.EventArticleCompleted, map[string]interface{}{
		"article_id": a.ID,
		"seconds":    time.Since(start).Seconds(),
	})
	return nil
}

func (p *Pipeline) run(ctx context.Context, a domain.Article, start time.Time) error {
	cleaned, err := ingest.Clean(a.Body)
	if err != nil {
		return domain.NewPipelineError(domain.ErrCodeInput, "ingest", a.ID, "clean failed", err)
	}
	sentences := ner.Segment(cleaned)
	paragraphs := ner.SegmentParagraphs(cleaned)
	_ = ingest.Chunk(cleaned, sentences, p.cfg.ChunkSize, p.cfg.ChunkOverlap)

	extractions, usages, err := extract.RunEnsemble(ctx, p.ensemble, a.Title, cleaned)
	if err != nil {
		return domain.NewPipelineError(domain.ErrCodeExtraction, "extract", a.ID, "ensemble failed", err)
	}
	degraded := len(extractions) == 1
	if degraded {
		observability.LogEvent(p.logger, observability.EventExtractionDegraded, map[string]interface{}{"article_id": a.ID})
	}

	for i, u := range usages {
		if u == nil || extractions[i] == nil {
			continue
		}
		rec := p.deps.Tracker.NewCostRecord(a.ID, extractions[i].Provider, extractions[i].Model, u.InputTokens, u.OutputTokens)
		if err := p.deps.Store.InsertCostRecord(ctx, rec); err != nil {
			return domain.NewPipelineError(domain.ErrCodeStorage, "cost", a.ID, "insert cost record failed", err)
		}
		p.deps.Tracker.Record(rec)
	}

	vcfg := validate.Config{SimilarityThreshold: p.cfg.SimilarityThreshold, ConfidenceThreshold: p.cfg.ConfidenceThreshold}
	consensus, merged, conflictReport, err := validate.Validate(ctx, vcfg, extractions, p.deps.Arbitrator)
	if err != nil {
		return domain.NewPipelineError(domain.ErrCodeValidation, "validate", a.ID, "validation failed", err)
	}
	if conflictReport.UsedArbitration {
		observability.LogEvent(p.logger, observability.EventArbitrationUsed, map[string]interface{}{"article_id": a.ID})
	}

	auditorEntities := ner.Audit(cleaned)
	metrics := ner.Evaluate(merged, auditorEntities)

	positioned := ner.Locate(cleaned, sentences, paragraphs, merged)
	positioned = p.enrich(ctx, positioned)

	result := domain.ExtractionResult{
		ArticleID:       a.ID,
		Consensus:       consensus,
		Entities:        positioned,
		UsedArbitration: conflictReport.UsedArbitration,
		Degraded:        degraded,
		CreatedAt:       time.Now(),
	}

	summaryA, summaryB := extractionSummaries(extractions)
	write := store.ExtractionWrite{
		Result:            result,
		SummaryA:          summaryA,
		SummaryB:          summaryB,
		SummarySimilarity: conflictReport.SummarySimilarity,
		NEREntityCount:    metrics.EntityCount,
		NERPrecision:      metrics.Precision,
		NERRecall:         metrics.Recall,
		NERF1:             metrics.F1,
		ProcessingSeconds: time.Since(start).Seconds(),
	}
	if err := p.deps.Store.StoreExtraction(ctx, a.ID, write); err != nil {
		return domain.NewPipelineError(domain.ErrCodeStorage, "store", a.ID, "store extraction failed", err)
	}

	if err := p.buildRelationships(ctx, a.ID, positioned); err != nil {
		return domain.NewPipelineError(domain.ErrCodeStorage, "graph", a.ID, "build relationships failed", err)
	}

	return p.deps.Store.MarkCompleted(ctx, a.ID)
}

func extractionSummaries(extractions []*domain.Extraction) (a, b string) {
	if len(extractions) > 0 && extractions[0] != nil {
		a = extractions[0].Summary
	}
	if len(extractions) > 1 && extractions[1] != nil {
		b = extractions[1].Summary
	}
	return a, b
}

// enrich resolves a knowledge-base link for each positioned mention,
// swallowing per-entity KB failures per spec: enrichment never fails an
// article.
func (p *Pipeline) enrich(ctx context.Context, mentions []domain.EntityMention) []domain.EntityMention {
	if p.deps.KB == nil {
		return mentions
	}
	out := make([]domain.EntityMention, len(mentions))
	for i, m := range mentions {
		out[i] = m
		link, err := p.deps.KB.Enrich(ctx, m.Surface, m.Type)
		if err != nil {
			observability.LogEvent(p.logger, observability.EventKBLookupFailed, map[string]interface{}{"surface": m.Surface})
			continue
		}
		if link == nil {
			continue
		}
		out[i].KBID = link.KBID
		out[i].KBLabel = link.Label
		out[i].KBDescription = link.Description

		entry := domain.KBCacheEntry{
			Key:         kbclient.CacheKeyFor(m.Surface, m.Type),
			KBID:        link.KBID,
			Label:       link.Label,
			Description: link.Description,
			CreatedAt:   time.Now(),
		}
		if err := p.deps.Store.UpsertKBCacheEntry(ctx, entry); err != nil {
			p.logger.Warn().Err(err).Str("surface", m.Surface).Msg("kb cache persist failed")
		}
	}
	return out
}

// buildRelationships computes the proximity matrix and PMI scores for one
// article and persists the thresholded edge set.
func (p *Pipeline) buildRelationships(ctx context.Context, articleID string, mentions []domain.EntityMention) error {
	if len(mentions) < 2 {
		return p.deps.Store.UpsertRelationships(ctx, articleID, nil)
	}

	matrix := graph.BuildMatrix(mentions, p.cfg.WindowSize)

	distinct := make(map[string]bool)
	for _, m := range mentions {
		distinct[m.Normalized+"|"+string(m.Type)] = true
	}

	entityDocFreq, totalDocs, err := p.deps.Store.EntityFrequencies(ctx)
	if err != nil {
		return fmt.Errorf("load entity frequencies: %w", err)
	}
	freqs := graph.Frequencies{EntityDocFreq: entityDocFreq, TotalDocs: totalDocs}

	scores := graph.PMIBatch(matrix, freqs, p.cfg.Smoothing, p.cfg.MinFrequencyForPMI)

	edges := make([]graph.Edge, 0, len(scores))
	for key, score := range scores {
		edges = append(edges, graph.Edge{Pair: key, Score: score})
	}
	filtered := graph.FilterEdges(edges, len(distinct))
	display := graph.DisplayLabels(mentions)

	writes := make([]store.RelationshipWrite, 0, len(filtered))
	for _, e := range filtered {
		c := matrix[e.Pair]
		writes = append(writes, store.RelationshipWrite{
			EntityA:              displayName(display, e.Pair.A),
			EntityB:              displayName(display, e.Pair.B),
			Type:                 c.RelationshipType(),
			Confidence:           c.MeanConfidence(),
			PMIScore:             e.Score.PMI,
			NPMIScore:            e.Score.NPMI,
			ScoringMethod:        e.Score.ScoringMethod,
			RawCooccurrenceCount: c.Contributions,
			ProximityWeight:      c.TotalWeight,
			MinSentenceDistance:  c.MinDistance,
			AvgSentenceDistance:  c.AvgDistance(),
		})
	}

	return p.deps.Store.UpsertRelationships(ctx, articleID, writes)
}

// displayName resolves a canonical pair label back to a human-readable
// entity name, falling back to stripping the label's type suffix if the
// label is somehow absent from the display map.
func displayName(display map[string]string, label string) string {
	if name, ok := display[label]; ok && name != "" {
		return name
	}
	return graph.StripTypeSuffix(label)
}

// DefaultConfigFromPipelineSettings narrows a broader configuration source
// (internal/config.PipelineConfig) into the fields this package needs,
// keeping pipeline.Config free of a dependency on internal/config.
func DefaultConfigFromPipelineSettings(chunkSize, chunkOverlap int, confidenceThreshold, similarityThreshold float64, windowSize, minFreq int, smoothing float64) Config {
	return Config{
		ChunkSize:           chunkSize,
		ChunkOverlap:        chunkOverlap,
		ConfidenceThreshold: confidenceThreshold,
		SimilarityThreshold: similarityThreshold,
		WindowSize:          windowSize,
		MinFrequencyForPMI:  minFreq,
		Smoothing:           smoothing,
	}
}
