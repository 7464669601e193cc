package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amlandas/newsgraph/internal/cost"
	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/extract"
	"github.com/amlandas/newsgraph/internal/store"
)

// fakeExtractor is a scripted extract.Client returning a fixed extraction
// or failing, so tests can drive full-consensus, degraded, and
// both-failed ensemble paths without a live provider.
type fakeExtractor struct {
	name       string
	extraction *domain.Extraction
	usage      *extract.Usage
	err        error
}

func (f *fakeExtractor) Name() string                         { return f.name }
func (f *fakeExtractor) IsAvailable(ctx context.Context) bool  { return true }
func (f *fakeExtractor) Close() error                          { return nil }
func (f *fakeExtractor) Extract(ctx context.Context, modelID, title, text string) (*domain.Extraction, *extract.Usage, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.extraction, f.usage, nil
}

type fakeKB struct {
	link *domain.KBLink
	err  error
}

func (f *fakeKB) Enrich(ctx context.Context, surface string, entityType domain.EntityType) (*domain.KBLink, error) {
	return f.link, f.err
}
func (f *fakeKB) Stats() map[string]int64 { return map[string]int64{} }
func (f *fakeKB) Close() error            { return nil }

func testStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTracker(t *testing.T, s *store.Store) *cost.Tracker {
	t.Helper()
	tr, err := cost.New(context.Background(), s.DB(), cost.DefaultConfig())
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tr
}

func testArticle(id string) domain.Article {
	now := time.Now()
	return domain.Article{
		ID:          id,
		URL:         "https://example.com/" + id,
		Title:       "Governor signs transit bill",
		Body:        "Governor Rick Scott signed the transit bill in Miami on Tuesday. Scott said the bill will help commuters.",
		Source:      "wire",
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func defaultConfig() Config {
	return Config{
		ChunkSize:           200,
		ChunkOverlap:        50,
		ConfidenceThreshold: 0.4,
		SimilarityThreshold: 0.75,
		WindowSize:          2,
		MinFrequencyForPMI:  2,
		Smoothing:           1e-6,
		MaxRetries:          1,
		TimeoutSeconds:      5,
	}
}

func extractionFixture(provider, model, summary string) *domain.Extraction {
	return &domain.Extraction{
		Provider: provider,
		Model:    model,
		Summary:  summary,
		Entities: []domain.EntityMention{
			{
				Surface:    "Rick Scott",
				Normalized: "rick scott",
				Type:       domain.EntityPerson,
				Confidence: 0.9,
				Sources:    []string{provider},
			},
			{
				Surface:    "Miami",
				Normalized: "miami",
				Type:       domain.EntityLocation,
				Confidence: 0.85,
				Sources:    []string{provider},
			},
		},
	}
}

func TestProcessArticle_FullConsensus(t *testing.T) {
	s := testStore(t)
	tracker := testTracker(t, s)
	ctx := context.Background()

	a := testArticle("a1")
	if err := s.InsertArticle(ctx, a, ContentHash(a.Body)); err != nil {
		t.Fatalf("insert article: %v", err)
	}

	extA := extractionFixture("ollama", "qwen2.5-coder:7b", "Governor Rick Scott signed the transit bill.")
	extB := extractionFixture("ollama", "mistral:7b-instruct-q4_K_M", "Governor Rick Scott signed the transit bill.")

	p := New(defaultConfig(), Deps{
		Store:      s,
		ExtractorA: &fakeExtractor{name: "a", extraction: extA, usage: &extract.Usage{InputTokens: 100, OutputTokens: 20}},
		ExtractorB: &fakeExtractor{name: "b", extraction: extB, usage: &extract.Usage{InputTokens: 100, OutputTokens: 20}},
		ModelA:     "qwen2.5-coder:7b",
		ModelB:     "mistral:7b-instruct-q4_K_M",
		KB:         &fakeKB{link: &domain.KBLink{KBID: "Q12345", Label: "Rick Scott"}},
		Tracker:    tracker,
	})

	if err := p.ProcessArticle(ctx, a); err != nil {
		t.Fatalf("process article: %v", err)
	}

	entities, err := s.ReadPositionedEntities(ctx, "a1")
	if err != nil {
		t.Fatalf("read entities: %v", err)
	}
	if len(entities) == 0 {
		t.Fatal("expected positioned entities to be persisted")
	}

	var foundEnrichedScott bool
	for _, e := range entities {
		if e.Normalized == "Rick Scott" {
			if e.KBID != "Q12345" || e.KBLabel != "Rick Scott" {
				t.Errorf("expected KB fields persisted on fact, got %+v", e)
			}
			foundEnrichedScott = true
		}
	}
	if !foundEnrichedScott {
		t.Fatal("expected a persisted fact for Rick Scott")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ArticlesCompleted != 1 {
		t.Errorf("expected 1 completed article, got %d", stats.ArticlesCompleted)
	}
	if stats.ArticlesFailed != 0 {
		t.Errorf("expected 0 failed articles, got %d", stats.ArticlesFailed)
	}
}

func TestProcessArticle_DegradedSingleExtractorStillSucceeds(t *testing.T) {
	s := testStore(t)
	tracker := testTracker(t, s)
	ctx := context.Background()

	a := testArticle("a2")
	if err := s.InsertArticle(ctx, a, ContentHash(a.Body)); err != nil {
		t.Fatalf("insert article: %v", err)
	}

	extA := extractionFixture("ollama", "qwen2.5-coder:7b", "Governor Rick Scott signed the transit bill.")

	p := New(defaultConfig(), Deps{
		Store:      s,
		ExtractorA: &fakeExtractor{name: "a", extraction: extA, usage: &extract.Usage{InputTokens: 100, OutputTokens: 20}},
		ExtractorB: &fakeExtractor{name: "b", err: context.DeadlineExceeded},
		ModelA:     "qwen2.5-coder:7b",
		ModelB:     "mistral:7b-instruct-q4_K_M",
		KB:         &fakeKB{},
		Tracker:    tracker,
	})

	if err := p.ProcessArticle(ctx, a); err != nil {
		t.Fatalf("process article: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ArticlesCompleted != 1 {
		t.Errorf("expected 1 completed article, got %d", stats.ArticlesCompleted)
	}
}

func TestProcessArticle_BothExtractorsFailMarksArticleFailed(t *testing.T) {
	s := testStore(t)
	tracker := testTracker(t, s)
	ctx := context.Background()

	a := testArticle("a3")
	if err := s.InsertArticle(ctx, a, ContentHash(a.Body)); err != nil {
		t.Fatalf("insert article: %v", err)
	}

	p := New(defaultConfig(), Deps{
		Store:      s,
		ExtractorA: &fakeExtractor{name: "a", err: context.DeadlineExceeded},
		ExtractorB: &fakeExtractor{name: "b", err: context.DeadlineExceeded},
		ModelA:     "qwen2.5-coder:7b",
		ModelB:     "mistral:7b-instruct-q4_K_M",
		KB:         &fakeKB{},
		Tracker:    tracker,
	})

	err := p.ProcessArticle(ctx, a)
	if err == nil {
		t.Fatal("expected error when both extractors fail")
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ArticlesFailed != 1 {
		t.Errorf("expected 1 failed article, got %d", stats.ArticlesFailed)
	}
}

func TestProcessArticle_KBFailureDoesNotFailArticle(t *testing.T) {
	s := testStore(t)
	tracker := testTracker(t, s)
	ctx := context.Background()

	a := testArticle("a4")
	if err := s.InsertArticle(ctx, a, ContentHash(a.Body)); err != nil {
		t.Fatalf("insert article: %v", err)
	}

	extA := extractionFixture("ollama", "qwen2.5-coder:7b", "Governor Rick Scott signed the transit bill.")
	extB := extractionFixture("ollama", "mistral:7b-instruct-q4_K_M", "Governor Rick Scott signed the transit bill.")

	p := New(defaultConfig(), Deps{
		Store:      s,
		ExtractorA: &fakeExtractor{name: "a", extraction: extA, usage: &extract.Usage{InputTokens: 100, OutputTokens: 20}},
		ExtractorB: &fakeExtractor{name: "b", extraction: extB, usage: &extract.Usage{InputTokens: 100, OutputTokens: 20}},
		ModelA:     "qwen2.5-coder:7b",
		ModelB:     "mistral:7b-instruct-q4_K_M",
		KB:         &fakeKB{err: context.DeadlineExceeded},
		Tracker:    tracker,
	})

	if err := p.ProcessArticle(ctx, a); err != nil {
		t.Fatalf("expected article to succeed despite KB failure: %v", err)
	}
}

// TestProcessArticle_RepeatedEntitiesAcrossArticlesUsePMIScoring proves
// corpus-wide entity document frequency actually reaches graph.PMIBatch:
// once an entity pair has appeared in at least MinFrequencyForPMI distinct
// articles, the persisted relationship uses "pmi" scoring rather than
// always falling back to "proximity", and the persisted entity names are
// plain display names rather than the internal canonical "name|TYPE" key.
func TestProcessArticle_RepeatedEntitiesAcrossArticlesUsePMIScoring(t *testing.T) {
	s := testStore(t)
	tracker := testTracker(t, s)
	ctx := context.Background()

	cfg := defaultConfig()
	cfg.MinFrequencyForPMI = 2

	for _, id := range []string{"p1", "p2"} {
		a := testArticle(id)
		if err := s.InsertArticle(ctx, a, ContentHash(a.Body+id)); err != nil {
			t.Fatalf("insert article %s: %v", id, err)
		}

		extA := extractionFixture("ollama", "qwen2.5-coder:7b", "Governor Rick Scott signed the transit bill in Miami.")
		extB := extractionFixture("ollama", "mistral:7b-instruct-q4_K_M", "Governor Rick Scott signed the transit bill in Miami.")

		p := New(cfg, Deps{
			Store:      s,
			ExtractorA: &fakeExtractor{name: "a", extraction: extA, usage: &extract.Usage{InputTokens: 100, OutputTokens: 20}},
			ExtractorB: &fakeExtractor{name: "b", extraction: extB, usage: &extract.Usage{InputTokens: 100, OutputTokens: 20}},
			ModelA:     "qwen2.5-coder:7b",
			ModelB:     "mistral:7b-instruct-q4_K_M",
			KB:         &fakeKB{},
			Tracker:    tracker,
		})
		if err := p.ProcessArticle(ctx, a); err != nil {
			t.Fatalf("process article %s: %v", id, err)
		}
	}

	var scoringMethod, entityA, entityB string
	err := s.DB().QueryRowContext(ctx, `
		SELECT scoring_method, entity_a, entity_b FROM entity_relationships WHERE article_id = ? LIMIT 1
	`, "p2").Scan(&scoringMethod, &entityA, &entityB)
	if err != nil {
		t.Fatalf("query relationship: %v", err)
	}
	if scoringMethod != "pmi" {
		t.Errorf("expected pmi scoring once both endpoints meet the corpus frequency threshold, got %q", scoringMethod)
	}
	if strings.Contains(entityA, "|") || strings.Contains(entityB, "|") {
		t.Errorf("expected plain display names in entity_a/entity_b, got %q / %q", entityA, entityB)
	}
}

func TestContentHash_IsStableAndContentSensitive(t *testing.T) {
	h1 := ContentHash("same body")
	h2 := ContentHash("same body")
	h3 := ContentHash("different body")

	if h1 != h2 {
		t.Error("expected identical bodies to hash identically")
	}
	if h1 == h3 {
		t.Error("expected different bodies to hash differently")
	}
}
