package batch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/amlandas/newsgraph/internal/cost"
	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/extract"
	"github.com/amlandas/newsgraph/internal/pipeline"
	"github.com/amlandas/newsgraph/internal/store"
)

type fakeExtractor struct {
	extraction *domain.Extraction
}

func (f *fakeExtractor) Name() string                        { return "fake" }
func (f *fakeExtractor) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeExtractor) Close() error                         { return nil }
func (f *fakeExtractor) Extract(ctx context.Context, modelID, title, text string) (*domain.Extraction, *extract.Usage, error) {
	return f.extraction, &extract.Usage{InputTokens: 100, OutputTokens: 20}, nil
}

func testArticle(n int) domain.Article {
	now := time.Now()
	return domain.Article{
		ID:          "a" + string(rune('0'+n)),
		URL:         "https://example.com",
		Title:       "title",
		Body:        "Rick Scott met Jeb Bush in Miami. They discussed the budget.",
		Source:      "wire",
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func fixture() *domain.Extraction {
	return &domain.Extraction{
		Provider: "ollama",
		Model:    "qwen2.5-coder:7b",
		Summary:  "Rick Scott met Jeb Bush in Miami.",
		Entities: []domain.EntityMention{
			{Surface: "Rick Scott", Normalized: "rick scott", Type: domain.EntityPerson, Confidence: 0.9, Sources: []string{"ollama"}},
			{Surface: "Jeb Bush", Normalized: "jeb bush", Type: domain.EntityPerson, Confidence: 0.9, Sources: []string{"ollama"}},
		},
	}
}

func newTestRunner(t *testing.T, dailyCap float64) (*Runner, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	tracker, err := cost.New(context.Background(), s.DB(), cost.Config{
		DailyCap: dailyCap, MonthlyCap: 1000, Pricing: cost.PricingTable{
			"ollama:qwen2.5-coder:7b": {InputPerMillion: 1_000_000, OutputPerMillion: 1_000_000},
		},
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	p := pipeline.New(pipeline.Config{
		ChunkSize: 200, ChunkOverlap: 50, ConfidenceThreshold: 0.4, SimilarityThreshold: 0.75,
		WindowSize: 2, MinFrequencyForPMI: 2, Smoothing: 1e-6, MaxRetries: 1, TimeoutSeconds: 5,
	}, pipeline.Deps{
		Store:      s,
		ExtractorA: &fakeExtractor{extraction: fixture()},
		ExtractorB: &fakeExtractor{extraction: fixture()},
		ModelA:     "qwen2.5-coder:7b",
		ModelB:     "qwen2.5-coder:7b",
		Tracker:    tracker,
	})

	return New(s, p, tracker, 5), s
}

func TestRun_ProcessesAllPendingArticles(t *testing.T) {
	r, s := newTestRunner(t, 1000)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		a := testArticle(i)
		if err := s.InsertArticle(ctx, a, a.ID+"-hash"); err != nil {
			t.Fatalf("insert article: %v", err)
		}
	}

	result, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("expected 3 processed, got %d", result.Processed)
	}
	if result.Halted != nil {
		t.Errorf("expected no halt, got %+v", result.Halted)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ArticlesPending != 0 {
		t.Errorf("expected 0 pending articles remaining, got %d", stats.ArticlesPending)
	}
}

func TestRun_HaltsOnBudgetCapAbandoningRemainingQueue(t *testing.T) {
	// Every article costs (100/1e6*1e6) + (20/1e6*1e6) = 120 per extractor
	// call, 240 per article across the two-extractor ensemble. A cap of 200
	// lets the first article through (checked while spend is still zero)
	// then halts before the second, leaving it and the third untouched.
	r, s := newTestRunner(t, 200)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		a := testArticle(i)
		if err := s.InsertArticle(ctx, a, a.ID+"-hash"); err != nil {
			t.Fatalf("insert article: %v", err)
		}
	}

	result, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Halted == nil {
		t.Fatal("expected budget halt")
	}
	if result.Processed != 1 {
		t.Errorf("expected exactly 1 article processed before halt, got %d", result.Processed)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ArticlesPending != 2 {
		t.Errorf("expected 2 articles still pending after halt, got %d", stats.ArticlesPending)
	}
}
