// Package integration contains integration tests for newsgraph components.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amlandas/newsgraph/internal/batch"
	"github.com/amlandas/newsgraph/internal/cost"
	"github.com/amlandas/newsgraph/internal/domain"
	"github.com/amlandas/newsgraph/internal/extract"
	"github.com/amlandas/newsgraph/internal/ingest"
	"github.com/amlandas/newsgraph/internal/pipeline"
	"github.com/amlandas/newsgraph/internal/store"
)

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

type scriptedExtractor struct {
	extraction *domain.Extraction
}

func (e *scriptedExtractor) Name() string                        { return "scripted" }
func (e *scriptedExtractor) IsAvailable(ctx context.Context) bool { return true }
func (e *scriptedExtractor) Close() error                         { return nil }
func (e *scriptedExtractor) Extract(ctx context.Context, modelID, title, text string) (*domain.Extraction, *extract.Usage, error) {
	return e.extraction, &extract.Usage{InputTokens: 50, OutputTokens: 10}, nil
}

// TestIngestThenPipelineThenBatch exercises the full path an operator
// drives: insert articles into the pending queue, run the batch worker
// against it, and confirm the store reflects completed
// articles with persisted facts and relationships.
func TestIngestThenPipelineThenBatch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	articles := []domain.Article{
		{
			ID:          "wire-1",
			URL:         "https://example.com/wire-1",
			Title:       "Governor signs transit bill",
			Body:        "Governor Rick Scott signed the transit bill in Miami on Tuesday. Scott praised the legislature.",
			Source:      "wire",
			PublishedAt: time.Now(),
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		},
		{
			ID:          "wire-2",
			URL:         "https://example.com/wire-2",
			Title:       "Mayor opens new park",
			Body:        "Mayor Jane Castor opened a new park in Miami on Friday. Castor thanked Rick Scott and city workers.",
			Source:      "wire",
			PublishedAt: time.Now(),
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		},
	}
	for _, a := range articles {
		if err := s.InsertArticle(ctx, a, pipeline.ContentHash(a.Body)); err != nil {
			t.Fatalf("insert article %s: %v", a.ID, err)
		}
	}

	tracker, err := cost.New(ctx, s.DB(), cost.DefaultConfig())
	if err != nil {
		t.Fatalf("new cost tracker: %v", err)
	}

	extraction := &domain.Extraction{
		Provider: "ollama",
		Model:    "qwen2.5-coder:7b",
		Summary:  "An official signed or opened something this week.",
		Entities: []domain.EntityMention{
			{Surface: "Rick Scott", Normalized: "rick scott", Type: domain.EntityPerson, Confidence: 0.9, Sources: []string{"ollama"}},
			{Surface: "Miami", Normalized: "miami", Type: domain.EntityLocation, Confidence: 0.85, Sources: []string{"ollama"}},
		},
	}

	p := pipeline.New(pipeline.Config{
		ChunkSize: 200, ChunkOverlap: 50, ConfidenceThreshold: 0.4, SimilarityThreshold: 0.75,
		WindowSize: 2, MinFrequencyForPMI: 2, Smoothing: 1e-6, MaxRetries: 1, TimeoutSeconds: 5,
	}, pipeline.Deps{
		Store:      s,
		ExtractorA: &scriptedExtractor{extraction: extraction},
		ExtractorB: &scriptedExtractor{extraction: extraction},
		ModelA:     "qwen2.5-coder:7b",
		ModelB:     "qwen2.5-coder:7b",
		Tracker:    tracker,
	})

	runner := batch.New(s, p, tracker, 10)

	result, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("run batch: %v", err)
	}
	if result.Processed != len(articles) {
		t.Fatalf("expected %d processed, got %d", len(articles), result.Processed)
	}
	if result.Halted != nil {
		t.Fatalf("expected no halt, got %+v", result.Halted)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ArticlesCompleted != int64(len(articles)) {
		t.Errorf("expected %d completed articles, got %d", len(articles), stats.ArticlesCompleted)
	}
	if stats.ArticlesPending != 0 {
		t.Errorf("expected 0 pending articles, got %d", stats.ArticlesPending)
	}

	for _, a := range articles {
		entities, err := s.ReadPositionedEntities(ctx, a.ID)
		if err != nil {
			t.Fatalf("read positioned entities for %s: %v", a.ID, err)
		}
		if len(entities) == 0 {
			t.Errorf("expected positioned entities for %s", a.ID)
		}
	}
}

// TestIngestDirectory_LoadsArticleFilesAsPending exercises the file-based
// ingest path an operator uses to seed the queue from a directory of JSON
// article dumps.
func TestIngestDirectory_LoadsArticleFilesAsPending(t *testing.T) {
	s := testStore(t)
	dir := t.TempDir()

	writeArticleFile(t, dir, "a1.json", `{
		"url": "https://example.com/a1",
		"title": "Storm approaches coast",
		"body": "A tropical storm is approaching the Gulf coast this weekend.",
		"source": "wire",
		"published_at": "2026-01-01T00:00:00Z"
	}`)
	writeArticleFile(t, dir, "not-an-article.txt", "ignored, not json")

	result, err := ingest.LoadDirectory(context.Background(), s, dir)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	if result.Inserted != 1 {
		t.Fatalf("expected 1 inserted article, got %d (errors=%v)", result.Inserted, result.Errors)
	}

	pending, err := s.ListPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending article, got %d", len(pending))
	}
}

func writeArticleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
