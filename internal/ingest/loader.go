package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amlandas/newsgraph/internal/domain"
)

// ArticleStore is the narrow write surface LoadDirectory needs; satisfied
// by *store.Store.
type ArticleStore interface {
	InsertArticle(ctx context.Context, a domain.Article, contentHash string) error
}

// rawArticle is the on-disk JSON shape operators drop into an ingest
// directory: one object per file.
type rawArticle struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// LoadResult summarizes one LoadDirectory run.
type LoadResult struct {
	Scanned  int
	Inserted int
	Errors   []LoadError
}

// LoadError names the file that failed and why, rather than aborting the
// whole directory walk.
type LoadError struct {
	Path    string
	Message string
}

// LoadDirectory walks dir for *.json article files and inserts each as a
// pending article, content-hash deduplicated. A malformed file is recorded
// in the result's Errors and skipped rather than aborting the walk.
func LoadDirectory(ctx context.Context, store ArticleStore, dir string) (LoadResult, error) {
	var result LoadResult

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, LoadError{Path: path, Message: err.Error()})
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		result.Scanned++

		data, err := os.ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, LoadError{Path: path, Message: err.Error()})
			return nil
		}
		var raw rawArticle
		if err := json.Unmarshal(data, &raw); err != nil {
			result.Errors = append(result.Errors, LoadError{Path: path, Message: err.Error()})
			return nil
		}
		if strings.TrimSpace(raw.Body) == "" {
			result.Errors = append(result.Errors, LoadError{Path: path, Message: "empty body"})
			return nil
		}

		now := time.Now()
		published := raw.PublishedAt
		if published.IsZero() {
			published = now
		}
		article := domain.Article{
			ID:          documentID(path),
			URL:         raw.URL,
			Title:       raw.Title,
			Body:        raw.Body,
			Source:      raw.Source,
			Status:      "pending",
			PublishedAt: published,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.InsertArticle(ctx, article, contentHash(raw.Body)); err != nil {
			result.Errors = append(result.Errors, LoadError{Path: path, Message: err.Error()})
			return nil
		}
		result.Inserted++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk ingest directory: %w", err)
	}
	return result, nil
}

// documentID derives a stable article id from a file path, the same
// hash-the-path approach the teacher's source manager uses to key indexed
// documents.
func documentID(path string) string {
	return "article_" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()[:12]
}

// contentHash fingerprints an article body for idempotent dedup, the same
// sha256-over-content approach the teacher's source manager uses.
func contentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
