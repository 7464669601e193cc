package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amlandas/newsgraph/internal/domain"
)

// ArticleStore is the collaborator interface the pipeline consumes for
// reading pending work and recording outcomes; Store implements it, and a
// test double can substitute a narrower fake.
type ArticleStore interface {
	ListPending(ctx context.Context, limit int) ([]domain.Article, error)
	MarkFailed(ctx context.Context, articleID, errText string) error
}

// InsertArticle inserts a new article, keyed by content hash for
// idempotent dedup: a duplicate hash is a no-op rather than an error.
func (s *Store) InsertArticle(ctx context.Context, a domain.Article, contentHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, url, content_hash, title, source, body, published_at, processing_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`,
		a.ID, nullString(a.URL), contentHash, a.Title, a.Source, a.Body,
		a.PublishedAt.Format(time.RFC3339), "pending",
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// ListPending returns articles with status=pending ordered by published
// timestamp ascending, up to limit.
func (s *Store) ListPending(ctx context.Context, limit int) ([]domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, body, source, published_at, processing_status, processing_error, created_at, updated_at
		FROM articles
		WHERE processing_status = 'pending'
		ORDER BY published_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending articles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkCompleted marks an article processed successfully.
func (s *Store) MarkCompleted(ctx context.Context, articleID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE articles SET processing_status = 'completed', updated_at = ? WHERE id = ?
	`, time.Now().Format(time.RFC3339), articleID)
	if err != nil {
		return fmt.Errorf("mark article completed: %w", err)
	}
	return nil
}

// MarkFailed marks an article failed with the given error text; idempotent.
func (s *Store) MarkFailed(ctx context.Context, articleID, errText string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE articles SET processing_status = 'failed', processing_error = ?, updated_at = ? WHERE id = ?
	`, errText, time.Now().Format(time.RFC3339), articleID)
	if err != nil {
		return fmt.Errorf("mark article failed: %w", err)
	}
	return nil
}

func scanArticle(rows *sql.Rows) (domain.Article, error) {
	var a domain.Article
	var publishedAt, createdAt, updatedAt string
	var procError, url sql.NullString
	if err := rows.Scan(&a.ID, &url, &a.Title, &a.Body, &a.Source, &publishedAt, &a.Status, &procError, &createdAt, &updatedAt); err != nil {
		return domain.Article{}, err
	}
	a.URL = url.String
	a.Error = procError.String
	a.PublishedAt, _ = time.Parse(time.RFC3339, publishedAt)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}
