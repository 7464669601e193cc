// Package store provides SQLite persistence for the extraction pipeline:
// articles, extraction results, facts, entity relationships, cost records,
// and the knowledge-base cache.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides database operations for the pipeline.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path, opening it with
// WAL mode for read concurrency and a bounded connection pool (at most 8
// open connections, 2 kept idle): unlike a single-writer daemon, this batch runner may hold
// a read connection open while a write for a different article is in
// flight.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection, for collaborators (the
// Cost Tracker) that read their own running sums directly.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Health checks database connectivity.
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// migrate runs all pending database migrations.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	if currentVersion < 1 {
		if err := s.runMigration001(); err != nil {
			return fmt.Errorf("run migration 001: %w", err)
		}
	}
	return nil
}

// runMigration001 creates the initial schema: articles, extraction_results,
// facts, entity_relationships, cost_records, kb_cache.
func (s *Store) runMigration001() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			url TEXT UNIQUE,
			content_hash TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			source TEXT NOT NULL,
			body TEXT NOT NULL,
			published_at TEXT,
			collected_at TEXT NOT NULL DEFAULT (datetime('now')),
			processing_status TEXT NOT NULL DEFAULT 'pending',
			processing_error TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS extraction_results (
			id TEXT PRIMARY KEY,
			article_id TEXT NOT NULL UNIQUE REFERENCES articles(id) ON DELETE CASCADE,
			consensus_summary TEXT NOT NULL,
			summary_a TEXT,
			summary_b TEXT,
			summary_arbitrator TEXT,
			summary_similarity REAL NOT NULL DEFAULT 0,
			had_conflicts INTEGER NOT NULL DEFAULT 0,
			used_arbitration INTEGER NOT NULL DEFAULT 0,
			ner_entity_count INTEGER NOT NULL DEFAULT 0,
			ner_precision REAL NOT NULL DEFAULT 0,
			ner_recall REAL NOT NULL DEFAULT 0,
			ner_f1 REAL NOT NULL DEFAULT 0,
			processing_seconds REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS facts (
			id TEXT PRIMARY KEY,
			article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			extraction_result_id TEXT NOT NULL REFERENCES extraction_results(id) ON DELETE CASCADE,
			entity TEXT NOT NULL,
			normalized TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			confidence REAL NOT NULL,
			event_description TEXT,
			sources TEXT NOT NULL,
			sentence_index INTEGER,
			paragraph_index INTEGER,
			char_start INTEGER,
			char_end INTEGER,
			kb_id TEXT,
			kb_label TEXT,
			kb_description TEXT,
			kb_properties TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS entity_relationships (
			id TEXT PRIMARY KEY,
			article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			entity_a TEXT NOT NULL,
			entity_b TEXT NOT NULL,
			relationship_type TEXT NOT NULL,
			relationship_description TEXT,
			confidence REAL NOT NULL DEFAULT 0,
			pmi_score REAL NOT NULL DEFAULT 0,
			npmi_score REAL NOT NULL DEFAULT 0,
			scoring_method TEXT NOT NULL DEFAULT 'proximity',
			raw_cooccurrence_count INTEGER NOT NULL DEFAULT 0,
			proximity_weight REAL NOT NULL DEFAULT 0,
			min_sentence_distance INTEGER NOT NULL DEFAULT 0,
			avg_sentence_distance REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(article_id, entity_a, entity_b, relationship_type)
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS cost_records (
			id TEXT PRIMARY KEY,
			article_id TEXT REFERENCES articles(id) ON DELETE SET NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			operation TEXT NOT NULL DEFAULT 'extraction',
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS kb_cache (
			cache_key TEXT PRIMARY KEY,
			kb_id TEXT NOT NULL,
			label TEXT NOT NULL,
			description TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(processing_status);
		CREATE INDEX IF NOT EXISTS idx_facts_article ON facts(article_id);
		CREATE INDEX IF NOT EXISTS idx_facts_normalized ON facts(normalized, entity_type);
		CREATE INDEX IF NOT EXISTS idx_relationships_article ON entity_relationships(article_id);
		CREATE INDEX IF NOT EXISTS idx_cost_records_created ON cost_records(created_at);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec("INSERT INTO migrations (version) VALUES (1)")
	if err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
