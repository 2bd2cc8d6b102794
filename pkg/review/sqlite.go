package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codeGROOVE-dev/autoreview/pkg/types"

	_ "modernc.org/sqlite" // pure Go driver, no CGO
)

// SQLiteStore is a durable Store backed by modernc.org/sqlite. Reviews are
// stored as JSON documents keyed by id so the schema never chases the
// Review shape.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed review store at the
// given path and creates the schema if needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent reviews.
	db.SetMaxOpenConns(1)

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		document TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts or updates a review document. Overwriting a terminal review
// fails with ErrReviewImmutable.
func (s *SQLiteStore) Put(ctx context.Context, review *types.Review) error {
	if review == nil || review.ID == "" {
		return errors.New("review must have an id")
	}

	var status string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM reviews WHERE id = ?", review.ID).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// New review
	case err != nil:
		return fmt.Errorf("failed to check existing review: %w", err)
	case types.ReviewStatus(status).Terminal():
		return ErrReviewImmutable
	}

	doc, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to marshal review: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO reviews (id, status, created_at, document)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, document = excluded.document`,
		review.ID, string(review.Status), review.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"), string(doc))
	if err != nil {
		return fmt.Errorf("failed to store review: %w", err)
	}
	return nil
}

// Get returns the review with the given id or ErrReviewNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Review, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM reviews WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review: %w", err)
	}

	var review types.Review
	if err := json.Unmarshal([]byte(doc), &review); err != nil {
		return nil, fmt.Errorf("failed to unmarshal review: %w", err)
	}
	return &review, nil
}

// List returns up to limit reviews, newest first. limit <= 0 means all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*types.Review, error) {
	query := "SELECT document FROM reviews ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviews []*types.Review
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		var review types.Review
		if err := json.Unmarshal([]byte(doc), &review); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review: %w", err)
		}
		reviews = append(reviews, &review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

// Delete removes a review. Deleting an unknown id returns ErrReviewNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return ErrReviewNotFound
	}
	return nil
}
