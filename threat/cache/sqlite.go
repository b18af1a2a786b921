package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createFeedCacheTable = `
CREATE TABLE IF NOT EXISTS feed_cache (
	key TEXT PRIMARY KEY,
	entry BLOB NOT NULL,
	stored_at INTEGER NOT NULL
)`

// SQLiteBackend stores entries in a feed_cache table
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens the database at path in WAL mode and creates the table
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite parent directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Single writer; the pipeline is sequential
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if _, err := db.Exec(createFeedCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create feed_cache table: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Name() string { return BackendSQLite }

func (b *SQLiteBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, "SELECT entry FROM feed_cache WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *SQLiteBackend) Write(ctx context.Context, key string, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO feed_cache (key, entry, stored_at) VALUES (?, ?, ?)",
		key, data, time.Now().Unix())
	return err
}

func (b *SQLiteBackend) Count(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feed_cache").Scan(&n)
	return n, err
}

func (b *SQLiteBackend) Clear(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM feed_cache")
	return err
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
