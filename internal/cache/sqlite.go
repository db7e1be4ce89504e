package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SQLiteStore keeps one row per (model, key)
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with WAL and a single connection
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath}, nil
}

func (s *SQLiteStore) Backend() string {
	return BackendSQLite
}

// Path returns the database file
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Get(ctx context.Context, model string, key Key) (*Entry, error) {
	query := `
		SELECT chunk_text, vector
		FROM embeddings
		WHERE model = ? AND document_path = ? AND chunk_index = ? AND content_hash = ?
	`
	var text string
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, model, key.DocumentPath, key.ChunkIndex, key.ContentHash).Scan(&text, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob of %d bytes", ErrCorrupt, len(blob))
	}
	return &Entry{Key: key, Model: model, Text: text, Vector: decodeVector(blob)}, nil
}

// Put inserts the entry; an existing row for the same key is left untouched
func (s *SQLiteStore) Put(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	query := `
		INSERT OR IGNORE INTO embeddings
			(model, document_path, chunk_index, content_hash, chunk_text, vector, dimension)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.Model, entry.Key.DocumentPath, entry.Key.ChunkIndex, entry.Key.ContentHash,
		entry.Text, serializeVector(entry.Vector), len(entry.Vector))
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
