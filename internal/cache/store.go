// Package cache persists chunk embeddings keyed by (document, chunk index,
// content hash) and namespaced by the model that produced them.
//
// The cache is append-only and content-addressed: entries are never updated
// in place, and a changed chunk simply gets a new key. Several backends
// implement Store:
//
//   - DirStore: one binary record file per key under a directory (default)
//   - SQLiteStore: one row per key in a SQLite database
//   - BadgerStore: one value per key in a Badger key-value store
//   - MemoryStore: process-local map, for tests and throwaway sessions
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Backend names accepted by Open
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// DefaultDir is used when no cache directory is configured
const DefaultDir = ".doc_search_cache"

var (
	// ErrNotFound is returned by Get on a cache miss
	ErrNotFound = errors.New("not found")
	// ErrUnknownBackend is returned by Open for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown cache backend")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("cache closed")
)

// Store is an embedding cache. Implementations are safe for concurrent use,
// including concurrent Put of the same key.
type Store interface {
	// Get returns the entry produced by model for key, or ErrNotFound
	Get(ctx context.Context, model string, key Key) (*Entry, error)
	// Put persists an entry. Writing an existing key is not an error.
	Put(ctx context.Context, entry *Entry) error
	// Len counts stored entries across all models
	Len(ctx context.Context) (int, error)
	// Backend names the implementation
	Backend() string
	Close() error
}

// Config selects and locates a Store
type Config struct {
	Backend string
	Dir     string
}

// Open creates the configured Store. File-backed stores create their
// directory lazily or on open; a missing directory is never an error.
func Open(cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}

	switch cfg.Backend {
	case "", BackendDir:
		return NewDirStore(dir, WithLogger(logger)), nil
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "embeddings.db"))
	case BackendBadger:
		return NewBadgerStore(filepath.Join(dir, "badger"), logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
