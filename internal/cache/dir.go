package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// DirStore keeps one record file per entry. File names are the SHA-256 of
// the encoded (model, key) so arbitrary document paths are safe.
type DirStore struct {
	dir    string
	logger *slog.Logger
	closed atomic.Bool
}

// DirOption configures a DirStore
type DirOption func(*DirStore)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) DirOption {
	return func(s *DirStore) {
		s.logger = logger.With("component", "cache")
	}
}

// NewDirStore returns a store rooted at dir. The directory is created on
// first write.
func NewDirStore(dir string, opts ...DirOption) *DirStore {
	s := &DirStore{
		dir:    dir,
		logger: slog.Default().With("component", "cache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the cache directory
func (s *DirStore) Dir() string {
	return s.dir
}

func (s *DirStore) Backend() string {
	return BackendDir
}

// Get reads the record for (model, key). Unreadable or corrupt records are
// reported as errors wrapping ErrCorrupt; callers treat them as misses.
func (s *DirStore) Get(ctx context.Context, model string, key Key) (*Entry, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, fileName(model, key))
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if entry.Model != model || entry.Key != key {
		// digest collision or a record copied under the wrong name
		return nil, ErrNotFound
	}
	return entry, nil
}

// Put writes the record atomically: a temporary file in the same directory
// is renamed over the final name, so readers never see a partial record and
// concurrent writers of the same key race harmlessly.
func (s *DirStore) Put(ctx context.Context, entry *Entry) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(encodeEntry(entry)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record: %w", err)
	}

	final := filepath.Join(s.dir, fileName(entry.Model, entry.Key))
	if err := os.Rename(tmpName, final); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	s.logger.Debug("cached embedding", "key", entry.Key.String(), "model", entry.Model)
	return nil
}

// Len counts record files
func (s *DirStore) Len(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), recordExt) {
			n++
		}
	}
	return n, nil
}

func (s *DirStore) Close() error {
	s.closed.Store(true)
	return nil
}
