package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{"dir", func(t *testing.T) Store {
			return NewDirStore(filepath.Join(t.TempDir(), "cache"))
		}},
		{"sqlite", func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache", "embeddings.db"))
			require.NoError(t, err)
			return s
		}},
		{"badger", func(t *testing.T) Store {
			s, err := NewBadgerStore("", nil)
			require.NoError(t, err)
			return s
		}},
		{"memory", func(t *testing.T) Store {
			return NewMemoryStore()
		}},
	}
}

func testEntry(path string, index int, text, model string) *Entry {
	return &Entry{
		Key:    NewKey(path, index, text),
		Model:  model,
		Text:   text,
		Vector: []float32{0.25, -0.5, 1, 0},
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			t.Run("miss then hit", func(t *testing.T) {
				s := f.open(t)
				defer s.Close()

				e := testEntry("docs/a.md", 0, "hello world", "local")
				_, err := s.Get(ctx, e.Model, e.Key)
				assert.ErrorIs(t, err, ErrNotFound)

				require.NoError(t, s.Put(ctx, e))
				got, err := s.Get(ctx, e.Model, e.Key)
				require.NoError(t, err)
				assert.Equal(t, e, got)

				n, err := s.Len(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})

			t.Run("namespaced by model", func(t *testing.T) {
				s := f.open(t)
				defer s.Close()

				e := testEntry("docs/a.md", 0, "hello world", "text-embedding-3-small")
				require.NoError(t, s.Put(ctx, e))

				_, err := s.Get(ctx, "local", e.Key)
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("changed content is a new key", func(t *testing.T) {
				s := f.open(t)
				defer s.Close()

				old := testEntry("docs/a.md", 0, "version one", "local")
				edited := testEntry("docs/a.md", 0, "version two", "local")
				require.NoError(t, s.Put(ctx, old))
				require.NoError(t, s.Put(ctx, edited))

				got, err := s.Get(ctx, "local", old.Key)
				require.NoError(t, err)
				assert.Equal(t, "version one", got.Text)

				n, err := s.Len(ctx)
				require.NoError(t, err)
				assert.Equal(t, 2, n)
			})

			t.Run("put existing key is tolerated", func(t *testing.T) {
				s := f.open(t)
				defer s.Close()

				e := testEntry("docs/a.md", 3, "same", "local")
				require.NoError(t, s.Put(ctx, e))
				require.NoError(t, s.Put(ctx, e))

				n, err := s.Len(ctx)
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})

			t.Run("concurrent puts", func(t *testing.T) {
				s := f.open(t)
				defer s.Close()

				var wg sync.WaitGroup
				errs := make(chan error, 40)
				for i := 0; i < 20; i++ {
					wg.Add(2)
					go func(i int) {
						defer wg.Done()
						errs <- s.Put(ctx, testEntry("docs/a.md", i, "chunk", "local"))
					}(i)
					go func() {
						defer wg.Done()
						errs <- s.Put(ctx, testEntry("docs/shared.md", 0, "same", "local"))
					}()
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					assert.NoError(t, err)
				}

				n, err := s.Len(ctx)
				require.NoError(t, err)
				assert.Equal(t, 21, n)
			})

			t.Run("rejects invalid entries", func(t *testing.T) {
				s := f.open(t)
				defer s.Close()

				e := testEntry("docs/a.md", 0, "x", "local")
				e.Vector = nil
				assert.ErrorIs(t, s.Put(ctx, e), ErrInvalidEntry)

				e = testEntry("", 0, "x", "local")
				assert.ErrorIs(t, s.Put(ctx, e), ErrInvalidKey)
			})
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		backend string
		want    string
	}{
		{"", BackendDir},
		{BackendDir, BackendDir},
		{BackendSQLite, BackendSQLite},
		{BackendBadger, BackendBadger},
		{BackendMemory, BackendMemory},
	}
	for _, tt := range tests {
		t.Run(tt.want+"_"+tt.backend, func(t *testing.T) {
			s, err := Open(Config{Backend: tt.backend, Dir: filepath.Join(dir, tt.backend+"x")}, nil)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.want, s.Backend())
		})
	}

	_, err := Open(Config{Backend: "redis"}, nil)
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

func TestKey(t *testing.T) {
	a := NewKey("a.md", 0, "text")
	b := NewKey("a.md", 0, "text")
	c := NewKey("a.md", 0, "text!")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.ContentHash, c.ContentHash)
	assert.Len(t, a.ContentHash, HashLen)
	assert.NoError(t, a.Validate())
	assert.ErrorIs(t, Key{DocumentPath: "a.md", ChunkIndex: -1, ContentHash: "x"}.Validate(), ErrInvalidKey)
}

func TestStorageKey_NoSeparatorAmbiguity(t *testing.T) {
	// with naive "path:index:hash" joining these two would collide
	k1 := Key{DocumentPath: "a:1", ChunkIndex: 2, ContentHash: "h"}
	k2 := Key{DocumentPath: "a", ChunkIndex: 1, ContentHash: "2:h"}
	assert.NotEqual(t, storageKey("m", k1), storageKey("m", k2))
	assert.NotEqual(t, fileName("m", k1), fileName("m", k2))
	assert.NotEqual(t, storageKey("m:a", Key{DocumentPath: "b"}), storageKey("m", Key{DocumentPath: "a:b"}))
}
