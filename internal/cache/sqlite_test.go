package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Migrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "embeddings.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)

	v, err := SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.True(t, v.Equal(semver.MustParse(CurrentSchemaVersion)))

	require.NoError(t, RollbackMigration(ctx, s.db))
	v, err = SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	// reapplying only runs what is missing
	require.NoError(t, ApplyMigrations(ctx, s.db))
	v, err = SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
	require.NoError(t, s.Close())
}

func TestSQLiteStore_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "embeddings.db")
	e := testEntry("a.md", 1, "persisted", "local")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, e))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "local", e.Key)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestBadgerStore_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "badger")
	e := testEntry("a.md", 1, "persisted", "local")

	s, err := NewBadgerStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, e))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "local", e.Key)
	require.NoError(t, err)
	assert.Equal(t, e, got)
}
