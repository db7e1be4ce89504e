package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurasuai-Inc/doc-search/internal/cache"
	"github.com/Kurasuai-Inc/doc-search/internal/config"
	"github.com/Kurasuai-Inc/doc-search/internal/embedder"
	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
	"github.com/Kurasuai-Inc/doc-search/internal/semantic"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("Intro\ninstall steps\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "guide.txt"), []byte("configure the server\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.Lexical.ToolPath = ""
	cfg.Embedding.Provider = embedder.ProviderLocal
	cfg.Cache.Backend = cache.BackendMemory
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("semantic enabled", func(t *testing.T) {
		a, err := New(testConfig(t), nil)
		require.NoError(t, err)
		defer a.Close()

		assert.NotNil(t, a.Semantic)
		assert.NotNil(t, a.Store)
		assert.Equal(t, embedder.ProviderLocal, a.Embedder.Provider())
		assert.Equal(t, cache.BackendMemory, a.Store.Backend())
		assert.Equal(t, lexical.BackendScanner, a.Lexical.Backend())
		assert.True(t, a.Orchestrator.SemanticEnabled())
	})

	t.Run("semantic disabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Semantic.Enabled = false

		a, err := New(cfg, nil)
		require.NoError(t, err)
		defer a.Close()

		assert.Nil(t, a.Semantic)
		assert.Nil(t, a.Embedder)
		assert.False(t, a.Orchestrator.SemanticEnabled())
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Semantic.TopK = 0

		_, err := New(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("embedder cannot be built", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedding.Provider = "compatible"
		cfg.Embedding.Model = ""
		cfg.Embedding.Fallback = false

		_, err := New(cfg, nil)
		assert.Error(t, err)
	})
}

func TestApp_SearchAndIndex(t *testing.T) {
	var calls []int
	a, err := New(testConfig(t), nil, WithSemanticOptions(semantic.WithProgress(func(done, total int) {
		calls = append(calls, done)
	})))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	stats, err := a.Orchestrator.BuildIndex(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.NotEmpty(t, calls)

	resp, err := a.Orchestrator.PerformSearch(ctx, "install", a.Config.SearchOptions(), "")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, filepath.Join(a.Config.Root, "README.md"), resp.Results[0].DocumentPath)
	assert.Equal(t, 5, resp.Results[0].Score)
}
