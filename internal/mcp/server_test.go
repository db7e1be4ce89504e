package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurasuai-Inc/doc-search/internal/app"
	"github.com/Kurasuai-Inc/doc-search/internal/cache"
	"github.com/Kurasuai-Inc/doc-search/internal/config"
	"github.com/Kurasuai-Inc/doc-search/internal/embedder"
	"github.com/Kurasuai-Inc/doc-search/internal/orchestrator"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

func newTestServer(t *testing.T, semanticEnabled bool) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("Intro\ninstall steps\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("nothing relevant here\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.Lexical.ToolPath = ""
	cfg.Semantic.Enabled = semanticEnabled
	cfg.Embedding.Provider = embedder.ProviderLocal
	cfg.Cache.Backend = cache.BackendMemory

	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return NewServer(a.Orchestrator, cfg.SearchOptions(), nil), root
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mErr *MCPError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, code, mErr.Code)
	return mErr
}

func TestServer_ListTools(t *testing.T) {
	s, _ := newTestServer(t, true)

	msg := s.mcp.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))

	var names []string
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_documents", "build_index", "get_status"}, names)
}

func TestHandleSearchDocuments(t *testing.T) {
	s, root := newTestServer(t, true)
	ctx := context.Background()

	t.Run("readme match ranks first", func(t *testing.T) {
		res, err := s.handleSearchDocuments(ctx, callRequest("search_documents", map[string]interface{}{
			"query": "install",
			"path":  root,
		}))
		require.NoError(t, err)

		out := decodeResult(t, res)
		assert.Equal(t, "scanner", out["backend"])
		assert.EqualValues(t, 1, out["lexical_count"])

		results, ok := out["results"].([]interface{})
		require.True(t, ok)
		require.NotEmpty(t, results)
		first := results[0].(map[string]interface{})
		assert.Equal(t, "lexical", first["origin"])
		assert.Equal(t, filepath.Join(root, "README.md"), first["path"])
		assert.EqualValues(t, 2, first["line"])
		assert.EqualValues(t, 5, first["score"])
		assert.EqualValues(t, 0, first["match_start"])
		assert.EqualValues(t, 7, first["match_end"])
	})

	t.Run("default root when path omitted", func(t *testing.T) {
		res, err := s.handleSearchDocuments(ctx, callRequest("search_documents", map[string]interface{}{
			"query": "install",
		}))
		require.NoError(t, err)
		assert.Equal(t, root, decodeResult(t, res)["root"])
	})

	t.Run("blank query returns no results", func(t *testing.T) {
		res, err := s.handleSearchDocuments(ctx, callRequest("search_documents", map[string]interface{}{
			"query": "   ",
		}))
		require.NoError(t, err)
		results, _ := decodeResult(t, res)["results"].([]interface{})
		assert.Empty(t, results)
	})

	t.Run("file types narrow the search", func(t *testing.T) {
		res, err := s.handleSearchDocuments(ctx, callRequest("search_documents", map[string]interface{}{
			"query":      "install",
			"file_types": []interface{}{"txt"},
		}))
		require.NoError(t, err)
		assert.EqualValues(t, 0, decodeResult(t, res)["lexical_count"])
	})
}

func TestHandleSearchDocuments_ConcurrentCalls(t *testing.T) {
	s, root := newTestServer(t, true)
	queries := []string{"install", "Intro", "steps", "install steps", "install", "Intro", "steps", "install steps"}

	results := make([]*mcp.CallToolResult, len(queries))
	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.handleSearchDocuments(context.Background(), callRequest("search_documents", map[string]interface{}{
				"query": q,
				"path":  root,
			}))
		}()
	}
	wg.Wait()

	for i, q := range queries {
		require.NoError(t, errs[i], "query %q", q)
		assert.EqualValues(t, 1, decodeResult(t, results[i])["lexical_count"], "query %q", q)
	}
}

func TestHandleSearchDocuments_InvalidParams(t *testing.T) {
	s, root := newTestServer(t, false)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "missing query", args: map[string]interface{}{"path": root}},
		{name: "query not a string", args: map[string]interface{}{"query": 42}},
		{name: "relative path", args: map[string]interface{}{"query": "x", "path": "docs"}},
		{name: "missing path", args: map[string]interface{}{"query": "x", "path": filepath.Join(root, "nope")}},
		{name: "path not a string", args: map[string]interface{}{"query": "x", "path": true}},
		{name: "negative max results", args: map[string]interface{}{"query": "x", "max_results": float64(-1)}},
		{name: "negative context", args: map[string]interface{}{"query": "x", "context_lines": float64(-2)}},
		{name: "file types not strings", args: map[string]interface{}{"query": "x", "file_types": []interface{}{"md", 3}}},
		{name: "file types not an array", args: map[string]interface{}{"query": "x", "file_types": "md"}},
		{name: "empty file type", args: map[string]interface{}{"query": "x", "file_types": []interface{}{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearchDocuments(context.Background(), callRequest("search_documents", tt.args))
			requireMCPError(t, err, ErrorCodeInvalidParams)
		})
	}

	t.Run("arguments not an object", func(t *testing.T) {
		var req mcp.CallToolRequest
		req.Params.Arguments = []interface{}{"x"}
		_, err := s.handleSearchDocuments(context.Background(), req)
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestSearchError(t *testing.T) {
	s, _ := newTestServer(t, false)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "superseded", err: orchestrator.ErrSuperseded, code: ErrorCodeSuperseded},
		{name: "invalid pattern", err: fmt.Errorf("%w: invalid pattern", types.ErrInvalidOptions), code: ErrorCodeInvalidParams},
		{name: "engine failure", err: fmt.Errorf("walking root: %w", fs.ErrPermission), code: ErrorCodeSearchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireMCPError(t, s.searchError(tt.err), tt.code)
		})
	}
}

func TestHandleSearchDocuments_InvalidPattern(t *testing.T) {
	s, root := newTestServer(t, false)

	_, err := s.handleSearchDocuments(context.Background(), callRequest("search_documents", map[string]interface{}{
		"query":     "([",
		"path":      root,
		"use_regex": true,
	}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleBuildIndex(t *testing.T) {
	t.Run("builds the default root", func(t *testing.T) {
		s, root := newTestServer(t, true)

		res, err := s.handleBuildIndex(context.Background(), callRequest("build_index", nil))
		require.NoError(t, err)

		out := decodeResult(t, res)
		assert.Equal(t, true, out["indexed"])
		assert.EqualValues(t, 2, out["documents"])
		assert.EqualValues(t, 2, out["chunks"])
		assert.Equal(t, "local-hash-384", out["model"])

		status, err := s.handleGetStatus(context.Background(), callRequest("get_status", nil))
		require.NoError(t, err)
		sem := decodeResult(t, status)["semantic"].(map[string]interface{})
		assert.Equal(t, true, sem["ready"])
		assert.Equal(t, root, sem["indexed_root"])
		assert.EqualValues(t, 2, sem["chunks"])
	})

	t.Run("second build reuses the cache", func(t *testing.T) {
		s, root := newTestServer(t, true)
		args := map[string]interface{}{"path": root}

		_, err := s.handleBuildIndex(context.Background(), callRequest("build_index", args))
		require.NoError(t, err)
		res, err := s.handleBuildIndex(context.Background(), callRequest("build_index", args))
		require.NoError(t, err)

		out := decodeResult(t, res)
		assert.EqualValues(t, 0, out["embedded"])
		assert.EqualValues(t, 2, out["cache_hits"])
	})

	t.Run("semantic disabled", func(t *testing.T) {
		s, _ := newTestServer(t, false)

		_, err := s.handleBuildIndex(context.Background(), callRequest("build_index", nil))
		requireMCPError(t, err, ErrorCodeSemanticDisabled)
	})

	t.Run("relative path rejected", func(t *testing.T) {
		s, _ := newTestServer(t, true)

		_, err := s.handleBuildIndex(context.Background(), callRequest("build_index", map[string]interface{}{"path": "docs"}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestHandleGetStatus(t *testing.T) {
	s, root := newTestServer(t, false)

	res, err := s.handleGetStatus(context.Background(), callRequest("get_status", nil))
	require.NoError(t, err)

	out := decodeResult(t, res)
	assert.Equal(t, root, out["root"])
	assert.Equal(t, "scanner", out["backend"])
	sem := out["semantic"].(map[string]interface{})
	assert.Equal(t, false, sem["enabled"])
	assert.Equal(t, false, sem["ready"])
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "directory", path: dir},
		{name: "file", path: file},
		{name: "relative", path: "a.md", want: ErrPathNotAbsolute},
		{name: "missing", path: filepath.Join(dir, "missing"), want: ErrPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
