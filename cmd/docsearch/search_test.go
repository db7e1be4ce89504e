package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
	"github.com/Kurasuai-Inc/doc-search/internal/orchestrator"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

func sampleResponse() *orchestrator.Response {
	return &orchestrator.Response{
		ID:            "id-1",
		Backend:       lexical.BackendScanner,
		LexicalCount:  1,
		SemanticCount: 1,
		Duration:      1500 * time.Microsecond,
		Results: []types.RankedResult{
			{Origin: types.OriginLexical, DocumentPath: "docs/README.md", LineNumber: 2, DisplayText: "install steps", Score: 5, MatchStart: 0, MatchEnd: 7},
			{Origin: types.OriginSemantic, DocumentPath: "docs/guide.md", ChunkIndex: 1, DisplayText: "[Semantic] setup", Score: 4, Similarity: 0.8},
		},
	}
}

func TestPrintSearchTable(t *testing.T) {
	var buf bytes.Buffer
	printSearchTable(&buf, sampleResponse())

	out := buf.String()
	assert.Contains(t, out, "Found 2 results (1 pattern, 1 semantic) via scanner")
	assert.Contains(t, out, "[*****] docs/README.md:2")
	assert.Contains(t, out, "[**** ] docs/guide.md#1")
	assert.Contains(t, out, "[Semantic] setup")
}

func TestPrintSearchTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	printSearchTable(&buf, &orchestrator.Response{Status: "ripgrep timed out"})

	assert.Equal(t, "warning: ripgrep timed out\nNo results found.\n", buf.String())
}

func TestPrintSearchJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSearchJSON(&buf, sampleResponse()))

	var got searchResponseJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "scanner", got.Backend)
	require.Len(t, got.Results, 2)
	assert.Equal(t, 2, got.Results[0].Line)
	assert.Equal(t, "semantic", got.Results[1].Origin)
	assert.InDelta(t, 0.8, got.Results[1].Similarity, 1e-9)
}

func TestStars(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{score: 5, want: "*****"},
		{score: 3, want: "***  "},
		{score: 1, want: "*    "},
		{score: 0, want: "*    "},
		{score: 9, want: "*****"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stars(tt.score))
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "WARN")

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger.Warn("ripgrep missing", "component", "lexical")
	assert.Contains(t, buf.String(), "component=lexical")
}
