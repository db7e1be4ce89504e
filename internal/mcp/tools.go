package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/internal/orchestrator"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeSuperseded       = -32001 // A newer search replaced this one
	ErrorCodeSemanticDisabled = -32002 // No semantic engine is configured
	ErrorCodeSearchFailed     = -32003 // Every enabled engine failed
)

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	path, err := s.resolvePath(args)
	if err != nil {
		return nil, err
	}

	opts, err := s.searchOptions(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.orch.Search(ctx, query, opts, path)
	if err != nil {
		return nil, s.searchError(err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, formatResult(r))
	}

	response := map[string]interface{}{
		"id":             resp.ID,
		"query":          resp.Query,
		"root":           resp.Root,
		"backend":        string(resp.Backend),
		"results":        results,
		"lexical_count":  resp.LexicalCount,
		"semantic_count": resp.SemanticCount,
		"duration_ms":    resp.Duration.Milliseconds(),
		"cache_hit":      resp.CacheHit,
	}
	if resp.Status != "" {
		response["status"] = resp.Status
	}
	if len(resp.Warnings) > 0 {
		response["warnings"] = resp.Warnings
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleBuildIndex handles the build_index tool invocation
func (s *Server) handleBuildIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok && request.Params.Arguments != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := s.resolvePath(args)
	if err != nil {
		return nil, err
	}

	stats, err := s.orch.BuildIndex(ctx, path)
	if errors.Is(err, orchestrator.ErrSemanticDisabled) {
		return nil, newMCPError(ErrorCodeSemanticDisabled, "semantic search is disabled", nil)
	}
	if err != nil {
		c := errclass.Classify(err)
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"kind":  c.Kind.String(),
			"error": c.Message,
		})
	}

	response := map[string]interface{}{
		"indexed":          true,
		"documents":        stats.Documents,
		"chunks":           stats.Chunks,
		"empty_chunks":     stats.Skipped,
		"cache_hits":       stats.CacheHits,
		"embedded":         stats.Embedded,
		"persist_failures": stats.PersistFailures,
		"model":            stats.Model,
		"duration_ms":      stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.orch.Status()

	response := map[string]interface{}{
		"root":    st.Root,
		"backend": string(st.Backend),
		"semantic": map[string]interface{}{
			"enabled":      st.SemanticEnabled,
			"ready":        st.SemanticReady,
			"indexed_root": st.IndexedRoot,
			"chunks":       st.IndexedChunks,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// searchOptions overlays request arguments on the server defaults
func (s *Server) searchOptions(args map[string]interface{}) (types.SearchOptions, error) {
	opts := s.defaults
	opts.FileTypes = slices.Clone(s.defaults.FileTypes)

	opts.UseRegex = getBoolDefault(args, "use_regex", opts.UseRegex)
	opts.CaseSensitive = getBoolDefault(args, "case_sensitive", opts.CaseSensitive)
	opts.MaxResults = getIntDefault(args, "max_results", opts.MaxResults)
	opts.ContextLines = getIntDefault(args, "context_lines", opts.ContextLines)

	if raw, present := args["file_types"]; present {
		fileTypes, ok := getStringSlice(raw)
		if !ok {
			return opts, newMCPError(ErrorCodeInvalidParams, "file_types must be an array of strings", map[string]interface{}{
				"param": "file_types",
			})
		}
		opts.FileTypes = fileTypes
	}

	if err := opts.Validate(); err != nil {
		return opts, newMCPError(ErrorCodeInvalidParams, "invalid search options", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return opts, nil
}

// resolvePath returns the validated path argument, or "" for the default root
func (s *Server) resolvePath(args map[string]interface{}) (string, error) {
	raw, present := args["path"]
	if !present {
		return "", nil
	}
	path, ok := raw.(string)
	if !ok {
		return "", newMCPError(ErrorCodeInvalidParams, "path must be a string", map[string]interface{}{
			"param": "path",
		})
	}
	if path == "" {
		return "", nil
	}
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return path, nil
}

func (s *Server) searchError(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrSuperseded):
		return newMCPError(ErrorCodeSuperseded, "search superseded by a newer query", nil)
	case errors.Is(err, types.ErrInvalidOptions):
		return newMCPError(ErrorCodeInvalidParams, "invalid search options", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	c := errclass.Classify(err)
	s.logger.Warn("search failed", "kind", c.Kind, "error", err)
	return newMCPError(ErrorCodeSearchFailed, "search failed", map[string]interface{}{
		"kind":  c.Kind.String(),
		"error": c.Message,
	})
}

func formatResult(r types.RankedResult) map[string]interface{} {
	out := map[string]interface{}{
		"origin": string(r.Origin),
		"path":   r.DocumentPath,
		"text":   r.DisplayText,
		"score":  r.Score,
	}
	switch r.Origin {
	case types.OriginLexical:
		out["line"] = r.LineNumber
		out["match_start"] = r.MatchStart
		out["match_end"] = r.MatchEnd
	case types.OriginSemantic:
		out["chunk"] = r.ChunkIndex
		out["similarity"] = r.Similarity
	}
	return out
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that a path is absolute and readable. Both directories
// and single files are accepted.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	if !info.IsDir() && !info.Mode().IsRegular() {
		return ErrNotSearchable
	}
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getStringSlice(raw interface{}) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return slices.Clone(v), true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}

// Validation errors

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotSearchable   = errors.New("path is neither a directory nor a regular file")
)
