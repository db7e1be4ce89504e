package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search documentation files by pattern and by meaning, returning hits ranked 1-5",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text or regular expression to search for",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory or file to search (defaults to the configured root)",
				},
				"use_regex": map[string]interface{}{
					"type":        "boolean",
					"description": "Treat the query as a regular expression",
					"default":     true,
				},
				"case_sensitive": map[string]interface{}{
					"type":        "boolean",
					"description": "Match case exactly",
					"default":     false,
				},
				"file_types": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "File extensions to search, without the dot (defaults to md, rst, txt, py)",
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of pattern matches (0 for no limit)",
					"default":     100,
					"minimum":     0,
				},
				"context_lines": map[string]interface{}{
					"type":        "integer",
					"description": "Lines of context around each match",
					"default":     2,
					"minimum":     0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// buildIndexTool returns the tool definition for build_index
func buildIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_index",
		Description: "Build or refresh the semantic index for a document tree",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the document tree (defaults to the configured root)",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report the active search backends and semantic index state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
