// Package mcp implements the Model Context Protocol (MCP) server for doc-search.
//
// The server exposes three tools to MCP clients:
//   - search_documents: run a merged pattern and semantic search
//   - build_index: build or refresh the semantic index
//   - get_status: report the active backends and index state
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. Stdout carries protocol messages only, so
// all logging goes to stderr:
//
//	docsearch serve --config .docsearch.yml
//
// # Tool: search_documents
//
//	Request:
//	{
//	  "name": "search_documents",
//	  "arguments": {
//	    "query": "install",
//	    "path": "/path/to/docs",
//	    "use_regex": true,
//	    "case_sensitive": false,
//	    "file_types": ["md", "rst"],
//	    "max_results": 100,
//	    "context_lines": 2
//	  }
//	}
//
//	Response:
//	{
//	  "backend": "ripgrep",
//	  "lexical_count": 1,
//	  "semantic_count": 1,
//	  "results": [
//	    {"origin": "lexical", "path": "/path/to/docs/README.md", "line": 2,
//	     "text": "install", "score": 5, "match_start": 0, "match_end": 7},
//	    {"origin": "semantic", "path": "/path/to/docs/guide.md", "chunk": 0,
//	     "text": "[Semantic] Setup guide ...", "score": 4, "similarity": 0.81}
//	  ]
//	}
//
// Omitted arguments take their values from the server configuration. A blank
// query returns no results.
//
// # Client Configuration
//
//	{
//	  "mcpServers": {
//	    "doc-search": {
//	      "command": "/usr/local/bin/docsearch",
//	      "args": ["serve"],
//	      "env": {"OPENAI_API_KEY": "your-api-key"}
//	    }
//	  }
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (bad path or search options)
//   - -32603: Internal error (index build failed)
//   - -32001: Search superseded by a newer query
//   - -32002: Semantic search disabled
//   - -32003: Every enabled search engine failed
package mcp
