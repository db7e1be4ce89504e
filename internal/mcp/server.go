package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/Kurasuai-Inc/doc-search/internal/orchestrator"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "doc-search"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes an orchestrator over the MCP protocol
type Server struct {
	mcp      *server.MCPServer
	orch     *orchestrator.Orchestrator
	defaults types.SearchOptions
	logger   *slog.Logger
}

// NewServer creates a server whose searches start from defaults
func NewServer(orch *orchestrator.Orchestrator, defaults types.SearchOptions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		orch:     orch,
		defaults: defaults,
		logger:   logger.With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Serve runs the server on stdio until the client disconnects or ctx ends
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(buildIndexTool(), s.handleBuildIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
