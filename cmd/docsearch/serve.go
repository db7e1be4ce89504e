package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Kurasuai-Inc/doc-search/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, logger, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	server := mcp.NewServer(a.Orchestrator, a.Config.SearchOptions(), logger)
	logger.Info("MCP server ready, listening on stdio", "version", version, "root", a.Config.Root)

	err = server.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
