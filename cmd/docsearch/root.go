package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Kurasuai-Inc/doc-search/internal/app"
	"github.com/Kurasuai-Inc/doc-search/internal/config"
)

var (
	cfgFile  string
	logLevel string
	rootDir  string
)

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Search documentation by pattern and by meaning",
	Long: `docsearch searches documentation trees with ripgrep (or a built-in
scanner when ripgrep is missing) and, when enabled, with an embedding index.
Hits from both engines are merged into one list ranked from 1 to 5.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "default directory to search (overrides config)")
}

// loadConfig reads the config file and applies persistent flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if rootDir != "" {
		cfg.Root = rootDir
	}
	return cfg, nil
}

// newLogger writes text logs to w; stdout stays free for results and the MCP protocol
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// openApp assembles the search stack, logging to stderr
func openApp(cfg *config.Config, opts ...app.Option) (*app.App, *slog.Logger, error) {
	logger := newLogger(os.Stderr, cfg.Log.Level)
	slog.SetDefault(logger)

	a, err := app.New(cfg, logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

// signalContext is cancelled on interrupt or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
