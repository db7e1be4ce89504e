// Package app assembles the search stack from a Config. Both the command
// line and the MCP server start from the same App.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Kurasuai-Inc/doc-search/internal/cache"
	"github.com/Kurasuai-Inc/doc-search/internal/config"
	"github.com/Kurasuai-Inc/doc-search/internal/embedder"
	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
	"github.com/Kurasuai-Inc/doc-search/internal/orchestrator"
	"github.com/Kurasuai-Inc/doc-search/internal/semantic"
)

// App owns every long-lived component
type App struct {
	Config       *config.Config
	Lexical      *lexical.Engine
	Embedder     embedder.Embedder // nil when semantic search is disabled
	Store        cache.Store       // nil when semantic search is disabled
	Semantic     *semantic.Engine  // nil when semantic search is disabled
	Orchestrator *orchestrator.Orchestrator

	logger *slog.Logger
}

// Option adjusts how the App is assembled
type Option func(*options)

type options struct {
	semantic []semantic.Option
}

// WithSemanticOptions passes extra options to the semantic engine,
// such as a progress callback
func WithSemanticOptions(opts ...semantic.Option) Option {
	return func(o *options) {
		o.semantic = append(o.semantic, opts...)
	}
}

// New validates cfg and builds the components it describes. The embedder and
// the embedding cache are shared by index builds and searches.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, logger: logger}

	a.Lexical = lexical.New(
		lexical.WithToolPath(cfg.Lexical.ToolPath),
		lexical.WithFallback(cfg.Lexical.Fallback),
		lexical.WithTimeout(cfg.Lexical.Timeout),
		lexical.WithLogger(logger),
	)

	var sem orchestrator.SemanticSearcher
	if cfg.Semantic.Enabled {
		if err := a.openSemantic(o.semantic); err != nil {
			return nil, err
		}
		sem = a.Semantic
	}

	orch, err := orchestrator.New(a.Lexical, sem,
		orchestrator.WithRoot(cfg.Root),
		orchestrator.WithMaxResults(cfg.Search.MaxResults),
		orchestrator.WithSemanticTopK(cfg.Semantic.TopK),
		orchestrator.WithThreshold(cfg.Semantic.Threshold),
		orchestrator.WithPoolSize(cfg.Search.PoolSize),
		orchestrator.WithResponseCache(cfg.Search.ResponseCacheSize, cfg.Search.ResponseCacheTTL),
		orchestrator.WithIndexFileTypes(cfg.Semantic.FileTypes),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		_ = a.closeSemantic()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	a.Orchestrator = orch

	logger.Debug("search stack ready",
		"root", cfg.Root,
		"backend", a.Lexical.Backend(),
		"semantic", sem != nil)
	return a, nil
}

func (a *App) openSemantic(extra []semantic.Option) error {
	emb, err := embedder.New(a.Config.EmbedderConfig(), a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	store, err := cache.Open(a.Config.CacheConfig(), a.logger)
	if err != nil {
		_ = emb.Close()
		return fmt.Errorf("failed to open embedding cache: %w", err)
	}

	semOpts := []semantic.Option{
		semantic.WithChunkSize(a.Config.Semantic.ChunkSize),
		semantic.WithBatchSize(a.Config.Semantic.BatchSize),
		semantic.WithWorkers(a.Config.Semantic.Workers),
		semantic.WithLogger(a.logger),
	}
	semOpts = append(semOpts, extra...)

	a.Embedder = emb
	a.Store = store
	a.Semantic = semantic.New(emb, store, semOpts...)
	return nil
}

func (a *App) closeSemantic() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	return errors.Join(errs...)
}

// Close stops the orchestrator and releases the cache and embedder
func (a *App) Close() error {
	var errs []error
	if a.Orchestrator != nil {
		errs = append(errs, a.Orchestrator.Close())
	}
	errs = append(errs, a.closeSemantic())
	return errors.Join(errs...)
}
