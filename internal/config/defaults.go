package config

import (
	"time"

	"github.com/Kurasuai-Inc/doc-search/internal/cache"
	"github.com/Kurasuai-Inc/doc-search/internal/chunker"
	"github.com/Kurasuai-Inc/doc-search/internal/embedder"
	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
	"github.com/Kurasuai-Inc/doc-search/internal/orchestrator"
)

// DefaultFile is the configuration file looked up in the working directory
const DefaultFile = ".docsearch.yml"

// EnvPrefix prefixes environment overrides: DOCSEARCH_SEARCH__MAX_RESULTS -> search.max_results
const EnvPrefix = "DOCSEARCH_"

// Conventional variables honoured when the prefixed ones are unset
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvJinaKey        = "JINA_API_KEY"
	EnvEmbeddingModel = "EMBEDDING_MODEL"
)

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Root: ".",
		Search: SearchConfig{
			UseRegex:         true,
			MaxResults:       orchestrator.DefaultMaxResults,
			ContextLines:     orchestrator.DefaultContextLines,
			PoolSize:         orchestrator.DefaultPoolSize,
			ResponseCacheTTL: 5 * time.Minute,
		},
		Lexical: LexicalConfig{
			ToolPath: lexical.ToolName,
			Fallback: true,
			Timeout:  lexical.DefaultTimeout,
		},
		Semantic: SemanticConfig{
			Enabled:   true,
			TopK:      orchestrator.DefaultSemanticTopK,
			Threshold: orchestrator.DefaultThreshold,
			ChunkSize: chunker.DefaultSize,
			BatchSize: 32,
		},
		Embedding: EmbeddingConfig{
			Provider:  embedder.ProviderAuto,
			Timeout:   embedder.DefaultRequestTimeout,
			CacheSize: 1000,
			Fallback:  true,
		},
		Cache: CacheConfig{
			Backend: cache.BackendDir,
			Dir:     cache.DefaultDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
