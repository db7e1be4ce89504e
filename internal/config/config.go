// Package config loads doc-search settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/Kurasuai-Inc/doc-search/internal/cache"
	"github.com/Kurasuai-Inc/doc-search/internal/embedder"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCSEARCH_*, with __ separating sections).
// A missing file is not an error; an empty path means DefaultFile.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.applyConventionalEnv()
	return cfg, nil
}

// envKey maps DOCSEARCH_EMBEDDING__API_KEY to embedding.api_key
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyConventionalEnv fills embedding credentials from the variables other
// tools use, without overriding anything configured explicitly
func (c *Config) applyConventionalEnv() {
	if c.Embedding.Model == "" {
		c.Embedding.Model = os.Getenv(EnvEmbeddingModel)
	}
	if c.Embedding.APIKey != "" {
		return
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case embedder.ProviderJina:
		c.Embedding.APIKey = os.Getenv(EnvJinaKey)
	case embedder.ProviderOpenAI, embedder.ProviderAuto, "":
		c.Embedding.APIKey = os.Getenv(EnvOpenAIKey)
	}
}

// Save writes the configuration to the given YAML file path
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[string]bool{
	embedder.ProviderAuto:       true,
	embedder.ProviderLocal:      true,
	embedder.ProviderOpenAI:     true,
	embedder.ProviderJina:       true,
	embedder.ProviderCompatible: true,
}

var validBackends = map[string]bool{
	cache.BackendDir:    true,
	cache.BackendSQLite: true,
	cache.BackendBadger: true,
	cache.BackendMemory: true,
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if err := c.SearchOptions().Validate(); err != nil {
		return err
	}
	if c.Search.PoolSize < 0 {
		return fmt.Errorf("search.pool_size must be non-negative")
	}
	if c.Search.ResponseCacheSize < 0 {
		return fmt.Errorf("search.response_cache_size must be non-negative")
	}
	if c.Lexical.Timeout < 0 {
		return fmt.Errorf("lexical.timeout must be non-negative")
	}
	if c.Semantic.TopK < 1 {
		return fmt.Errorf("semantic.top_k must be at least 1")
	}
	if c.Semantic.Threshold < -1 || c.Semantic.Threshold > 1 {
		return fmt.Errorf("semantic.threshold must be within [-1, 1], got %v", c.Semantic.Threshold)
	}
	if c.Semantic.ChunkSize < 0 || c.Semantic.Workers < 0 || c.Semantic.BatchSize < 0 {
		return fmt.Errorf("semantic sizes must be non-negative")
	}
	if p := strings.ToLower(c.Embedding.Provider); p != "" && !validProviders[p] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of auto, local, openai, jina, compatible", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 || c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding sizes must be non-negative")
	}
	if !validBackends[c.Cache.Backend] {
		return fmt.Errorf("invalid cache.backend %q: must be one of dir, sqlite, badger, memory", c.Cache.Backend)
	}
	if c.Cache.Backend != cache.BackendMemory && c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required")
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// SearchOptions returns the default per-request options
func (c *Config) SearchOptions() types.SearchOptions {
	return types.SearchOptions{
		CaseSensitive: c.Search.CaseSensitive,
		UseRegex:      c.Search.UseRegex,
		FileTypes:     c.Search.FileTypes,
		MaxResults:    c.Search.MaxResults,
		ContextLines:  c.Search.ContextLines,
	}
}

// EmbedderConfig converts the embedding section for embedder.New
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		Dimension: c.Embedding.Dimension,
		Timeout:   c.Embedding.Timeout,
		CacheSize: c.Embedding.CacheSize,
		Fallback:  c.Embedding.Fallback,
	}
}

// CacheConfig converts the cache section for cache.Open
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{Backend: c.Cache.Backend, Dir: c.Cache.Dir}
}
