package config

import "time"

// Config is the top-level doc-search configuration, corresponding to .docsearch.yml
type Config struct {
	Root      string          `yaml:"root" koanf:"root"`
	Search    SearchConfig    `yaml:"search" koanf:"search"`
	Lexical   LexicalConfig   `yaml:"lexical" koanf:"lexical"`
	Semantic  SemanticConfig  `yaml:"semantic" koanf:"semantic"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Cache     CacheConfig     `yaml:"cache" koanf:"cache"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
}

// SearchConfig holds the default search options and orchestration settings
type SearchConfig struct {
	CaseSensitive     bool          `yaml:"case_sensitive" koanf:"case_sensitive"`
	UseRegex          bool          `yaml:"use_regex" koanf:"use_regex"`
	FileTypes         []string      `yaml:"file_types,omitempty" koanf:"file_types"`
	MaxResults        int           `yaml:"max_results" koanf:"max_results"`
	ContextLines      int           `yaml:"context_lines" koanf:"context_lines"`
	PoolSize          int           `yaml:"pool_size" koanf:"pool_size"`
	ResponseCacheSize int           `yaml:"response_cache_size" koanf:"response_cache_size"`
	ResponseCacheTTL  time.Duration `yaml:"response_cache_ttl" koanf:"response_cache_ttl"`
}

// LexicalConfig controls the ripgrep runner
type LexicalConfig struct {
	ToolPath string        `yaml:"tool_path" koanf:"tool_path"`
	Fallback bool          `yaml:"fallback" koanf:"fallback"`
	Timeout  time.Duration `yaml:"timeout" koanf:"timeout"`
}

// SemanticConfig controls the semantic engine
type SemanticConfig struct {
	Enabled   bool     `yaml:"enabled" koanf:"enabled"`
	TopK      int      `yaml:"top_k" koanf:"top_k"`
	Threshold float64  `yaml:"threshold" koanf:"threshold"`
	ChunkSize int      `yaml:"chunk_size" koanf:"chunk_size"`
	Workers   int      `yaml:"workers" koanf:"workers"`
	BatchSize int      `yaml:"batch_size" koanf:"batch_size"`
	FileTypes []string `yaml:"file_types,omitempty" koanf:"file_types"`
}

// EmbeddingConfig selects the embedding backend. The API key is never
// written back by Save.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider" koanf:"provider"`
	Model     string        `yaml:"model" koanf:"model"`
	APIKey    string        `yaml:"-" koanf:"api_key"`
	BaseURL   string        `yaml:"base_url" koanf:"base_url"`
	Dimension int           `yaml:"dimension" koanf:"dimension"`
	Timeout   time.Duration `yaml:"timeout" koanf:"timeout"`
	CacheSize int           `yaml:"cache_size" koanf:"cache_size"`
	Fallback  bool          `yaml:"fallback" koanf:"fallback"`
}

// CacheConfig selects the persistent embedding cache
type CacheConfig struct {
	Backend string `yaml:"backend" koanf:"backend"`
	Dir     string `yaml:"dir" koanf:"dir"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
}
