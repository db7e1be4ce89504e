package embedder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config selects and configures an embedder
type Config struct {
	Provider  string // local, openai, jina, compatible or auto
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
	Timeout   time.Duration
	CacheSize int  // LRU memo size; 0 disables
	Fallback  bool // degrade remote failures to the local provider
}

// New builds the embedder described by cfg. With Fallback set, a remote
// provider that cannot even be constructed (for example a missing API key)
// is replaced by the local provider instead of failing.
func New(cfg Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderAuto {
		provider = DetectProvider(cfg)
	}

	local := NewLocalProvider(localDimension(provider, cfg))
	var emb Embedder
	if provider == ProviderLocal {
		emb = local
	} else {
		remote, err := newRemote(provider, cfg, logger)
		switch {
		case err != nil && cfg.Fallback:
			logger.Warn("embedding provider unavailable, using local embeddings", "provider", provider, "error", err)
			emb = local
		case err != nil:
			return nil, err
		case cfg.Fallback:
			emb = NewFallback(remote, local, logger)
		default:
			emb = remote
		}
	}

	if cfg.CacheSize > 0 {
		emb = NewCached(emb, cfg.CacheSize)
	}
	return emb, nil
}

func localDimension(provider string, cfg Config) int {
	if provider == ProviderLocal {
		return cfg.Dimension
	}
	return LocalDimension
}

func newRemote(provider string, cfg Config, logger *slog.Logger) (Embedder, error) {
	opts := []RemoteOption{
		WithModel(cfg.Model),
		WithBaseURL(cfg.BaseURL),
		WithDimension(cfg.Dimension),
		WithRemoteLogger(logger),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, opts...)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, opts...)
	case ProviderCompatible:
		return NewCompatibleProvider(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
	}
}

// DetectProvider picks a provider from the configured credentials:
// an API key selects OpenAI, a base URL alone selects a compatible
// endpoint, and nothing selects the local provider
func DetectProvider(cfg Config) string {
	switch {
	case cfg.APIKey != "":
		return ProviderOpenAI
	case cfg.BaseURL != "" && cfg.Model != "":
		return ProviderCompatible
	default:
		return ProviderLocal
	}
}
