package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Kurasuai-Inc/doc-search/internal/retry"
)

// Provider names
const (
	ProviderLocal      = "local"
	ProviderOpenAI     = "openai"
	ProviderJina       = "jina"
	ProviderCompatible = "compatible"
	ProviderAuto       = "auto"
)

const (
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"

	OpenAIDimension = 1536
	JinaDimension   = 1024

	// MaxBatchSize is the most texts sent in one API call
	MaxBatchSize = 100

	DefaultRequestTimeout = 30 * time.Second
)

// DefaultRetryConfig is the backoff used for embedding API calls
func DefaultRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// remoteConfig is shared by the network providers
type remoteConfig struct {
	model      string
	baseURL    string
	dimension  int
	retry      retry.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// RemoteOption configures a network provider
type RemoteOption func(*remoteConfig)

// WithModel overrides the provider's default model
func WithModel(model string) RemoteOption {
	return func(c *remoteConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the provider at another endpoint
func WithBaseURL(url string) RemoteOption {
	return func(c *remoteConfig) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithDimension declares the model's vector size
func WithDimension(dim int) RemoteOption {
	return func(c *remoteConfig) {
		if dim > 0 {
			c.dimension = dim
		}
	}
}

// WithRetry sets the retry policy for API calls
func WithRetry(cfg retry.Config) RemoteOption {
	return func(c *remoteConfig) {
		c.retry = cfg
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(c *remoteConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(d time.Duration) RemoteOption {
	return func(c *remoteConfig) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRemoteLogger sets the logger
func WithRemoteLogger(logger *slog.Logger) RemoteOption {
	return func(c *remoteConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newRemoteConfig(provider, model, baseURL string, dim int, opts []RemoteOption) remoteConfig {
	c := remoteConfig{
		model:      model,
		baseURL:    baseURL,
		dimension:  dim,
		retry:      DefaultRetryConfig(),
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = c.logger.With("component", "embedder", "provider", provider)
	return c
}

// statusError is an HTTP failure from an embeddings API
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.code, e.body)
}

// retryableStatus reports whether an HTTP status is worth retrying:
// throttling and server errors are, other client errors are not
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

func retryableHTTP(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return retryableStatus(se.code)
	}
	return true
}

// batches splits texts into runs of at most MaxBatchSize
func batches(texts []string) [][]string {
	var out [][]string
	for i := 0; i < len(texts); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(texts))
		out = append(out, texts[i:end])
	}
	return out
}

// generateBatched validates req, calls fn once per batch with retries and
// assembles the response
func generateBatched(ctx context.Context, c *remoteConfig, provider string, shouldRetry func(error) bool, req BatchEmbeddingRequest,
	fn func(ctx context.Context, texts []string) ([][]float32, error)) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	out := make([]*Embedding, 0, len(req.Texts))
	for _, batch := range batches(req.Texts) {
		vectors, err := retry.Do(ctx, c.retry, shouldRetry, func() ([][]float32, error) {
			return fn(ctx, batch)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailed, provider, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: %s returned %d embeddings, expected %d", ErrProviderFailed, provider, len(vectors), len(batch))
		}
		for i, v := range vectors {
			out = append(out, &Embedding{
				Vector:    v,
				Dimension: len(v),
				Provider:  provider,
				Model:     c.model,
				Hash:      ComputeHash(batch[i]),
			})
		}
	}

	c.logger.Debug("generated embeddings", "count", len(out), "model", c.model)
	return &BatchEmbeddingResponse{Embeddings: out, Provider: provider, Model: c.model}, nil
}

// generateOne embeds a single text through the batch path
func generateOne(ctx context.Context, e Embedder, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	resp, err := e.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return resp.Embeddings[0], nil
}
