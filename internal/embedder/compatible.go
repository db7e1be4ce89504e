package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tmc/langchaingo/embeddings"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// DefaultCompatibleURL is a local Ollama server's OpenAI-compatible API
const DefaultCompatibleURL = "http://localhost:11434/v1"

// CompatibleProvider implements Embedder against any OpenAI-compatible
// embeddings endpoint, such as Ollama or a self-hosted gateway
type CompatibleProvider struct {
	embedder embeddings.Embedder
	cfg      remoteConfig
	dim      atomic.Int64
}

// NewCompatibleProvider creates an embedder for baseURL (WithBaseURL) and
// model (WithModel, required). Services without authentication accept any
// token, so an empty one is sent as "none".
func NewCompatibleProvider(token string, opts ...RemoteOption) (*CompatibleProvider, error) {
	cfg := newRemoteConfig(ProviderCompatible, "", DefaultCompatibleURL, 0, opts)
	if cfg.model == "" {
		return nil, fmt.Errorf("%w: compatible provider needs a model name", ErrUnsupportedModel)
	}
	if token == "" {
		token = "none"
	}

	client, err := lcopenai.New(
		lcopenai.WithBaseURL(cfg.baseURL),
		lcopenai.WithToken(token),
		lcopenai.WithEmbeddingModel(cfg.model),
		lcopenai.WithHTTPClient(cfg.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProviderEnabled, err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProviderEnabled, err)
	}

	p := &CompatibleProvider{embedder: emb, cfg: cfg}
	p.dim.Store(int64(cfg.dimension))
	return p, nil
}

func (p *CompatibleProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return generateOne(ctx, p, req)
}

func (p *CompatibleProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	resp, err := generateBatched(ctx, &p.cfg, ProviderCompatible, retryableHTTP, req, p.embedder.EmbedDocuments)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) > 0 {
		// learn the dimension from the first answer when not configured
		p.dim.CompareAndSwap(0, int64(resp.Embeddings[0].Dimension))
	}
	return resp, nil
}

// Dimension returns the configured or observed dimension, 0 before the first call
func (p *CompatibleProvider) Dimension() int {
	return int(p.dim.Load())
}

func (p *CompatibleProvider) Provider() string {
	return ProviderCompatible
}

func (p *CompatibleProvider) Model() string {
	return p.cfg.model
}

func (p *CompatibleProvider) Close() error {
	p.cfg.httpClient.CloseIdleConnections()
	return nil
}
