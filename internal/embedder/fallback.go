package embedder

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// FallbackEmbedder tries primary on every request and answers from fallback
// only for requests the primary fails. Callers see an error only when the
// fallback fails too. Every Embedding names the model that produced it, so
// vectors from the two models are never mixed up downstream.
type FallbackEmbedder struct {
	primary  Embedder
	fallback Embedder
	degraded atomic.Bool
	logger   *slog.Logger
}

// NewFallback wraps primary with fallback
func NewFallback(primary, fallback Embedder, logger *slog.Logger) *FallbackEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackEmbedder{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With("component", "embedder"),
	}
}

// Degraded reports whether the most recent request was served by the fallback
func (f *FallbackEmbedder) Degraded() bool {
	return f.degraded.Load()
}

// shouldFallBack reports whether err is a provider failure worth retrying on
// the fallback. Input errors and cancellation are returned as they are.
func (f *FallbackEmbedder) shouldFallBack(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrEmptyText) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn("embedding backend unavailable, using local embeddings",
			"provider", f.primary.Provider(), "model", f.primary.Model(),
			"fallback", f.fallback.Model(), "error", err)
	}
	return true
}

func (f *FallbackEmbedder) recovered() {
	if f.degraded.CompareAndSwap(true, false) {
		f.logger.Info("embedding backend recovered", "provider", f.primary.Provider(), "model", f.primary.Model())
	}
}

func (f *FallbackEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	emb, err := f.primary.GenerateEmbedding(ctx, req)
	if err == nil {
		f.recovered()
		return emb, nil
	}
	if !f.shouldFallBack(ctx, err) {
		return nil, err
	}
	return f.fallback.GenerateEmbedding(ctx, req)
}

func (f *FallbackEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	resp, err := f.primary.GenerateBatch(ctx, req)
	if err == nil {
		f.recovered()
		return resp, nil
	}
	if !f.shouldFallBack(ctx, err) {
		return nil, err
	}
	return f.fallback.GenerateBatch(ctx, req)
}

// Dimension, Provider and Model describe the primary. The semantic index is
// keyed by the primary's model, so chunks embedded by the fallback during an
// outage are re-embedded once the primary answers again.
func (f *FallbackEmbedder) Dimension() int {
	return f.primary.Dimension()
}

func (f *FallbackEmbedder) Provider() string {
	return f.primary.Provider()
}

func (f *FallbackEmbedder) Model() string {
	return f.primary.Model()
}

func (f *FallbackEmbedder) Close() error {
	return errors.Join(f.primary.Close(), f.fallback.Close())
}
