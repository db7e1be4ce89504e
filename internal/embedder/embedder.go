// Package embedder turns text into vectors.
//
// Providers:
//   - local: deterministic feature hashing, no network, always available
//   - openai: OpenAI embeddings API (sashabaranov/go-openai)
//   - jina: Jina AI embeddings API
//   - compatible: any OpenAI-compatible endpoint such as Ollama (langchaingo)
//
// Remote providers are normally wrapped in a FallbackEmbedder so that an
// outage degrades to local vectors instead of failing the search, and in a
// CachedEmbedder that memoizes repeated texts such as queries.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors. Provider failures also match errclass.ErrBackendUnavailable.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrProviderFailed    = fmt.Errorf("embedding provider failed: %w", errclass.ErrBackendUnavailable)
	ErrNoProviderEnabled = fmt.Errorf("no embedding provider configured: %w", errclass.ErrBackendUnavailable)
)

// Embedding is a vector with the provider and model that produced it
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // Content hash of the embedded text
}

// EmbeddingRequest asks for a single embedding
type EmbeddingRequest struct {
	Text string
}

// BatchEmbeddingRequest asks for several embeddings at once
type BatchEmbeddingRequest struct {
	Texts []string
}

// BatchEmbeddingResponse holds embeddings in request order
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder generates embeddings
type Embedder interface {
	// GenerateEmbedding generates a single embedding for the given text
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch generates embeddings for multiple texts efficiently
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension returns the embedding dimension, 0 if not yet known
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// Cache is an in-memory LRU of embeddings keyed by model and content hash
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates a cache holding at most maxLen embeddings
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached embedding so callers cannot mutate it
func (c *Cache) Get(key string) (*Embedding, bool) {
	emb, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	return cloneEmbedding(emb), true
}

// Set stores an embedding, evicting the least recently used one when full
func (c *Cache) Set(key string, emb *Embedding) {
	c.cache.Add(key, cloneEmbedding(emb))
}

// Size returns the number of cached embeddings
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

func cloneEmbedding(e *Embedding) *Embedding {
	c := *e
	c.Vector = append([]float32(nil), e.Vector...)
	return &c
}

// ComputeHash computes the SHA-256 of text
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// CacheKey is the Cache key for text embedded by model
func CacheKey(model, text string) string {
	return model + ":" + ComputeHash(text)
}

// ValidateRequest validates an embedding request
func ValidateRequest(req EmbeddingRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest validates a batch embedding request
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range req.Texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// CachedEmbedder memoizes an Embedder's results in a Cache
type CachedEmbedder struct {
	Embedder
	cache *Cache
}

// NewCached wraps inner with an LRU of the given size
func NewCached(inner Embedder, size int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: inner, cache: NewCache(size)}
}

// Cache exposes the underlying LRU
func (c *CachedEmbedder) Cache() *Cache {
	return c.cache
}

func (c *CachedEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	key := CacheKey(c.Embedder.Model(), req.Text)
	if emb, ok := c.cache.Get(key); ok {
		return emb, nil
	}

	emb, err := c.Embedder.GenerateEmbedding(ctx, req)
	if err != nil {
		return nil, err
	}
	// keyed by the model that actually answered, which differs after a fallback
	c.cache.Set(CacheKey(emb.Model, req.Text), emb)
	return emb, nil
}

func (c *CachedEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := c.Embedder.Model()
	out := make([]*Embedding, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, text := range req.Texts {
		if emb, ok := c.cache.Get(CacheKey(model, text)); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	resp := &BatchEmbeddingResponse{Provider: c.Embedder.Provider(), Model: model}
	if len(missing) > 0 {
		inner, err := c.Embedder.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: missing})
		if err != nil {
			return nil, err
		}
		if len(inner.Embeddings) != len(missing) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(inner.Embeddings), len(missing))
		}
		for j, emb := range inner.Embeddings {
			out[missingIdx[j]] = emb
			c.cache.Set(CacheKey(emb.Model, missing[j]), emb)
		}
		resp.Provider, resp.Model = inner.Provider, inner.Model
	}
	resp.Embeddings = out
	return resp, nil
}
