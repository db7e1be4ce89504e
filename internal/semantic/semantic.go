// Package semantic ranks document chunks by embedding similarity.
//
// BuildIndex chunks every document, reuses vectors already in the embedding
// cache and embeds only the misses, so rebuilding an unchanged corpus costs
// no embedding calls. Search embeds the query with the same backend and
// compares it against every indexed vector produced by the same model.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Kurasuai-Inc/doc-search/internal/cache"
	"github.com/Kurasuai-Inc/doc-search/internal/chunker"
	"github.com/Kurasuai-Inc/doc-search/internal/embedder"
)

const (
	// DefaultTopK is the number of results returned when topK <= 0
	DefaultTopK = 10

	// DefaultThreshold is the minimum similarity used by front-ends
	DefaultThreshold = 0.5

	// DefaultBatchSize is the number of chunks sent per embedding call
	DefaultBatchSize = 32
)

var (
	// ErrNoEmbedder is returned when the engine was built without an embedder
	ErrNoEmbedder = errors.New("semantic search has no embedder")

	// ErrModelMismatch is returned when the query was embedded by a model
	// that produced none of the indexed vectors, typically because the
	// primary backend failed for this request only
	ErrModelMismatch = errors.New("query embedded by a model the index was not built with")
)

// Document is one file's text
type Document struct {
	Path    string
	Content string
}

// Result is a chunk ranked by similarity to the query
type Result struct {
	DocumentPath string
	ChunkIndex   int
	Text         string
	StartLine    int
	EndLine      int
	Similarity   float64
	Model        string
}

// BuildStats describes one BuildIndex run
type BuildStats struct {
	Documents       int
	Chunks          int // Indexed chunks, empty ones excluded
	Skipped         int // Empty chunks
	CacheHits       int
	Embedded        int
	PersistFailures int
	Model           string
	Duration        time.Duration
}

// ProgressFunc is called as chunks are resolved, with done <= total
type ProgressFunc func(done, total int)

type entry struct {
	key       cache.Key
	model     string
	text      string
	startLine int
	endLine   int
	vector    []float32
}

// Engine is the semantic search engine. It is safe for concurrent use;
// builds are serialized and searches see the last completed index.
type Engine struct {
	embedder  embedder.Embedder
	store     cache.Store
	chunker   *chunker.Chunker
	workers   int
	batchSize int
	progress  ProgressFunc
	logger    *slog.Logger

	buildMu sync.Mutex
	mu      sync.RWMutex
	index   []entry
	built   bool
}

// Option configures an Engine
type Option func(*Engine)

// WithChunkSize sets the chunk size in characters
func WithChunkSize(size int) Option {
	return func(e *Engine) {
		e.chunker = chunker.New(size)
	}
}

// WithWorkers sets the number of concurrent embedding calls
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithBatchSize sets the number of chunks per embedding call
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithProgress registers a progress callback for BuildIndex
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine. A nil store disables persistence.
func New(emb embedder.Embedder, store cache.Store, opts ...Option) *Engine {
	e := &Engine{
		embedder:  emb,
		store:     store,
		chunker:   chunker.New(chunker.DefaultSize),
		workers:   runtime.NumCPU(),
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "semantic")
	return e
}

// Len returns the number of indexed chunks
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.index)
}

// Ready reports whether an index has been built
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.built
}

// Model returns the model currently answering embedding requests
func (e *Engine) Model() string {
	if e.embedder == nil {
		return ""
	}
	return e.embedder.Model()
}

// BuildIndex replaces the index with the chunks of docs. Chunks whose vector
// is already cached are not embedded again. On error the previous index is
// kept.
func (e *Engine) BuildIndex(ctx context.Context, docs []Document) (*BuildStats, error) {
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	stats := &BuildStats{Documents: len(docs)}

	var entries []entry
	for _, doc := range docs {
		for _, c := range e.chunker.Split(doc.Content) {
			if c.Empty() {
				stats.Skipped++
				continue
			}
			entries = append(entries, entry{
				key:       c.Key(doc.Path),
				text:      c.Text,
				startLine: c.StartLine,
				endLine:   c.EndLine,
			})
		}
	}
	stats.Chunks = len(entries)

	tracker := &progressTracker{fn: e.progress, total: len(entries)}
	missing := e.lookup(ctx, entries, stats, tracker)

	if len(missing) > 0 {
		if err := e.embedMissing(ctx, entries, missing, stats, tracker); err != nil {
			return nil, err
		}
	}
	tracker.report()

	stats.Model = e.embedder.Model()
	stats.Duration = time.Since(start)

	e.mu.Lock()
	e.index = entries
	e.built = true
	e.mu.Unlock()

	e.logger.Info("index built",
		"documents", stats.Documents, "chunks", stats.Chunks,
		"cache_hits", stats.CacheHits, "embedded", stats.Embedded,
		"model", stats.Model, "duration", stats.Duration)
	return stats, nil
}

// lookup fills cached vectors and returns the indexes still missing
func (e *Engine) lookup(ctx context.Context, entries []entry, stats *BuildStats, tracker *progressTracker) []int {
	var missing []int
	model := e.embedder.Model()
	for i := range entries {
		if e.store == nil {
			missing = append(missing, i)
			continue
		}
		cached, err := e.store.Get(ctx, model, entries[i].key)
		if err != nil {
			if !errors.Is(err, cache.ErrNotFound) {
				e.logger.Warn("cache read failed, re-embedding chunk", "key", entries[i].key.String(), "error", err)
			}
			missing = append(missing, i)
			continue
		}
		entries[i].vector = cached.Vector
		entries[i].model = cached.Model
		stats.CacheHits++
		tracker.add(1)
	}
	return missing
}

func (e *Engine) embedMissing(ctx context.Context, entries []entry, missing []int, stats *BuildStats, tracker *progressTracker) error {
	var embedded, persistFailures atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for batch := range slices.Chunk(missing, e.batchSize) {
		g.Go(func() error {
			texts := make([]string, len(batch))
			for j, i := range batch {
				texts[j] = entries[i].text
			}
			resp, err := e.embedder.GenerateBatch(gctx, embedder.BatchEmbeddingRequest{Texts: texts})
			if err != nil {
				return err
			}
			if len(resp.Embeddings) != len(batch) {
				return fmt.Errorf("%w: got %d embeddings for %d chunks", embedder.ErrProviderFailed, len(resp.Embeddings), len(batch))
			}
			for j, i := range batch {
				emb := resp.Embeddings[j]
				entries[i].vector = emb.Vector
				entries[i].model = emb.Model
				if !e.persist(gctx, &entries[i]) {
					persistFailures.Add(1)
				}
			}
			embedded.Add(int64(len(batch)))
			tracker.add(len(batch))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	stats.Embedded = int(embedded.Load())
	stats.PersistFailures = int(persistFailures.Load())
	return nil
}

// persist stores one vector; failures only cost a recomputation next time
func (e *Engine) persist(ctx context.Context, en *entry) bool {
	if e.store == nil {
		return true
	}
	err := e.store.Put(ctx, &cache.Entry{
		Key:    en.key,
		Model:  en.model,
		Text:   en.text,
		Vector: en.vector,
	})
	if err != nil {
		e.logger.Warn("entry not cached, will recompute next time", "key", en.key.String(), "error", err)
		return false
	}
	return true
}

// Search returns up to topK chunks with similarity >= threshold, best first.
// Only vectors produced by the query's model are compared. An empty index
// yields no results; a non-empty index holding no vector of the query's model
// yields ErrModelMismatch.
func (e *Engine) Search(ctx context.Context, query string, topK int, threshold float64) ([]Result, error) {
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	e.mu.RLock()
	index := e.index
	e.mu.RUnlock()
	if len(index) == 0 {
		e.logger.Warn("semantic index is empty")
		return nil, nil
	}

	q, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var results []Result
	skipped := 0
	for _, en := range index {
		if en.model != q.Model || len(en.vector) != len(q.Vector) {
			skipped++
			continue
		}
		sim := CosineSimilarity(q.Vector, en.vector)
		if sim < threshold {
			continue
		}
		results = append(results, Result{
			DocumentPath: en.key.DocumentPath,
			ChunkIndex:   en.key.ChunkIndex,
			Text:         en.text,
			StartLine:    en.startLine,
			EndLine:      en.endLine,
			Similarity:   sim,
			Model:        en.model,
		})
	}
	if skipped == len(index) {
		return nil, fmt.Errorf("%w: query model %s, index model %s", ErrModelMismatch, q.Model, e.embedder.Model())
	}
	if skipped > 0 {
		e.logger.Warn("chunks embedded by another model were not compared", "skipped", skipped, "model", q.Model)
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return 0
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// CosineSimilarity returns dot(a, b) / (|a| |b|). Vectors of different length
// or with zero norm have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	// rounding can push self-similarity just past 1
	return max(-1, min(1, sim))
}

type progressTracker struct {
	mu    sync.Mutex
	fn    ProgressFunc
	done  int
	total int
}

func (p *progressTracker) add(n int) {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	p.fn(p.done, p.total)
}

// report emits the final state, which covers an all-empty corpus
func (p *progressTracker) report() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn(p.done, p.total)
}
