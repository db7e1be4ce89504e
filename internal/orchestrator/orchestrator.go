// Package orchestrator runs the lexical and semantic engines for one query
// and merges their hits into a single list ranked on a 1-5 scale.
//
// Engine work runs on a bounded worker pool; a search only waits for the
// results. Starting a new PerformSearch cancels the one still in flight, whose
// caller receives ErrSuperseded instead of stale results. Search serves
// independent callers and is never superseded.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
	"github.com/Kurasuai-Inc/doc-search/internal/semantic"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

const (
	DefaultMaxResults   = 100
	DefaultSemanticTopK = 5
	DefaultThreshold    = 0.5
	DefaultContextLines = 2
	DefaultPoolSize     = 4
)

var (
	// ErrSuperseded is returned to a caller whose search was replaced by a newer one
	ErrSuperseded = errors.New("search superseded by a newer query")

	// ErrSemanticDisabled is returned by index operations when no semantic engine is configured
	ErrSemanticDisabled = errors.New("semantic search is disabled")
)

// LexicalSearcher is the pattern matching engine
type LexicalSearcher interface {
	Collect(ctx context.Context, query, root string, opts types.SearchOptions) (*lexical.Outcome, error)
	Backend() lexical.Backend
}

// SemanticSearcher is the embedding similarity engine
type SemanticSearcher interface {
	BuildIndex(ctx context.Context, docs []semantic.Document) (*semantic.BuildStats, error)
	Search(ctx context.Context, query string, topK int, threshold float64) ([]semantic.Result, error)
	Ready() bool
	Len() int
}

// Response is the outcome of one PerformSearch call
type Response struct {
	ID            string
	Query         string
	Root          string
	Results       []types.RankedResult
	Status        string // Empty when every enabled engine answered cleanly
	Warnings      []string
	LexicalCount  int
	SemanticCount int
	Backend       lexical.Backend
	Duration      time.Duration
	CacheHit      bool
}

// DefaultOptions are the options interactive front-ends search with:
// case-insensitive regular expressions with two lines of context
func DefaultOptions() types.SearchOptions {
	return types.SearchOptions{
		UseRegex:     true,
		MaxResults:   DefaultMaxResults,
		ContextLines: DefaultContextLines,
	}
}

// Orchestrator coordinates the search engines. It is safe for concurrent use.
type Orchestrator struct {
	lexical   LexicalSearcher
	semantic  SemanticSearcher
	pool      *ants.Pool
	poolSize  int
	maxResult int
	topK      int
	threshold float64
	fileTypes []string // Documents collected for the semantic index
	cache     *responseCache
	logger    *slog.Logger

	rootMu sync.RWMutex
	root   string

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc

	indexMu          sync.Mutex
	indexedRoot      string
	semanticDisabled atomic.Bool
}

// Option configures an Orchestrator
type Option func(*Orchestrator) error

// WithMaxResults sets the lexical result cap used when a request sets none
func WithMaxResults(n int) Option {
	return func(o *Orchestrator) error {
		if n < 0 {
			return fmt.Errorf("%w: max results must be >= 0", types.ErrInvalidOptions)
		}
		o.maxResult = n
		return nil
	}
}

// WithSemanticTopK sets how many semantic results are merged
func WithSemanticTopK(k int) Option {
	return func(o *Orchestrator) error {
		if k < 1 {
			return fmt.Errorf("%w: semantic top-k must be >= 1", types.ErrInvalidOptions)
		}
		o.topK = k
		return nil
	}
}

// WithThreshold sets the minimum similarity of semantic results
func WithThreshold(t float64) Option {
	return func(o *Orchestrator) error {
		if t < -1 || t > 1 {
			return fmt.Errorf("%w: threshold must be within [-1, 1]", types.ErrInvalidOptions)
		}
		o.threshold = t
		return nil
	}
}

// WithPoolSize sets the number of background workers
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		o.poolSize = size
		return nil
	}
}

// WithResponseCache memoizes responses for ttl; size <= 0 disables it
func WithResponseCache(size int, ttl time.Duration) Option {
	return func(o *Orchestrator) error {
		if size <= 0 || ttl <= 0 {
			o.cache = nil
			return nil
		}
		c, err := newResponseCache(size, ttl)
		if err != nil {
			return err
		}
		o.cache = c
		return nil
	}
}

// WithIndexFileTypes sets the document types collected for the semantic index
func WithIndexFileTypes(fileTypes []string) Option {
	return func(o *Orchestrator) error {
		o.fileTypes = slices.Clone(fileTypes)
		return nil
	}
}

// WithRoot sets the initial search root
func WithRoot(root string) Option {
	return func(o *Orchestrator) error {
		o.root = root
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// New creates an Orchestrator. sem may be nil to run lexical search only.
func New(lex LexicalSearcher, sem SemanticSearcher, opts ...Option) (*Orchestrator, error) {
	if lex == nil {
		return nil, errors.New("lexical searcher is required")
	}

	o := &Orchestrator{
		lexical:   lex,
		semantic:  sem,
		poolSize:  DefaultPoolSize,
		maxResult: DefaultMaxResults,
		topK:      DefaultSemanticTopK,
		threshold: DefaultThreshold,
		root:      ".",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "orchestrator")

	pool, err := ants.NewPool(o.poolSize, ants.WithLogger(antsLogger{o.logger}))
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	o.pool = pool
	return o, nil
}

// Close cancels any in-flight search and stops the workers
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.mu.Unlock()
	o.pool.Release()
	return nil
}

// SetRoot changes the directory searched when a request names none
func (o *Orchestrator) SetRoot(root string) {
	o.rootMu.Lock()
	defer o.rootMu.Unlock()
	o.root = root
}

// Root returns the default search root
func (o *Orchestrator) Root() string {
	o.rootMu.RLock()
	defer o.rootMu.RUnlock()
	return o.root
}

// SemanticEnabled reports whether semantic results are still being merged
func (o *Orchestrator) SemanticEnabled() bool {
	return o.semantic != nil && !o.semanticDisabled.Load()
}

// engineResult carries one engine's answer back to search
type engineResult struct {
	outcome  *lexical.Outcome
	semantic []semantic.Result
	err      error
}

// PerformSearch runs query against root (the default root when empty) and
// returns the merged ranking. Starting a search cancels the previous
// PerformSearch still in flight, which then fails with ErrSuperseded; this is
// the mode for one interactive user typing successive queries. A blank query
// returns an empty response without touching the engines. Otherwise an error
// is returned only when no enabled engine produced an answer.
func (o *Orchestrator) PerformSearch(ctx context.Context, query string, opts types.SearchOptions, root string) (*Response, error) {
	return o.search(ctx, query, opts, root, true)
}

// Search is PerformSearch for independent callers: it neither cancels nor is
// cancelled by any other search, so concurrent requests from different
// clients all complete.
func (o *Orchestrator) Search(ctx context.Context, query string, opts types.SearchOptions, root string) (*Response, error) {
	return o.search(ctx, query, opts, root, false)
}

func (o *Orchestrator) search(ctx context.Context, query string, opts types.SearchOptions, root string, supersede bool) (*Response, error) {
	start := time.Now()
	if root == "" {
		root = o.Root()
	}
	resp := &Response{ID: uuid.NewString(), Query: query, Root: root}

	var (
		runCtx context.Context
		gen    uint64
	)
	if supersede {
		runCtx, gen = o.begin(ctx)
		defer o.end(gen)
	} else {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}
	stale := func() bool { return supersede && o.superseded(gen) }

	if strings.TrimSpace(query) == "" {
		resp.Duration = time.Since(start)
		return resp, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = o.maxResult
	}

	useSemantic := o.SemanticEnabled()
	cacheKey := computeQueryHash(query, root, opts, useSemantic)
	if o.cache != nil {
		if cached, ok := o.cache.get(cacheKey); ok {
			cached.ID = resp.ID
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	lexCh := o.submit(func() engineResult {
		out, err := o.lexical.Collect(runCtx, query, root, opts)
		return engineResult{outcome: out, err: err}
	})
	var semCh <-chan engineResult
	if useSemantic {
		semCh = o.submit(func() engineResult {
			results, err := o.searchSemantic(runCtx, query, root)
			return engineResult{semantic: results, err: err}
		})
	}

	var lexRes, semRes engineResult
	lexDone, semDone := false, semCh == nil
	for !lexDone || !semDone {
		select {
		case lexRes = <-lexCh:
			lexDone = true
		case semRes = <-semCh:
			semDone = true
		case <-runCtx.Done():
			if stale() {
				return nil, ErrSuperseded
			}
			return nil, ctx.Err()
		}
	}
	if stale() {
		return nil, ErrSuperseded
	}

	failures := 0
	if lexRes.outcome != nil {
		resp.Backend = lexRes.outcome.Backend
		resp.Warnings = append(resp.Warnings, lexRes.outcome.Warnings...)
		for _, rec := range lexRes.outcome.Records {
			resp.Results = append(resp.Results, lexicalResult(rec, query))
		}
		resp.LexicalCount = len(lexRes.outcome.Records)
	}
	if lexRes.err != nil {
		failures++
		c := errclass.Classify(lexRes.err)
		o.logger.Warn("lexical search failed", "kind", c.Kind.String(), "error", lexRes.err)
		resp.Warnings = append(resp.Warnings, c.Message)
	}

	if useSemantic {
		if semRes.err != nil {
			failures++
			c := errclass.Classify(semRes.err)
			o.logger.Warn("semantic search failed", "kind", c.Kind.String(), "error", semRes.err)
			resp.Warnings = append(resp.Warnings, c.Message)
		}
		for _, r := range semRes.semantic {
			resp.Results = append(resp.Results, semanticResult(r))
		}
		resp.SemanticCount = len(semRes.semantic)
	}

	enabled := 1
	if useSemantic {
		enabled++
	}
	if failures == enabled {
		err := lexRes.err
		if err == nil {
			err = semRes.err
		}
		return nil, fmt.Errorf("%s: %w", errclass.Classify(err).Message, err)
	}

	// lexical hits were appended first, so equal scores keep them ahead
	slices.SortStableFunc(resp.Results, func(a, b types.RankedResult) int {
		return b.Score - a.Score
	})
	if len(resp.Warnings) > 0 {
		resp.Status = resp.Warnings[0]
	}
	resp.Duration = time.Since(start)

	if o.cache != nil && failures == 0 {
		o.cache.put(cacheKey, resp)
	}
	o.logger.Debug("search complete",
		"id", resp.ID, "lexical", resp.LexicalCount, "semantic", resp.SemanticCount,
		"backend", resp.Backend, "duration", resp.Duration)
	return resp, nil
}

// begin starts a new generation and cancels the previous in-flight search
func (o *Orchestrator) begin(ctx context.Context) (context.Context, uint64) {
	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	o.generation++
	o.cancel = cancel
	return runCtx, o.generation
}

func (o *Orchestrator) end(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == gen && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func (o *Orchestrator) superseded(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation != gen
}

// submit runs fn on the pool. A panic or a pool that refuses the task is
// reported as the engine's error so the caller never waits forever.
func (o *Orchestrator) submit(fn func() engineResult) <-chan engineResult {
	ch := make(chan engineResult, 1)
	err := o.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("search task panicked", "panic", r)
				ch <- engineResult{err: fmt.Errorf("search task panicked: %v", r)}
			}
		}()
		ch <- fn()
	})
	if err != nil {
		ch <- engineResult{err: fmt.Errorf("scheduling search: %w", err)}
	}
	return ch
}

// antsLogger routes pool diagnostics to slog
type antsLogger struct {
	logger *slog.Logger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
