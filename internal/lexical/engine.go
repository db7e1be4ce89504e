// Package lexical finds literal or regular-expression matches in text
// documents. It drives ripgrep when the tool is installed and falls back to
// an in-process scanner that produces the same records when it is not.
package lexical

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/internal/retry"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

const (
	// ToolName is the accelerated matcher looked up on PATH
	ToolName = "rg"

	// DefaultTimeout bounds a single ripgrep invocation
	DefaultTimeout = 30 * time.Second
)

// Backend names the matcher that produced a result set
type Backend string

const (
	BackendRipgrep Backend = "ripgrep"
	BackendScanner Backend = "scanner"
)

// ErrNoReadableFiles is returned when candidate documents exist but none of
// them could be read
var ErrNoReadableFiles = errors.New("no readable files")

// errStopped signals that the consumer or the result limit ended the search
var errStopped = errors.New("search stopped")

// Outcome is a fully collected lexical search
type Outcome struct {
	Records  []types.MatchRecord
	Backend  Backend
	Degraded bool // ripgrep was available but the scanner finished the search
	Warnings []string
}

// Engine runs lexical searches. It is safe for concurrent use.
type Engine struct {
	toolPath      string
	allowFallback bool
	timeout       time.Duration
	retry         retry.Config
	logger        *slog.Logger

	open       func(name string) (io.ReadCloser, error)
	start      func(ctx context.Context, toolPath string, args []string) (*rgProcess, error)
	noticeOnce sync.Once
}

// Option configures an Engine
type Option func(*Engine)

// WithToolPath uses the given ripgrep binary instead of looking one up on PATH.
// An empty path disables the accelerated matcher.
func WithToolPath(path string) Option {
	return func(e *Engine) {
		e.toolPath = resolveTool(path)
	}
}

// WithFallback controls whether the scanner may stand in for ripgrep
func WithFallback(allow bool) Option {
	return func(e *Engine) {
		e.allowFallback = allow
	}
}

// WithTimeout bounds each ripgrep invocation
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRetry sets the retry policy for launching ripgrep
func WithRetry(cfg retry.Config) Option {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.With("component", "lexical")
		}
	}
}

// New creates an Engine. Tool availability is probed once, here.
func New(opts ...Option) *Engine {
	e := &Engine{
		toolPath:      resolveTool(ToolName),
		allowFallback: true,
		timeout:       DefaultTimeout,
		retry:         retry.Default(),
		logger:        slog.Default().With("component", "lexical"),
		open: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
		start: startTool,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.toolPath == "" {
		e.logger.Debug("ripgrep not found, using built-in scanner")
	}
	return e
}

func resolveTool(name string) string {
	if name == "" {
		return ""
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// Available reports whether the accelerated matcher was found
func (e *Engine) Available() bool {
	return e.toolPath != ""
}

// Backend reports which matcher a search will start with
func (e *Engine) Backend() Backend {
	if e.Available() {
		return BackendRipgrep
	}
	return BackendScanner
}

// Search lazily yields match records for query under root. Records stop once
// opts.MaxResults have been produced or the consumer stops ranging. A non-nil
// error is terminal and is the last value yielded.
func (e *Engine) Search(ctx context.Context, query, root string, opts types.SearchOptions) iter.Seq2[types.MatchRecord, error] {
	return func(yield func(types.MatchRecord, error) bool) {
		e.run(ctx, query, root, opts, nil, yield)
	}
}

// Collect runs a search to completion and reports which backend served it
func (e *Engine) Collect(ctx context.Context, query, root string, opts types.SearchOptions) (*Outcome, error) {
	out := &Outcome{Backend: e.Backend()}
	var searchErr error
	e.run(ctx, query, root, opts, out, func(rec types.MatchRecord, err error) bool {
		if err != nil {
			searchErr = err
			return false
		}
		out.Records = append(out.Records, rec)
		return true
	})
	return out, searchErr
}

func (e *Engine) run(ctx context.Context, query, root string, opts types.SearchOptions, out *Outcome, yield func(types.MatchRecord, error) bool) {
	if err := opts.Validate(); err != nil {
		yield(types.MatchRecord{}, err)
		return
	}
	if query == "" {
		return
	}
	m, err := newMatcher(query, opts)
	if err != nil {
		yield(types.MatchRecord{}, err)
		return
	}
	if _, err := os.Stat(root); err != nil {
		yield(types.MatchRecord{}, err)
		return
	}

	em := &emitter{limit: opts.MaxResults, seen: make(map[types.MatchKey]struct{}), yield: yield}
	filter := newFileFilter(opts.FileTypes)

	switch {
	case e.Available():
		err := e.runTool(ctx, query, root, opts, filter, em, out)
		if err == nil || errors.Is(err, errStopped) {
			return
		}
		if ctx.Err() != nil {
			yield(types.MatchRecord{}, ctx.Err())
			return
		}
		c := errclass.Classify(err)
		if !e.allowFallback {
			yield(types.MatchRecord{}, err)
			return
		}
		e.logger.Warn("ripgrep failed, continuing with built-in scanner", "kind", c.Kind.String(), "error", err)
		if out != nil {
			out.Backend = BackendScanner
			out.Degraded = true
		}
	case !e.allowFallback:
		yield(types.MatchRecord{}, errclass.ErrToolUnavailable)
		return
	default:
		e.noticeOnce.Do(func() {
			e.logger.Warn(errclass.Classify(errclass.ErrToolUnavailable).Message)
		})
	}

	if err := e.scan(ctx, root, m, filter, em, out); err != nil && !errors.Is(err, errStopped) {
		yield(types.MatchRecord{}, err)
	}
}

// emitter enforces the global result limit and drops records already
// delivered, which matters when the scanner takes over from a ripgrep run
// that produced partial output.
type emitter struct {
	limit int
	count int
	seen  map[types.MatchKey]struct{}
	yield func(types.MatchRecord, error) bool
	done  bool
}

func (em *emitter) full() bool {
	return em.done || (em.limit > 0 && em.count >= em.limit)
}

// emit returns errStopped when no further records are wanted
func (em *emitter) emit(rec types.MatchRecord) error {
	if em.full() {
		return errStopped
	}
	key := rec.Key()
	if _, dup := em.seen[key]; dup {
		return nil
	}
	em.seen[key] = struct{}{}
	em.count++
	if !em.yield(rec, nil) {
		em.done = true
		return errStopped
	}
	if em.full() {
		return errStopped
	}
	return nil
}
