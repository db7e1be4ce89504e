package orchestrator

import (
	"context"
	"path/filepath"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
	"github.com/Kurasuai-Inc/doc-search/internal/semantic"
)

// Status describes the orchestrator for front-ends
type Status struct {
	Root            string
	Backend         lexical.Backend
	SemanticEnabled bool
	SemanticReady   bool
	IndexedRoot     string
	IndexedChunks   int
}

// Status reports the current configuration and index state
func (o *Orchestrator) Status() Status {
	s := Status{
		Root:            o.Root(),
		Backend:         o.lexical.Backend(),
		SemanticEnabled: o.SemanticEnabled(),
	}
	if o.semantic != nil {
		o.indexMu.Lock()
		s.IndexedRoot = o.indexedRoot
		o.indexMu.Unlock()
		s.SemanticReady = o.semantic.Ready()
		s.IndexedChunks = o.semantic.Len()
	}
	return s
}

// EnsureIndex builds the semantic index for root unless it is already built.
// Concurrent callers wait for a single build.
func (o *Orchestrator) EnsureIndex(ctx context.Context, root string) error {
	if o.semantic == nil {
		return ErrSemanticDisabled
	}
	o.indexMu.Lock()
	defer o.indexMu.Unlock()
	if o.semantic.Ready() && o.indexedRoot == cleanRoot(root) {
		return nil
	}
	_, err := o.buildLocked(ctx, root)
	return err
}

// BuildIndex rebuilds the semantic index for root (the default root when
// empty) and drops cached responses
func (o *Orchestrator) BuildIndex(ctx context.Context, root string) (*semantic.BuildStats, error) {
	if o.semantic == nil {
		return nil, ErrSemanticDisabled
	}
	if root == "" {
		root = o.Root()
	}
	o.indexMu.Lock()
	defer o.indexMu.Unlock()
	return o.buildLocked(ctx, root)
}

func (o *Orchestrator) buildLocked(ctx context.Context, root string) (*semantic.BuildStats, error) {
	docs, warning, err := semantic.CollectDocuments(ctx, root, o.fileTypes, o.logger)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		o.logger.Warn(warning, "root", root)
	}

	stats, err := o.semantic.BuildIndex(ctx, docs)
	if err != nil {
		o.disableOnBackendFailure(err)
		return nil, err
	}
	o.indexedRoot = cleanRoot(root)
	if o.cache != nil {
		o.cache.purge()
	}
	return stats, nil
}

func (o *Orchestrator) searchSemantic(ctx context.Context, query, root string) ([]semantic.Result, error) {
	if err := o.EnsureIndex(ctx, root); err != nil {
		return nil, err
	}
	results, err := o.semantic.Search(ctx, query, o.topK, o.threshold)
	if err != nil {
		o.disableOnBackendFailure(err)
		return nil, err
	}
	return results, nil
}

// disableOnBackendFailure turns semantic search off for the rest of the
// session when the embedding backend is gone
func (o *Orchestrator) disableOnBackendFailure(err error) {
	if errclass.Classify(err).Kind != errclass.BackendUnavailable {
		return
	}
	if o.semanticDisabled.CompareAndSwap(false, true) {
		o.logger.Warn("semantic search disabled for this session", "error", err)
	}
}

func cleanRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}
