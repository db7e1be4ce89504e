package cache

import (
	"context"
	"slices"
	"sync"
)

type memoryKey struct {
	model string
	key   Key
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memoryKey]*Entry
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey]*Entry)}
}

func (s *MemoryStore) Backend() string {
	return BackendMemory
}

func (s *MemoryStore) Get(ctx context.Context, model string, key Key) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	e, ok := s.entries[memoryKey{model: model, key: key}]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *MemoryStore) Put(ctx context.Context, entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entries[memoryKey{model: entry.Model, key: entry.Key}] = cloneEntry(entry)
	return nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	c.Vector = slices.Clone(e.Vector)
	return &c
}
