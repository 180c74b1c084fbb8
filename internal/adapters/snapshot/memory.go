package snapshot

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. It backs tests and
// deployments that opt out of persistence.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	storedAt map[string]time.Time
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		storedAt: make(map[string]time.Time),
	}
}

// Get returns the stored snapshot bytes for a run.
func (s *MemoryStore) Get(ctx context.Context, runID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrStoreClosed
	}
	data, ok := s.data[runID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

// Put replaces the snapshot for a run.
func (s *MemoryStore) Put(ctx context.Context, runID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.data[runID] = cp
	s.storedAt[runID] = time.Now().UTC()
	return nil
}

// StoredAt returns when the run's snapshot was last written.
func (s *MemoryStore) StoredAt(ctx context.Context, runID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return time.Time{}, false, ErrStoreClosed
	}
	ts, ok := s.storedAt[runID]
	return ts, ok, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
