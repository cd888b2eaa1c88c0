package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/researchbot/researchbot/internal/core/domain"
	"github.com/researchbot/researchbot/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore keeps saved index snapshots keyed by location.
// Snapshots are immutable, so they are stored by reference.
type IndexStore struct {
	mu    sync.RWMutex
	saved map[string]*domain.IndexSnapshot
}

// NewIndexStore creates an empty index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{saved: make(map[string]*domain.IndexSnapshot)}
}

// Save stores the snapshot under location.
func (s *IndexStore) Save(_ context.Context, location string, snapshot *domain.IndexSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrStorage)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[location] = snapshot
	return nil
}

// Load returns the snapshot stored under location.
func (s *IndexStore) Load(_ context.Context, location string) (*domain.IndexSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.saved[location]
	if !ok {
		return nil, fmt.Errorf("%w: %w: no index at %s", domain.ErrStorage, domain.ErrNotFound, location)
	}
	return snap, nil
}
