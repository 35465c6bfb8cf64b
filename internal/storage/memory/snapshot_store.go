package memory

import (
	"context"
	"sync"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RiskSnapshot // keyed by run_id
}

// NewSnapshotStore creates a new in-memory risk snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.RiskSnapshot),
	}
}

// Insert adds a risk snapshot. Returns ErrDuplicateKey if run_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.RiskSnapshot) error {
	if snap == nil || snap.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[snap.RunID] = copySnapshot(snap)
	return nil
}

// GetByRunID retrieves the snapshot for a run. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByRunID(_ context.Context, runID string) (*domain.RiskSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copySnapshot(snap), nil
}

// copySnapshot deep-copies a snapshot including pointer and slice fields.
func copySnapshot(snap *domain.RiskSnapshot) *domain.RiskSnapshot {
	cp := *snap
	if snap.Sharpe != nil {
		v := *snap.Sharpe
		cp.Sharpe = &v
	}
	if snap.Sortino != nil {
		v := *snap.Sortino
		cp.Sortino = &v
	}
	if snap.Undefined != nil {
		cp.Undefined = append([]string(nil), snap.Undefined...)
	}
	return &cp
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
