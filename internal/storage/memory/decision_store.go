package memory

import (
	"context"
	"sync"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DecisionRecord // keyed by run_id
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.DecisionRecord),
	}
}

// Insert adds a decision record. Returns ErrDuplicateKey if run_id exists.
func (s *DecisionStore) Insert(_ context.Context, d *domain.DecisionRecord) error {
	if d == nil || d.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[d.RunID] = copyDecision(d)
	return nil
}

// GetByRunID retrieves the decision for a run. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByRunID(_ context.Context, runID string) (*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyDecision(d), nil
}

func copyDecision(d *domain.DecisionRecord) *domain.DecisionRecord {
	cp := *d
	if d.FailedCriteria != nil {
		cp.FailedCriteria = append([]string(nil), d.FailedCriteria...)
	}
	return &cp
}

var _ storage.DecisionStore = (*DecisionStore)(nil)
