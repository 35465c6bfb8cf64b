package memory

import (
	"context"
	"sort"
	"sync"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

// SampleStore is an in-memory implementation of storage.SampleStore.
type SampleStore struct {
	mu   sync.RWMutex
	data map[sampleKey]*domain.PnLPoint
}

type sampleKey struct {
	runID string
	trial int
}

// NewSampleStore creates a new in-memory PnL sample store.
func NewSampleStore() *SampleStore {
	return &SampleStore{
		data: make(map[sampleKey]*domain.PnLPoint),
	}
}

// InsertBulk adds multiple points atomically. Fails entire batch on any
// duplicate (run_id, trial), existing or intra-batch.
func (s *SampleStore) InsertBulk(_ context.Context, points []*domain.PnLPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[sampleKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Trial < 0 {
			return storage.ErrInvalidInput
		}
		k := sampleKey{p.RunID, p.Trial}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, p := range points {
		cp := *p
		s.data[sampleKey{p.RunID, p.Trial}] = &cp
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by trial ASC.
func (s *SampleStore) GetByRunID(_ context.Context, runID string) ([]*domain.PnLPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PnLPoint
	for _, p := range s.data {
		if p.RunID == runID {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Trial < result[j].Trial
	})

	return result, nil
}

var _ storage.SampleStore = (*SampleStore)(nil)
