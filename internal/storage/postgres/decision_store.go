package postgres

import (
	"context"
	"fmt"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// Insert adds a decision record. Returns ErrDuplicateKey if run_id exists.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.DecisionRecord) error {
	if d == nil || d.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO decisions (run_id, verdict, failed_criteria, evaluated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, d.RunID, d.Verdict, d.FailedCriteria, d.EvaluatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetByRunID retrieves the decision for a run. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByRunID(ctx context.Context, runID string) (*domain.DecisionRecord, error) {
	query := `
		SELECT run_id, verdict, failed_criteria, evaluated_at
		FROM decisions
		WHERE run_id = $1
	`

	var d domain.DecisionRecord
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&d.RunID, &d.Verdict, &d.FailedCriteria, &d.EvaluatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision by run id: %w", err)
	}
	return &d, nil
}
