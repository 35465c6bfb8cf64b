package storage

import (
	"context"

	"trade-eval-lab/internal/domain"
)

// RunStore provides access to simulation_runs storage.
type RunStore interface {
	// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByTimeRange retrieves runs completed within [start, end] (inclusive),
	// ordered by completed_at ASC, run_id ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.RunRecord, error)
}

// SampleStore provides access to pnl_samples storage.
type SampleStore interface {
	// InsertBulk adds the per-trial PnL points of a run. Fails the entire
	// batch on any duplicate (run_id, trial).
	InsertBulk(ctx context.Context, points []*domain.PnLPoint) error

	// GetByRunID retrieves all points for a run, ordered by trial ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.PnLPoint, error)
}

// SnapshotStore provides access to risk_snapshots storage.
type SnapshotStore interface {
	// Insert adds a risk snapshot. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.RiskSnapshot) error

	// GetByRunID retrieves the snapshot for a run. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.RiskSnapshot, error)
}

// DecisionStore provides access to decisions storage.
type DecisionStore interface {
	// Insert adds a decision record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, d *domain.DecisionRecord) error

	// GetByRunID retrieves the decision for a run. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.DecisionRecord, error)
}
