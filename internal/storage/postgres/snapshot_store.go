package postgres

import (
	"context"
	"fmt"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	run_id, trials, mean_pnl, variance, stddev,
	downside_deviation, downside_target, skewness, excess_kurtosis,
	min_pnl, max_pnl, var_confidence, var_value, cvar,
	ruin_threshold, probability_of_ruin,
	sharpe_scale, sharpe, sortino, undefined_metrics, low_confidence
`

// Insert adds a risk snapshot. Returns ErrDuplicateKey if run_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.RiskSnapshot) error {
	if snap == nil || snap.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO risk_snapshots (` + snapshotColumns + `)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16,
			$17, $18, $19, $20, $21
		)
	`

	_, err := s.pool.Exec(ctx, query,
		snap.RunID, snap.Trials, snap.MeanPnL, snap.Variance, snap.Stddev,
		snap.DownsideDeviation, snap.DownsideTarget, snap.Skewness, snap.ExcessKurtosis,
		snap.MinPnL, snap.MaxPnL, snap.VaRConfidence, snap.VaR, snap.CVaR,
		snap.RuinThreshold, snap.ProbabilityOfRuin,
		snap.SharpeScale, snap.Sharpe, snap.Sortino, snap.Undefined, snap.LowConfidence,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert risk snapshot: %w", err)
	}
	return nil
}

// GetByRunID retrieves the snapshot for a run. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByRunID(ctx context.Context, runID string) (*domain.RiskSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM risk_snapshots WHERE run_id = $1`

	var snap domain.RiskSnapshot
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&snap.RunID, &snap.Trials, &snap.MeanPnL, &snap.Variance, &snap.Stddev,
		&snap.DownsideDeviation, &snap.DownsideTarget, &snap.Skewness, &snap.ExcessKurtosis,
		&snap.MinPnL, &snap.MaxPnL, &snap.VaRConfidence, &snap.VaR, &snap.CVaR,
		&snap.RuinThreshold, &snap.ProbabilityOfRuin,
		&snap.SharpeScale, &snap.Sharpe, &snap.Sortino, &snap.Undefined, &snap.LowConfidence,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get risk snapshot by run id: %w", err)
	}
	return &snap, nil
}
