package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, model_id, strategy_id, model_type, strategy_type,
	trials, horizon, seed, cost_note, started_at, completed_at
`

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
// The uint64 seed is stored bit-for-bit in a BIGINT column.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO simulation_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.ModelID, r.StrategyID, r.ModelType, r.StrategyType,
		r.Trials, r.Horizon, int64(r.Seed), r.CostNote, r.StartedAt, r.CompletedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM simulation_runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRunRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulation run by id: %w", err)
	}
	return r, nil
}

// GetByTimeRange retrieves runs completed within [start, end] (inclusive).
func (s *RunStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.RunRecord, error) {
	query := `
		SELECT ` + runColumns + `
		FROM simulation_runs
		WHERE completed_at >= $1 AND completed_at <= $2
		ORDER BY completed_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get simulation runs by time range: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunRecord
	for rows.Next() {
		r, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation run rows: %w", err)
	}

	return runs, nil
}

func scanRunRecord(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var seed int64

	err := row.Scan(
		&r.RunID, &r.ModelID, &r.StrategyID, &r.ModelType, &r.StrategyType,
		&r.Trials, &r.Horizon, &seed, &r.CostNote, &r.StartedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Seed = uint64(seed)
	return &r, nil
}
