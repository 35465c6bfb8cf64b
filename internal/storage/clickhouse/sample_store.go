package clickhouse

import (
	"context"
	"fmt"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
)

// SampleStore implements storage.SampleStore using ClickHouse.
type SampleStore struct {
	conn *Conn
}

// NewSampleStore creates a new SampleStore.
func NewSampleStore(conn *Conn) *SampleStore {
	return &SampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SampleStore = (*SampleStore)(nil)

// InsertBulk adds the per-trial PnL points of a run. Fails the entire
// batch on any duplicate (run_id, trial). MergeTree does not enforce
// uniqueness, so duplicates are checked explicitly before the batch.
func (s *SampleStore) InsertBulk(ctx context.Context, points []*domain.PnLPoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		runID string
		trial int
	}
	seen := make(map[key]struct{}, len(points))
	runs := make(map[string]struct{})
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Trial < 0 {
			return storage.ErrInvalidInput
		}
		k := key{p.RunID, p.Trial}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		runs[p.RunID] = struct{}{}
	}

	// Runs are inserted whole, so one existing row for the run means
	// the whole sample is already stored.
	for runID := range runs {
		exists, err := s.runExists(ctx, runID)
		if err != nil {
			return fmt.Errorf("check run exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pnl_samples (run_id, trial, pnl)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.RunID, uint32(p.Trial), p.PnL); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by trial ASC.
func (s *SampleStore) GetByRunID(ctx context.Context, runID string) ([]*domain.PnLPoint, error) {
	query := `
		SELECT run_id, trial, pnl
		FROM pnl_samples
		WHERE run_id = ?
		ORDER BY trial ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query pnl samples by run id: %w", err)
	}
	defer rows.Close()

	var points []*domain.PnLPoint
	for rows.Next() {
		var p domain.PnLPoint
		var trial uint32

		if err := rows.Scan(&p.RunID, &trial, &p.PnL); err != nil {
			return nil, fmt.Errorf("scan pnl sample row: %w", err)
		}

		p.Trial = int(trial)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pnl sample rows: %w", err)
	}

	return points, nil
}

// runExists checks if any sample row exists for the run.
func (s *SampleStore) runExists(ctx context.Context, runID string) (bool, error) {
	query := `SELECT count(*) FROM pnl_samples WHERE run_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, runID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
