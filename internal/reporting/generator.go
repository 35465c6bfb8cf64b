package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trade-eval-lab/internal/observability"
	"trade-eval-lab/internal/storage"
)

// Generator produces reports from stored evaluations.
type Generator struct {
	runStore      storage.RunStore
	snapshotStore storage.SnapshotStore
	decisionStore storage.DecisionStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.RunStore,
	snapshotStore storage.SnapshotStore,
	decisionStore storage.DecisionStore,
) *Generator {
	return &Generator{
		runStore:      runStore,
		snapshotStore: snapshotStore,
		decisionStore: decisionStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report over runs completed within [start, end].
// A run missing its snapshot or decision is reported as an integrity
// error instead of silently dropping or aborting the report.
func (g *Generator) Generate(ctx context.Context, start, end int64) (*Report, error) {
	runs, err := g.runStore.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}

	report := &Report{
		GeneratedAt: g.now(),
		RangeStart:  start,
		RangeEnd:    end,
		RunCount:    len(runs),
	}

	for _, run := range runs {
		row := EvaluationRow{
			RunID:        run.RunID,
			ModelType:    run.ModelType,
			StrategyType: run.StrategyType,
			Trials:       run.Trials,
			Horizon:      run.Horizon,
			Seed:         run.Seed,
			CompletedAt:  run.CompletedAt,
		}

		snap, err := g.snapshotStore.GetByRunID(ctx, run.RunID)
		switch {
		case err == nil:
			row.MeanPnL = snap.MeanPnL
			row.Stddev = snap.Stddev
			row.VaR = snap.VaR
			row.CVaR = snap.CVaR
			row.VaRConfidence = snap.VaRConfidence
			row.ProbabilityOfRuin = snap.ProbabilityOfRuin
			row.Sharpe = snap.Sharpe
			row.Sortino = snap.Sortino
			row.LowConfidence = snap.LowConfidence
		case errors.Is(err, storage.ErrNotFound):
			report.IntegrityErrors = append(report.IntegrityErrors,
				fmt.Sprintf("run %s has no risk snapshot", run.RunID))
		default:
			return nil, fmt.Errorf("load snapshot for run %s: %w", run.RunID, err)
		}

		dec, err := g.decisionStore.GetByRunID(ctx, run.RunID)
		switch {
		case err == nil:
			row.Verdict = dec.Verdict
			row.FailedCriteria = dec.FailedCriteria
			if dec.Verdict == "ACCEPT" {
				report.AcceptedCount++
			} else {
				report.RejectedCount++
			}
		case errors.Is(err, storage.ErrNotFound):
			report.IntegrityErrors = append(report.IntegrityErrors,
				fmt.Sprintf("run %s has no decision", run.RunID))
		default:
			return nil, fmt.Errorf("load decision for run %s: %w", run.RunID, err)
		}

		report.Rows = append(report.Rows, row)
	}

	observability.RecordReportGenerated()
	return report, nil
}
