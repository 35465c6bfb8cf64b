package verification

import (
	"context"
	"errors"
	"fmt"

	"trade-eval-lab/internal/metrics"
	"trade-eval-lab/internal/storage"
)

var (
	// ErrRunNotFound is returned when the run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrSnapshotNotFound is returned when the run has no stored snapshot.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrSampleNotFound is returned when the run's PnL sample is missing.
	ErrSampleNotFound = errors.New("pnl sample not found")
)

// SnapshotVerifier implements Verifier by recomputing stored snapshots
// from their persisted samples.
type SnapshotVerifier struct {
	runStore      storage.RunStore
	sampleStore   storage.SampleStore
	snapshotStore storage.SnapshotStore
}

// SnapshotVerifierOptions contains configuration for creating a SnapshotVerifier.
type SnapshotVerifierOptions struct {
	RunStore      storage.RunStore
	SampleStore   storage.SampleStore
	SnapshotStore storage.SnapshotStore
}

// NewSnapshotVerifier creates a new SnapshotVerifier.
func NewSnapshotVerifier(opts SnapshotVerifierOptions) *SnapshotVerifier {
	return &SnapshotVerifier{
		runStore:      opts.RunStore,
		sampleStore:   opts.SampleStore,
		snapshotStore: opts.SnapshotStore,
	}
}

var _ Verifier = (*SnapshotVerifier)(nil)

// VerifyRun verifies a single run by recomputing its snapshot.
func (v *SnapshotVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load stored run and snapshot
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	stored, err := v.snapshotStore.GetByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	// 2. Load the persisted sample, ordered by trial
	points, err := v.sampleStore.GetByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSampleNotFound
		}
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrSampleNotFound
	}

	result := &VerificationResult{
		RunID:         runID,
		StoredMeanPnL: stored.MeanPnL,
	}

	// A truncated sample cannot reproduce the snapshot; report it as a
	// divergence rather than recomputing from partial data.
	if len(points) != run.Trials {
		result.Divergences = append(result.Divergences, FieldDivergence{
			Field:    "SampleSize",
			Expected: run.Trials,
			Actual:   len(points),
		})
		return result, nil
	}

	pnl := make([]float64, len(points))
	for i, p := range points {
		pnl[i] = p.PnL
	}

	// 3. Recompute with the options the stored snapshot was computed under
	recomputed, err := metrics.ComputeSample(pnl, metrics.Options{
		VaRConfidence:  stored.VaRConfidence,
		RuinThreshold:  stored.RuinThreshold,
		SharpeScale:    stored.SharpeScale,
		DownsideTarget: stored.DownsideTarget,
	})
	if err != nil {
		return nil, fmt.Errorf("recompute snapshot for run %s: %w", runID, err)
	}
	result.RecomputedMean = recomputed.MeanPnL

	// 4. Compare field by field
	result.Divergences = append(result.Divergences, CompareSnapshots(stored, recomputed)...)
	result.Match = len(result.Divergences) == 0

	return result, nil
}

// VerifyRange verifies all runs completed within [start, end].
func (v *SnapshotVerifier) VerifyRange(ctx context.Context, start, end int64) (*VerificationReport, error) {
	runs, err := v.runStore.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			// Record the error as a divergence so one broken run does
			// not abort the batch.
			report.Results = append(report.Results, VerificationResult{
				RunID: run.RunID,
				Match: false,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}
