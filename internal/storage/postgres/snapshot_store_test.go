package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage"
	"trade-eval-lab/internal/storage/postgres"
)

func TestSnapshotStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	runStore := postgres.NewRunStore(pool)
	store := postgres.NewSnapshotStore(pool)
	ctx := context.Background()

	// risk_snapshots references simulation_runs.
	require.NoError(t, runStore.Insert(ctx, sampleRun("run1")))

	snap := &domain.RiskSnapshot{
		RunID:             "run1",
		Trials:            10000,
		MeanPnL:           5.13,
		Variance:          441.2,
		Stddev:            21.0,
		DownsideDeviation: 13.4,
		Skewness:          0.61,
		ExcessKurtosis:    0.7,
		MinPnL:            -68.2,
		MaxPnL:            110.9,
		VaRConfidence:     0.95,
		VaR:               -28.4,
		CVaR:              -36.1,
		RuinThreshold:     -80,
		ProbabilityOfRuin: 0.0004,
		SharpeScale:       1,
		Sharpe:            ptr(0.244),
		Sortino:           ptr(0.383),
	}
	require.NoError(t, store.Insert(ctx, snap))

	got, err := store.GetByRunID(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, snap.Trials, got.Trials)
	assert.InDelta(t, snap.MeanPnL, got.MeanPnL, 1e-12)
	assert.InDelta(t, snap.VaR, got.VaR, 1e-12)
	assert.InDelta(t, snap.CVaR, got.CVaR, 1e-12)
	require.NotNil(t, got.Sharpe)
	assert.InDelta(t, 0.244, *got.Sharpe, 1e-12)
	assert.False(t, got.LowConfidence)
}

func TestSnapshotStore_UndefinedRatios(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	runStore := postgres.NewRunStore(pool)
	store := postgres.NewSnapshotStore(pool)
	ctx := context.Background()

	require.NoError(t, runStore.Insert(ctx, sampleRun("run2")))

	snap := &domain.RiskSnapshot{
		RunID:         "run2",
		Trials:        1,
		MeanPnL:       -42,
		VaRConfidence: 0.95,
		VaR:           -42,
		CVaR:          -42,
		SharpeScale:   1,
		Undefined:     []string{"sharpe", "sortino"},
		LowConfidence: true,
	}
	require.NoError(t, store.Insert(ctx, snap))

	got, err := store.GetByRunID(ctx, "run2")
	require.NoError(t, err)
	assert.Nil(t, got.Sharpe)
	assert.Nil(t, got.Sortino)
	assert.Equal(t, []string{"sharpe", "sortino"}, got.Undefined)
	assert.True(t, got.LowConfidence)
}

func TestSnapshotStore_DuplicateAndNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	runStore := postgres.NewRunStore(pool)
	store := postgres.NewSnapshotStore(pool)
	ctx := context.Background()

	require.NoError(t, runStore.Insert(ctx, sampleRun("run3")))

	snap := &domain.RiskSnapshot{RunID: "run3", Trials: 10, VaRConfidence: 0.95, SharpeScale: 1}
	require.NoError(t, store.Insert(ctx, snap))

	err := store.Insert(ctx, snap)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey), "got %v", err)

	_, err = store.GetByRunID(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}
