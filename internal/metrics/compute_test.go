package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-eval-lab/internal/domain"
)

func TestComputeSample_BasicStatistics(t *testing.T) {
	sample := []float64{10, 20, 30, 40, 50}

	snap, err := ComputeSample(sample, Options{})
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Trials)
	assert.InDelta(t, 30.0, snap.MeanPnL, 1e-9)
	// Sample variance with n-1 denominator: 1000/4 = 250.
	assert.InDelta(t, 250.0, snap.Variance, 1e-9)
	assert.InDelta(t, math.Sqrt(250), snap.Stddev, 1e-9)
	assert.Equal(t, 10.0, snap.MinPnL)
	assert.Equal(t, 50.0, snap.MaxPnL)
	assert.False(t, snap.LowConfidence)
}

func TestComputeSample_VaRInterpolation(t *testing.T) {
	sample := []float64{-100, -50, 0, 50, 100}

	snap, err := ComputeSample(sample, Options{VaRConfidence: 0.80})
	require.NoError(t, err)

	// The 20th percentile of 5 points falls at index 0.8, so the
	// quantile interpolates between -100 and -50.
	assert.InDelta(t, -60.0, snap.VaR, 1e-9)
	// Only -100 lies at or below -60, so the tail average is -100.
	assert.InDelta(t, -100.0, snap.CVaR, 1e-9)
	assert.LessOrEqual(t, snap.CVaR, snap.VaR)
}

func TestComputeSample_CVaRNeverExceedsVaR(t *testing.T) {
	samples := [][]float64{
		{-100, -50, 0, 50, 100},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		{-5, -5, -5, -5},
		{-1000, 3, 3, 3, 3, 3, 3, 3},
	}
	confidences := []float64{0.5, 0.8, 0.90, 0.95, 0.99}

	for _, sample := range samples {
		for _, c := range confidences {
			snap, err := ComputeSample(sample, Options{VaRConfidence: c})
			require.NoError(t, err)
			assert.LessOrEqual(t, snap.CVaR, snap.VaR, "sample %v confidence %v", sample, c)
		}
	}
}

func TestComputeSample_DownsideDeviation(t *testing.T) {
	// Shortfalls below 0: only -30 and -40. RMS over all 4 samples:
	// sqrt((900+1600)/4) = 25.
	sample := []float64{-30, -40, 10, 20}

	snap, err := ComputeSample(sample, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, snap.DownsideDeviation, 1e-9)

	// Against a target of 15, 10 also falls short by 5.
	snap, err = ComputeSample(sample, Options{DownsideTarget: 15})
	require.NoError(t, err)
	want := math.Sqrt((45*45 + 55*55 + 5*5) / 4.0)
	assert.InDelta(t, want, snap.DownsideDeviation, 1e-9)
}

func TestComputeSample_RuinProbability(t *testing.T) {
	sample := []float64{-100, -50, 0, 50, 100}

	snap, err := ComputeSample(sample, Options{RuinThreshold: -75})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, snap.ProbabilityOfRuin, 1e-9)

	// Relaxing the threshold never decreases the probability.
	relaxed, err := ComputeSample(sample, Options{RuinThreshold: -50})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, relaxed.ProbabilityOfRuin, snap.ProbabilityOfRuin)
	assert.InDelta(t, 0.4, relaxed.ProbabilityOfRuin, 1e-9)
}

func TestComputeSample_SharpeAndSortino(t *testing.T) {
	sample := []float64{-30, -40, 10, 20}

	snap, err := ComputeSample(sample, Options{})
	require.NoError(t, err)
	require.NotNil(t, snap.Sharpe)
	require.NotNil(t, snap.Sortino)
	assert.InDelta(t, snap.MeanPnL/snap.Stddev, *snap.Sharpe, 1e-9)
	assert.InDelta(t, snap.MeanPnL/25.0, *snap.Sortino, 1e-9)
	assert.Empty(t, snap.Undefined)

	// Caller-supplied annualization scale multiplies both ratios.
	scaled, err := ComputeSample(sample, Options{SharpeScale: math.Sqrt(252)})
	require.NoError(t, err)
	assert.InDelta(t, *snap.Sharpe*math.Sqrt(252), *scaled.Sharpe, 1e-9)
	assert.InDelta(t, *snap.Sortino*math.Sqrt(252), *scaled.Sortino, 1e-9)
}

func TestComputeSample_UndefinedRatios(t *testing.T) {
	// Constant positive sample: zero stddev and zero downside deviation.
	snap, err := ComputeSample([]float64{5, 5, 5, 5}, Options{})
	require.NoError(t, err)

	assert.Nil(t, snap.Sharpe)
	assert.Nil(t, snap.Sortino)
	assert.Contains(t, snap.Undefined, MetricSharpe)
	assert.Contains(t, snap.Undefined, MetricSortino)
	// The rest of the snapshot is still populated.
	assert.InDelta(t, 5.0, snap.MeanPnL, 1e-9)
	assert.InDelta(t, 5.0, snap.VaR, 1e-9)
}

func TestComputeSample_SingleValueIsLowConfidence(t *testing.T) {
	snap, err := ComputeSample([]float64{-42}, Options{})
	require.NoError(t, err)

	assert.True(t, snap.LowConfidence)
	assert.InDelta(t, -42.0, snap.MeanPnL, 1e-9)
	assert.InDelta(t, -42.0, snap.VaR, 1e-9)
	assert.InDelta(t, -42.0, snap.CVaR, 1e-9)
	assert.Zero(t, snap.Variance)
	assert.Nil(t, snap.Sharpe)
}

func TestComputeSample_InputValidation(t *testing.T) {
	_, err := ComputeSample(nil, Options{})
	assert.True(t, errors.Is(err, ErrEmptySample))

	_, err = ComputeSample([]float64{1, 2}, Options{VaRConfidence: 1.5})
	assert.True(t, errors.Is(err, ErrBadConfidence))

	_, err = ComputeSample([]float64{1, 2}, Options{SharpeScale: -1})
	assert.True(t, errors.Is(err, ErrBadScale))
}

func TestCompute_CarriesRunID(t *testing.T) {
	result := &domain.SimulationResult{
		RunID: "run-abc",
		PnL:   []float64{-10, 0, 10},
	}

	snap, err := Compute(result, Options{})
	require.NoError(t, err)
	assert.Equal(t, "run-abc", snap.RunID)
	assert.Equal(t, 3, snap.Trials)
}
