package metrics

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trade-eval-lab/internal/domain"
)

// Computation errors
var (
	ErrEmptySample   = errors.New("pnl sample is empty")
	ErrBadConfidence = errors.New("VaR confidence must be in (0, 1)")
	ErrBadScale      = errors.New("sharpe scale must be positive")
)

// Undefined metric names, recorded in RiskSnapshot.Undefined.
const (
	MetricSharpe  = "sharpe"
	MetricSortino = "sortino"
)

// Options configures risk metric computation.
type Options struct {
	// VaRConfidence is the VaR/CVaR confidence level in (0,1).
	// Zero means the default 0.95.
	VaRConfidence float64

	// RuinThreshold is the catastrophic-loss level in PnL units
	// (typically negative). Trials with PnL at or below it count as
	// ruined.
	RuinThreshold float64

	// SharpeScale multiplies Sharpe and Sortino, letting the caller
	// annualize (e.g. sqrt(252) for daily PnL). Zero means 1: ratios
	// are reported at the sample's native frequency.
	SharpeScale float64

	// DownsideTarget is the return target for downside deviation.
	// The default 0 counts every losing trial as shortfall.
	DownsideTarget float64
}

func (o Options) withDefaults() Options {
	if o.VaRConfidence == 0 {
		o.VaRConfidence = 0.95
	}
	if o.SharpeScale == 0 {
		o.SharpeScale = 1
	}
	return o
}

// Compute derives the risk snapshot for a completed simulation run.
func Compute(result *domain.SimulationResult, opts Options) (*domain.RiskSnapshot, error) {
	snap, err := ComputeSample(result.PnL, opts)
	if err != nil {
		return nil, err
	}
	snap.RunID = result.RunID
	return snap, nil
}

// ComputeSample derives all risk metrics from a raw PnL sample.
//
// All PnL-quantile outputs (VaR, CVaR, min, max) are in PnL units:
// negative values are losses. Under this convention CVaR <= VaR holds
// for every sample. Sharpe and Sortino are nil when their denominator
// is zero; the snapshot's Undefined list names each such metric. A
// single-value sample sets LowConfidence: its variance estimate
// degenerates to zero and the quantile metrics collapse to the one
// observation.
func ComputeSample(pnl []float64, opts Options) (*domain.RiskSnapshot, error) {
	n := len(pnl)
	if n == 0 {
		return nil, ErrEmptySample
	}
	opts = opts.withDefaults()
	if opts.VaRConfidence <= 0 || opts.VaRConfidence >= 1 {
		return nil, ErrBadConfidence
	}
	if opts.SharpeScale < 0 {
		return nil, ErrBadScale
	}

	sorted := make([]float64, n)
	copy(sorted, pnl)
	sort.Float64s(sorted)

	mean := stat.Mean(pnl, nil)
	variance := 0.0
	if n >= 2 {
		variance = stat.Variance(pnl, nil) // n-1 denominator
	}
	stddev := math.Sqrt(variance)
	downside := downsideDeviation(pnl, opts.DownsideTarget)

	varValue := computePercentile(sorted, 1-opts.VaRConfidence)
	cvar := tailMean(sorted, varValue)

	snap := &domain.RiskSnapshot{
		Trials:            n,
		MeanPnL:           mean,
		Variance:          variance,
		Stddev:            stddev,
		DownsideDeviation: downside,
		DownsideTarget:    opts.DownsideTarget,
		MinPnL:            floats.Min(sorted),
		MaxPnL:            floats.Max(sorted),
		VaRConfidence:     opts.VaRConfidence,
		VaR:               varValue,
		CVaR:              cvar,
		RuinThreshold:     opts.RuinThreshold,
		ProbabilityOfRuin: ruinProbability(sorted, opts.RuinThreshold),
		SharpeScale:       opts.SharpeScale,
		LowConfidence:     n == 1,
	}

	if n >= 2 && stddev > 0 {
		snap.Skewness = stat.Skew(pnl, nil)
		snap.ExcessKurtosis = stat.ExKurtosis(pnl, nil)
	}

	if stddev > 0 {
		sharpe := mean / stddev * opts.SharpeScale
		snap.Sharpe = &sharpe
	} else {
		snap.Undefined = append(snap.Undefined, MetricSharpe)
	}
	if downside > 0 {
		sortino := mean / downside * opts.SharpeScale
		snap.Sortino = &sortino
	} else {
		snap.Undefined = append(snap.Undefined, MetricSortino)
	}

	return snap, nil
}

// downsideDeviation is the root-mean-square of below-target shortfalls
// over the full sample size.
func downsideDeviation(pnl []float64, target float64) float64 {
	sumSq := 0.0
	for _, v := range pnl {
		if v < target {
			d := v - target
			sumSq += d * d
		}
	}
	return math.Sqrt(sumSq / float64(len(pnl)))
}

// computePercentile uses linear interpolation between order statistics.
// sorted must be pre-sorted ASC. p in [0,1].
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// tailMean averages every sample value at or below the VaR quantile.
// sorted[0] never exceeds the interpolated quantile, so the tail is
// never empty and the result never exceeds the quantile itself.
func tailMean(sorted []float64, quantile float64) float64 {
	sum := 0.0
	count := 0
	for _, v := range sorted {
		if v > quantile {
			break
		}
		sum += v
		count++
	}
	return sum / float64(count)
}

// ruinProbability is the fraction of trials with PnL at or below the
// threshold. Relaxing the threshold (making it less negative) never
// decreases the result.
func ruinProbability(sorted []float64, threshold float64) float64 {
	count := 0
	for _, v := range sorted {
		if v > threshold {
			break
		}
		count++
	}
	return float64(count) / float64(len(sorted))
}
