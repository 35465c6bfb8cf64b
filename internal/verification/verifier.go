// Package verification checks that stored risk snapshots can be
// reproduced from their persisted PnL samples. A divergence means the
// stored snapshot, the stored sample, or the metric code drifted since
// the run was evaluated.
package verification

import (
	"context"
	"math"

	"trade-eval-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons. The sample
// round-trips through storage bit-exactly, so recomputation differences
// beyond this are real divergences, not noise.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and recomputed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // recomputed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID           string            // verified run ID
	Match           bool              // true if all fields match
	Divergences     []FieldDivergence // list of divergent fields
	StoredMeanPnL   float64           // mean PnL from stored snapshot
	RecomputedMean  float64           // mean PnL recomputed from the sample
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that matched exactly
	DivergentRuns int                  // runs with divergences
	Results       []VerificationResult // individual results
}

// Verifier interface for snapshot reproducibility verification.
type Verifier interface {
	// VerifyRun verifies a single run by ID. It loads the stored
	// snapshot and PnL sample, recomputes the metrics with the stored
	// options, and compares all fields.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyRange verifies all runs completed within [start, end].
	// Returns a report with individual results.
	VerifyRange(ctx context.Context, start, end int64) (*VerificationReport, error)
}

// CompareSnapshots compares a stored and a recomputed snapshot and
// returns divergences. Uses FloatTolerance for float64 comparisons.
func CompareSnapshots(stored, recomputed *domain.RiskSnapshot) []FieldDivergence {
	var divergences []FieldDivergence

	diff := func(field string, expected, actual interface{}, equal bool) {
		if !equal {
			divergences = append(divergences, FieldDivergence{
				Field:    field,
				Expected: expected,
				Actual:   actual,
			})
		}
	}

	diff("Trials", stored.Trials, recomputed.Trials, stored.Trials == recomputed.Trials)

	diff("MeanPnL", stored.MeanPnL, recomputed.MeanPnL, floatEquals(stored.MeanPnL, recomputed.MeanPnL))
	diff("Variance", stored.Variance, recomputed.Variance, floatEquals(stored.Variance, recomputed.Variance))
	diff("Stddev", stored.Stddev, recomputed.Stddev, floatEquals(stored.Stddev, recomputed.Stddev))
	diff("DownsideDeviation", stored.DownsideDeviation, recomputed.DownsideDeviation,
		floatEquals(stored.DownsideDeviation, recomputed.DownsideDeviation))
	diff("Skewness", stored.Skewness, recomputed.Skewness, floatEquals(stored.Skewness, recomputed.Skewness))
	diff("ExcessKurtosis", stored.ExcessKurtosis, recomputed.ExcessKurtosis,
		floatEquals(stored.ExcessKurtosis, recomputed.ExcessKurtosis))
	diff("MinPnL", stored.MinPnL, recomputed.MinPnL, floatEquals(stored.MinPnL, recomputed.MinPnL))
	diff("MaxPnL", stored.MaxPnL, recomputed.MaxPnL, floatEquals(stored.MaxPnL, recomputed.MaxPnL))

	diff("VaR", stored.VaR, recomputed.VaR, floatEquals(stored.VaR, recomputed.VaR))
	diff("CVaR", stored.CVaR, recomputed.CVaR, floatEquals(stored.CVaR, recomputed.CVaR))
	diff("ProbabilityOfRuin", stored.ProbabilityOfRuin, recomputed.ProbabilityOfRuin,
		floatEquals(stored.ProbabilityOfRuin, recomputed.ProbabilityOfRuin))

	diff("Sharpe", stored.Sharpe, recomputed.Sharpe, floatPtrEquals(stored.Sharpe, recomputed.Sharpe))
	diff("Sortino", stored.Sortino, recomputed.Sortino, floatPtrEquals(stored.Sortino, recomputed.Sortino))

	diff("Undefined", stored.Undefined, recomputed.Undefined, stringSlicesEqual(stored.Undefined, recomputed.Undefined))
	diff("LowConfidence", stored.LowConfidence, recomputed.LowConfidence,
		stored.LowConfidence == recomputed.LowConfidence)

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two *float64 values within FloatTolerance.
// Returns true if both are nil, or both are non-nil and equal.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
