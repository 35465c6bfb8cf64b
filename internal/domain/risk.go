package domain

// RiskSnapshot is a read-only aggregate computed from exactly one
// SimulationResult. It holds no independent state and can be recomputed
// deterministically from the same sample.
//
// Sign convention: VaR and CVaR are reported in PnL units, so losses are
// negative. CVaR <= VaR always holds under this convention. Callers that
// want a loss magnitude negate the value.
type RiskSnapshot struct {
	RunID  string
	Trials int

	// Distribution
	MeanPnL           float64
	Variance          float64 // sample variance, n-1 denominator
	Stddev            float64
	DownsideDeviation float64 // RMS of deviations below DownsideTarget
	DownsideTarget    float64
	Skewness          float64
	ExcessKurtosis    float64
	MinPnL            float64
	MaxPnL            float64

	// Tail risk
	VaRConfidence float64
	VaR           float64 // (1-c)-quantile of the PnL sample, linear interpolation
	CVaR          float64 // mean of all sample values at or below VaR

	// Ruin
	RuinThreshold     float64
	ProbabilityOfRuin float64 // fraction of trials with PnL <= RuinThreshold

	// Ratios. Nil when mathematically undefined for the sample
	// (zero standard deviation or zero downside deviation); the metric
	// name is then listed in Undefined.
	SharpeScale float64 // annualization factor applied to Sharpe/Sortino
	Sharpe      *float64
	Sortino     *float64

	// Undefined names the metrics that could not be computed for this
	// sample. Their absence does not abort the other metrics.
	Undefined []string

	// LowConfidence marks estimates from a single-trial sample, which
	// cannot support a stable variance estimate.
	LowConfidence bool
}

// DecisionRecord is the persistable form of a decision verdict.
type DecisionRecord struct {
	RunID          string
	Verdict        string
	FailedCriteria []string
	EvaluatedAt    int64 // Unix ms
}
