package reporting

import "time"

// Report summarizes the evaluations stored in a time window.
type Report struct {
	GeneratedAt time.Time
	RangeStart  int64 // Unix ms
	RangeEnd    int64 // Unix ms

	RunCount      int
	AcceptedCount int
	RejectedCount int

	// Rows are sorted by completed_at ASC, run_id ASC.
	Rows []EvaluationRow

	// IntegrityErrors lists runs whose snapshot or decision is missing.
	IntegrityErrors []string
}

// EvaluationRow is one evaluated run in the report.
type EvaluationRow struct {
	RunID        string
	ModelType    string
	StrategyType string
	Trials       int
	Horizon      int
	Seed         uint64
	CompletedAt  int64 // Unix ms

	MeanPnL           float64
	Stddev            float64
	VaR               float64
	CVaR              float64
	VaRConfidence     float64
	ProbabilityOfRuin float64
	Sharpe            *float64 // nil when undefined for the sample
	Sortino           *float64
	LowConfidence     bool

	Verdict        string
	FailedCriteria []string
}
