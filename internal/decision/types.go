package decision

import "trade-eval-lab/internal/domain"

// Verdict represents the final accept/reject result.
type Verdict string

const (
	VerdictAccept Verdict = "ACCEPT"
	VerdictReject Verdict = "REJECT"
)

// Criterion names, matching the configuration keys they come from.
const (
	CriterionMinExpectedReturn  = "min_expected_return"
	CriterionMaxCVaR            = "max_cvar_at_confidence"
	CriterionMinSharpe          = "min_sharpe"
	CriterionMinSortino         = "min_sortino"
	CriterionMaxRuinProbability = "max_probability_of_ruin"
)

// Thresholds holds the configured decision criteria. Each is optional:
// a nil threshold is not evaluated and cannot fail.
type Thresholds struct {
	// MinExpectedPnL is the floor on mean PnL.
	MinExpectedPnL *float64

	// MaxCVaRLoss caps the CVaR tail loss, expressed as a loss
	// magnitude (positive number). The snapshot's CVaR is in PnL
	// units, so a CVaR of -500 is a loss of 500.
	MaxCVaRLoss *float64

	// MinSharpe / MinSortino are floors on the risk-adjusted ratios.
	// When configured against a sample where the ratio is undefined,
	// the criterion fails.
	MinSharpe  *float64
	MinSortino *float64

	// MaxRuinProbability caps the fraction of ruined trials.
	MaxRuinProbability *float64
}

// CriterionResult records pass/fail for one evaluated criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Decision is the full verdict with its criterion checklist.
type Decision struct {
	Verdict  Verdict
	Criteria []CriterionResult // configured criteria only, in fixed order
	Failed   []string          // names of failed criteria
	Metrics  *domain.RiskSnapshot
}

// Record derives the persistable form of a decision for a run.
func (d *Decision) Record(evaluatedAt int64) *domain.DecisionRecord {
	return &domain.DecisionRecord{
		RunID:          d.Metrics.RunID,
		Verdict:        string(d.Verdict),
		FailedCriteria: d.Failed,
		EvaluatedAt:    evaluatedAt,
	}
}
