package decision

import (
	"fmt"

	"trade-eval-lab/internal/domain"
)

// Evaluator applies configured thresholds to a risk snapshot.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates a decision evaluator with the given thresholds.
func NewEvaluator(thresholds Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// EvaluateTrade produces the verdict for a risk snapshot.
// Every configured threshold is checked against its metric; failures
// are collected without short-circuiting so the decision carries the
// full failure list. Verdict is ACCEPT iff no configured criterion
// fails; with no thresholds configured every snapshot is accepted.
// A configured ratio threshold fails when the sample leaves that ratio
// undefined.
func (e *Evaluator) EvaluateTrade(snap *domain.RiskSnapshot) *Decision {
	var criteria []CriterionResult

	if t := e.thresholds.MinExpectedPnL; t != nil {
		criteria = append(criteria, CriterionResult{
			Name:      CriterionMinExpectedReturn,
			Threshold: fmt.Sprintf(">= %g", *t),
			Actual:    fmt.Sprintf("%g", snap.MeanPnL),
			Pass:      snap.MeanPnL >= *t,
		})
	}

	if t := e.thresholds.MaxCVaRLoss; t != nil {
		// CVaR is in PnL units; the threshold caps the loss magnitude.
		loss := -snap.CVaR
		criteria = append(criteria, CriterionResult{
			Name:      CriterionMaxCVaR,
			Threshold: fmt.Sprintf("loss <= %g", *t),
			Actual:    fmt.Sprintf("loss %g (CVaR %g at %g%%)", loss, snap.CVaR, snap.VaRConfidence*100),
			Pass:      loss <= *t,
		})
	}

	if t := e.thresholds.MinSharpe; t != nil {
		criteria = append(criteria, ratioCriterion(CriterionMinSharpe, *t, snap.Sharpe))
	}

	if t := e.thresholds.MinSortino; t != nil {
		criteria = append(criteria, ratioCriterion(CriterionMinSortino, *t, snap.Sortino))
	}

	if t := e.thresholds.MaxRuinProbability; t != nil {
		criteria = append(criteria, CriterionResult{
			Name:      CriterionMaxRuinProbability,
			Threshold: fmt.Sprintf("<= %g", *t),
			Actual:    fmt.Sprintf("%g", snap.ProbabilityOfRuin),
			Pass:      snap.ProbabilityOfRuin <= *t,
		})
	}

	var failed []string
	for _, c := range criteria {
		if !c.Pass {
			failed = append(failed, c.Name)
		}
	}

	verdict := VerdictAccept
	if len(failed) > 0 {
		verdict = VerdictReject
	}

	return &Decision{
		Verdict:  verdict,
		Criteria: criteria,
		Failed:   failed,
		Metrics:  snap,
	}
}

// ratioCriterion checks a floor on a possibly-undefined ratio.
func ratioCriterion(name string, floor float64, value *float64) CriterionResult {
	if value == nil {
		return CriterionResult{
			Name:      name,
			Threshold: fmt.Sprintf(">= %g", floor),
			Actual:    "undefined",
			Pass:      false,
		}
	}
	return CriterionResult{
		Name:      name,
		Threshold: fmt.Sprintf(">= %g", floor),
		Actual:    fmt.Sprintf("%g", *value),
		Pass:      *value >= floor,
	}
}
