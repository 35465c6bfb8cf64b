package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// RenderCSV renders report rows as a CSV string.
func RenderCSV(rows []EvaluationRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := []string{
		"run_id", "model_type", "strategy_type", "trials", "horizon", "seed", "completed_at",
		"mean_pnl", "stddev", "var", "cvar", "var_confidence", "probability_of_ruin",
		"sharpe", "sortino", "low_confidence", "verdict", "failed_criteria",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			r.RunID,
			r.ModelType,
			r.StrategyType,
			strconv.Itoa(r.Trials),
			strconv.Itoa(r.Horizon),
			strconv.FormatUint(r.Seed, 10),
			strconv.FormatInt(r.CompletedAt, 10),
			formatFloat(r.MeanPnL),
			formatFloat(r.Stddev),
			formatFloat(r.VaR),
			formatFloat(r.CVaR),
			formatFloat(r.VaRConfidence),
			formatFloat(r.ProbabilityOfRuin),
			formatRatio(r.Sharpe),
			formatRatio(r.Sortino),
			strconv.FormatBool(r.LowConfidence),
			r.Verdict,
			strings.Join(r.FailedCriteria, ";"),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatRatio(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
