package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Evaluation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Range: %d .. %d (ms)\n\n", r.RangeStart, r.RangeEnd))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Runs | %d |\n", r.RunCount))
	sb.WriteString(fmt.Sprintf("| Accepted | %d |\n", r.AcceptedCount))
	sb.WriteString(fmt.Sprintf("| Rejected | %d |\n", r.RejectedCount))
	sb.WriteString("\n")

	if len(r.Rows) > 0 {
		sb.WriteString("## Evaluations\n\n")
		sb.WriteString("| Run | Model | Strategy | Trials | Mean PnL | Stddev | VaR | CVaR | P(ruin) | Sharpe | Sortino | Verdict |\n")
		sb.WriteString("|-----|-------|----------|--------|----------|--------|-----|------|---------|--------|---------|--------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %s | %s | %s |\n",
				shortRunID(row.RunID),
				row.ModelType,
				row.StrategyType,
				row.Trials,
				row.MeanPnL,
				row.Stddev,
				row.VaR,
				row.CVaR,
				row.ProbabilityOfRuin,
				ratioCell(row.Sharpe),
				ratioCell(row.Sortino),
				row.Verdict,
			))
		}
		sb.WriteString("\n")
	}

	failures := false
	for _, row := range r.Rows {
		if len(row.FailedCriteria) > 0 {
			if !failures {
				sb.WriteString("## Failed Criteria\n\n")
				failures = true
			}
			sb.WriteString(fmt.Sprintf("- %s: %s\n", shortRunID(row.RunID), strings.Join(row.FailedCriteria, ", ")))
		}
	}
	if failures {
		sb.WriteString("\n")
	}

	if len(r.IntegrityErrors) > 0 {
		sb.WriteString("## Integrity Errors\n\n")
		for _, e := range r.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// ratioCell formats a possibly-undefined ratio for a table cell.
func ratioCell(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

// shortRunID truncates a run ID for table readability.
func shortRunID(runID string) string {
	if len(runID) <= 12 {
		return runID
	}
	return runID[:12]
}
