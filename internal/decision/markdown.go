package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a Decision as a Markdown string.
func RenderMarkdown(d *Decision) string {
	var sb strings.Builder

	sb.WriteString("# Trade Decision Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", d.Metrics.RunID))
	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", d.Verdict))

	if len(d.Criteria) == 0 {
		sb.WriteString("No decision thresholds configured; every run is accepted.\n")
		return sb.String()
	}

	sb.WriteString("## Criteria\n\n")
	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	for i, c := range d.Criteria {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")

	passed := 0
	for _, c := range d.Criteria {
		if c.Pass {
			passed++
		}
	}
	sb.WriteString(fmt.Sprintf("Criteria: %d/%d passed\n\n", passed, len(d.Criteria)))

	sb.WriteString("## Summary\n\n")
	if d.Verdict == VerdictAccept {
		sb.WriteString("All configured criteria passed.\n")
	} else {
		sb.WriteString("Rejected due to:\n")
		for _, c := range d.Criteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- %s (threshold %s, actual %s)\n", c.Name, c.Threshold, c.Actual))
			}
		}
	}

	return sb.String()
}
