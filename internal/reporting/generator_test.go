package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/storage/memory"
)

func f64(v float64) *float64 { return &v }

type reportFixture struct {
	runStore      *memory.RunStore
	snapshotStore *memory.SnapshotStore
	decisionStore *memory.DecisionStore
	gen           *Generator
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		runStore:      memory.NewRunStore(),
		snapshotStore: memory.NewSnapshotStore(),
		decisionStore: memory.NewDecisionStore(),
	}
	f.gen = NewGenerator(f.runStore, f.snapshotStore, f.decisionStore).
		WithClock(func() time.Time { return time.Unix(1700000000, 0).UTC() })
	return f
}

func sampleRun(runID string, completedAt int64) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:        runID,
		ModelID:      "model-" + runID,
		StrategyID:   "strategy-" + runID,
		ModelType:    domain.ModelTypeGBM,
		StrategyType: domain.StrategyTypeSpot,
		Trials:       1000,
		Horizon:      252,
		Seed:         42,
		CostNote:     "proportional cost on entry notional",
		StartedAt:    completedAt - 100,
		CompletedAt:  completedAt,
	}
}

func sampleSnapshot(runID string) *domain.RiskSnapshot {
	return &domain.RiskSnapshot{
		RunID:             runID,
		Trials:            1000,
		MeanPnL:           12.5,
		Stddev:            40.0,
		VaRConfidence:     0.95,
		VaR:               -55.0,
		CVaR:              -72.0,
		RuinThreshold:     -500,
		ProbabilityOfRuin: 0.003,
		SharpeScale:       1,
		Sharpe:            f64(0.3125),
		Sortino:           f64(0.48),
	}
}

func sampleDecision(runID, verdict string, failed []string) *domain.DecisionRecord {
	return &domain.DecisionRecord{
		RunID:          runID,
		Verdict:        verdict,
		FailedCriteria: failed,
		EvaluatedAt:    1000,
	}
}

// seedComplete inserts a run with its snapshot and decision.
func (f *reportFixture) seedComplete(t *testing.T, runID string, completedAt int64, verdict string, failed []string) {
	t.Helper()
	ctx := context.Background()
	if err := f.runStore.Insert(ctx, sampleRun(runID, completedAt)); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if err := f.snapshotStore.Insert(ctx, sampleSnapshot(runID)); err != nil {
		t.Fatalf("insert snapshot: %v", err)
	}
	if err := f.decisionStore.Insert(ctx, sampleDecision(runID, verdict, failed)); err != nil {
		t.Fatalf("insert decision: %v", err)
	}
}

func TestGenerate_EmptyRange(t *testing.T) {
	f := newReportFixture()

	report, err := f.gen.Generate(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.RunCount != 0 || len(report.Rows) != 0 {
		t.Errorf("expected empty report, got %d runs", report.RunCount)
	}
	if !report.GeneratedAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Errorf("GeneratedAt = %v, want injected clock value", report.GeneratedAt)
	}
}

func TestGenerate_JoinsRunsSnapshotsDecisions(t *testing.T) {
	f := newReportFixture()
	f.seedComplete(t, "run-a", 100, "ACCEPT", nil)
	f.seedComplete(t, "run-b", 200, "REJECT", []string{"max_cvar_at_confidence"})

	report, err := f.gen.Generate(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.RunCount != 2 {
		t.Fatalf("RunCount = %d, want 2", report.RunCount)
	}
	if report.AcceptedCount != 1 || report.RejectedCount != 1 {
		t.Errorf("accepted/rejected = %d/%d, want 1/1", report.AcceptedCount, report.RejectedCount)
	}
	if len(report.IntegrityErrors) != 0 {
		t.Errorf("unexpected integrity errors: %v", report.IntegrityErrors)
	}

	// Rows follow the store's completed_at ordering.
	if report.Rows[0].RunID != "run-a" || report.Rows[1].RunID != "run-b" {
		t.Errorf("row order = [%s, %s], want [run-a, run-b]", report.Rows[0].RunID, report.Rows[1].RunID)
	}

	row := report.Rows[1]
	if row.Verdict != "REJECT" {
		t.Errorf("verdict = %s, want REJECT", row.Verdict)
	}
	if len(row.FailedCriteria) != 1 || row.FailedCriteria[0] != "max_cvar_at_confidence" {
		t.Errorf("failed criteria = %v", row.FailedCriteria)
	}
	if row.VaR != -55.0 || row.CVaR != -72.0 {
		t.Errorf("tail metrics not carried: VaR=%v CVaR=%v", row.VaR, row.CVaR)
	}
	if row.Sharpe == nil || *row.Sharpe != 0.3125 {
		t.Errorf("sharpe not carried: %v", row.Sharpe)
	}
}

func TestGenerate_TimeRangeFilters(t *testing.T) {
	f := newReportFixture()
	f.seedComplete(t, "run-early", 100, "ACCEPT", nil)
	f.seedComplete(t, "run-late", 900, "ACCEPT", nil)

	report, err := f.gen.Generate(context.Background(), 500, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.RunCount != 1 || report.Rows[0].RunID != "run-late" {
		t.Fatalf("expected only run-late, got %d rows", len(report.Rows))
	}
}

func TestGenerate_MissingSnapshotAndDecisionAreIntegrityErrors(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	// Run with neither snapshot nor decision persisted.
	if err := f.runStore.Insert(ctx, sampleRun("run-orphan", 100)); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	report, err := f.gen.Generate(ctx, 0, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.RunCount != 1 || len(report.Rows) != 1 {
		t.Fatalf("expected one row, got %d", len(report.Rows))
	}
	if len(report.IntegrityErrors) != 2 {
		t.Fatalf("integrity errors = %v, want 2 entries", report.IntegrityErrors)
	}
	for _, msg := range report.IntegrityErrors {
		if !strings.Contains(msg, "run-orphan") {
			t.Errorf("integrity error does not name the run: %q", msg)
		}
	}
}

func TestRenderMarkdown_Sections(t *testing.T) {
	f := newReportFixture()
	f.seedComplete(t, "run-markdown-check", 100, "REJECT", []string{"min_sharpe"})

	report, err := f.gen.Generate(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Evaluation Report",
		"## Summary",
		"| Rejected | 1 |",
		"## Evaluations",
		"run-markdown", // truncated run ID
		"REJECT",
		"## Failed Criteria",
		"min_sharpe",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "## Integrity Errors") {
		t.Error("unexpected integrity section in clean report")
	}
}

func TestRenderCSV_RoundsTrips(t *testing.T) {
	rows := []EvaluationRow{
		{
			RunID:        "run-csv",
			ModelType:    domain.ModelTypeGBM,
			StrategyType: domain.StrategyTypeSpot,
			Trials:       1000,
			Horizon:      252,
			Seed:         42,
			CompletedAt:  100,
			MeanPnL:      12.5,
			VaR:          -55,
			CVaR:         -72,
			Sharpe:       f64(0.3125),
			Verdict:      "ACCEPT",
		},
		{
			RunID:          "run-csv-2",
			Verdict:        "REJECT",
			FailedCriteria: []string{"min_sharpe", "min_sortino"},
		},
	}

	out, err := RenderCSV(rows)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv has %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "run_id,model_type") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "0.312500") {
		t.Errorf("sharpe not formatted in row: %q", lines[1])
	}
	// Undefined ratios render as empty cells.
	if !strings.Contains(lines[2], ",,") {
		t.Errorf("empty ratio cells missing: %q", lines[2])
	}
	if !strings.Contains(lines[2], "min_sharpe;min_sortino") {
		t.Errorf("failed criteria not joined: %q", lines[2])
	}
}

func TestRenderCSV_EmptyRows(t *testing.T) {
	out, err := RenderCSV(nil)
	if err != nil {
		t.Fatalf("RenderCSV failed: %v", err)
	}
	if got := strings.Count(out, "\n"); got != 1 {
		t.Errorf("expected header only, got %d lines: %s", got, out)
	}
}
