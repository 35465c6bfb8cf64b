package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"trade-eval-lab/internal/reporting"
	chstore "trade-eval-lab/internal/storage/clickhouse"
	pgstore "trade-eval-lab/internal/storage/postgres"
	"trade-eval-lab/internal/verification"
)

func main() {
	// Parse flags
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (required)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (required with --verify)")
	startFlag := flag.String("start", "", "Range start, RFC3339 (default: 24h ago)")
	endFlag := flag.String("end", "", "Range end, RFC3339 (default: now)")
	format := flag.String("format", "markdown", "Output format: markdown, csv")
	outputPath := flag.String("output", "", "Output file; empty writes to stdout")
	verify := flag.Bool("verify", false, "Recompute each snapshot from its stored sample and report divergences")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	*format = strings.ToLower(*format)
	if *format != "markdown" && *format != "csv" {
		logger.Fatalf("Invalid format: %s. Must be markdown or csv", *format)
	}

	start, end, err := parseRange(*startFlag, *endFlag)
	if err != nil {
		logger.Fatalf("invalid time range: %v", err)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	runStore := pgstore.NewRunStore(pool)
	snapshotStore := pgstore.NewSnapshotStore(pool)
	decisionStore := pgstore.NewDecisionStore(pool)

	gen := reporting.NewGenerator(runStore, snapshotStore, decisionStore)

	logger.Printf("Generating report for %s .. %s",
		time.UnixMilli(start).Format(time.RFC3339), time.UnixMilli(end).Format(time.RFC3339))

	report, err := gen.Generate(ctx, start, end)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	var out string
	switch *format {
	case "markdown":
		out = reporting.RenderMarkdown(report)
	case "csv":
		out, err = reporting.RenderCSV(report.Rows)
		if err != nil {
			logger.Fatalf("render csv: %v", err)
		}
	}

	if *outputPath == "" {
		fmt.Print(out)
	} else {
		if err := os.WriteFile(*outputPath, []byte(out), 0644); err != nil {
			logger.Fatalf("write %s: %v", *outputPath, err)
		}
		logger.Printf("Report written to %s (%d runs, %d integrity errors)",
			*outputPath, report.RunCount, len(report.IntegrityErrors))
	}

	if len(report.IntegrityErrors) > 0 {
		logger.Printf("WARNING: %d integrity errors in range", len(report.IntegrityErrors))
	}

	if *verify {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required with --verify (pnl samples)")
		}
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		verifier := verification.NewSnapshotVerifier(verification.SnapshotVerifierOptions{
			RunStore:      runStore,
			SampleStore:   chstore.NewSampleStore(conn),
			SnapshotStore: snapshotStore,
		})

		vr, err := verifier.VerifyRange(ctx, start, end)
		if err != nil {
			logger.Fatalf("verify range: %v", err)
		}
		logger.Printf("Verification: %d/%d snapshots reproduced", vr.MatchedRuns, vr.TotalRuns)
		for _, result := range vr.Results {
			for _, d := range result.Divergences {
				logger.Printf("  run %s: %s stored=%v recomputed=%v",
					result.RunID, d.Field, d.Expected, d.Actual)
			}
		}
		if vr.DivergentRuns > 0 {
			os.Exit(1)
		}
	}
}

// parseRange resolves the report window to Unix milliseconds.
func parseRange(startFlag, endFlag string) (int64, int64, error) {
	now := time.Now()

	end := now
	if endFlag != "" {
		t, err := time.Parse(time.RFC3339, endFlag)
		if err != nil {
			return 0, 0, fmt.Errorf("parse --end: %w", err)
		}
		end = t
	}

	start := end.Add(-24 * time.Hour)
	if startFlag != "" {
		t, err := time.Parse(time.RFC3339, startFlag)
		if err != nil {
			return 0, 0, fmt.Errorf("parse --start: %w", err)
		}
		start = t
	}

	if !start.Before(end) {
		return 0, 0, fmt.Errorf("start %s is not before end %s", start, end)
	}
	return start.UnixMilli(), end.UnixMilli(), nil
}
