// Package orchestrator coordinates the evaluation pipeline:
// simulation → risk metrics → decision, with optional persistence.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"trade-eval-lab/internal/decision"
	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/metrics"
	"trade-eval-lab/internal/observability"
	"trade-eval-lab/internal/simulation"
	"trade-eval-lab/internal/storage"
)

// Orchestrator runs the full evaluation pipeline for one trade.
type Orchestrator struct {
	// Stores. Any nil store skips that persistence step.
	runStore      storage.RunStore
	sampleStore   storage.SampleStore
	snapshotStore storage.SnapshotStore
	decisionStore storage.DecisionStore

	thresholds decision.Thresholds
	metricOpts metrics.Options
	workers    int
	progress   func(completed, total int)
	verbose    bool
}

// Options for creating an Orchestrator.
type Options struct {
	// Optional stores; evaluation runs in-memory-only when nil.
	RunStore      storage.RunStore
	SampleStore   storage.SampleStore
	SnapshotStore storage.SnapshotStore
	DecisionStore storage.DecisionStore

	Thresholds decision.Thresholds
	MetricOpts metrics.Options

	// Workers for the simulation runner; <= 0 means GOMAXPROCS.
	Workers int

	// Progress, if set, receives per-trial completion updates.
	Progress func(completed, total int)

	Verbose bool
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		runStore:      opts.RunStore,
		sampleStore:   opts.SampleStore,
		snapshotStore: opts.SnapshotStore,
		decisionStore: opts.DecisionStore,
		thresholds:    opts.Thresholds,
		metricOpts:    opts.MetricOpts,
		workers:       opts.Workers,
		progress:      opts.Progress,
		verbose:       opts.Verbose,
	}
}

// EvaluationRequest describes one trade to evaluate.
type EvaluationRequest struct {
	Model    domain.ModelConfig
	Strategy domain.StrategyConfig
	Trials   int
	Horizon  int
	Seed     *uint64
}

// Evaluation is the full pipeline output for one request.
type Evaluation struct {
	Result   *domain.SimulationResult
	Snapshot *domain.RiskSnapshot
	Decision *decision.Decision
}

// Evaluate executes the pipeline for one request.
// Phases:
//  1. Simulate the PnL sample
//  2. Persist the run summary and the raw sample
//  3. Compute the risk snapshot and persist it
//  4. Evaluate the decision thresholds and persist the verdict
//
// A failed simulation returns its error unwrapped so callers can match
// the simulation sentinel errors. Persistence failures abort the
// pipeline; a duplicate run key means this exact configuration was
// already evaluated and is reported as such.
func (o *Orchestrator) Evaluate(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	// Phase 1: simulation
	o.log("Phase 1: Simulating %d trials over %d steps...", req.Trials, req.Horizon)
	runner := simulation.NewRunner(simulation.RunnerOptions{Progress: o.progress})

	simStart := time.Now()
	result, err := runner.Run(ctx, simulation.RunOptions{
		Model:    req.Model,
		Strategy: req.Strategy,
		Trials:   req.Trials,
		Horizon:  req.Horizon,
		Seed:     req.Seed,
		Workers:  o.workers,
	})
	if err != nil {
		observability.RecordSimulationRun("error", 0, time.Since(simStart).Seconds())
		return nil, err
	}
	observability.RecordSimulationRun("ok", req.Trials, time.Since(simStart).Seconds())
	o.log("  Run %s completed", result.RunID)

	// Phase 2: persist run and sample
	if o.runStore != nil {
		if err := o.insertRun(ctx, result); err != nil {
			return nil, err
		}
	}

	// Phase 3: risk metrics
	snapshot, err := metrics.Compute(result, o.metricOpts)
	if err != nil {
		return nil, fmt.Errorf("compute risk metrics: %w", err)
	}
	observability.RecordSnapshotComputed()
	if o.snapshotStore != nil {
		start := time.Now()
		err := o.snapshotStore.Insert(ctx, snapshot)
		observability.RecordDBQuery("postgres", "insert_snapshot", time.Since(start).Seconds(), err)
		if err != nil {
			return nil, fmt.Errorf("persist risk snapshot: %w", err)
		}
	}
	o.log("  Snapshot: mean=%.4f stddev=%.4f VaR=%.4f CVaR=%.4f",
		snapshot.MeanPnL, snapshot.Stddev, snapshot.VaR, snapshot.CVaR)

	// Phase 4: decision
	verdict := decision.NewEvaluator(o.thresholds).EvaluateTrade(snapshot)
	observability.RecordDecision(string(verdict.Verdict))
	if o.decisionStore != nil {
		record := verdict.Record(time.Now().UnixMilli())
		start := time.Now()
		err := o.decisionStore.Insert(ctx, record)
		observability.RecordDBQuery("postgres", "insert_decision", time.Since(start).Seconds(), err)
		if err != nil {
			return nil, fmt.Errorf("persist decision: %w", err)
		}
	}
	o.log("  Verdict: %s (failed: %v)", verdict.Verdict, verdict.Failed)

	observability.RecordEvaluationSuccess(time.Now().Unix())

	return &Evaluation{
		Result:   result,
		Snapshot: snapshot,
		Decision: verdict,
	}, nil
}

func (o *Orchestrator) insertRun(ctx context.Context, result *domain.SimulationResult) error {
	start := time.Now()
	err := o.runStore.Insert(ctx, result.Record())
	observability.RecordDBQuery("postgres", "insert_run", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("persist run %s: %w", result.RunID, err)
	}

	if o.sampleStore != nil {
		start := time.Now()
		err := o.sampleStore.InsertBulk(ctx, result.Points())
		observability.RecordDBQuery("clickhouse", "insert_samples", time.Since(start).Seconds(), err)
		if err != nil {
			return fmt.Errorf("persist sample for run %s: %w", result.RunID, err)
		}
	}
	return nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
