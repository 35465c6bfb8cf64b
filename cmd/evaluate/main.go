package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"trade-eval-lab/internal/decision"
	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/metrics"
	"trade-eval-lab/internal/orchestrator"
	"trade-eval-lab/internal/storage"
	chstore "trade-eval-lab/internal/storage/clickhouse"
	"trade-eval-lab/internal/storage/memory"
	pgstore "trade-eval-lab/internal/storage/postgres"
)

// unset marks an optional float flag the user did not supply.
const unset = math.MaxFloat64

func main() {
	// Model
	modelType := flag.String("model", "", "Model: GBM, JUMP_DIFFUSION, REGIME_SWITCHING (required)")
	initialPrice := flag.Float64("initial-price", 100, "Initial underlying price")
	drift := flag.Float64("drift", 0.05, "Drift per unit time")
	volatility := flag.Float64("volatility", 0.2, "Volatility per sqrt unit time")
	dt := flag.Float64("dt", 1.0/252, "Timestep in the same time unit as drift")
	jumpIntensity := flag.Float64("jump-intensity", unset, "Jump arrivals per unit time (JUMP_DIFFUSION)")
	jumpMeanLog := flag.Float64("jump-mean-log", unset, "Mean of log jump size (JUMP_DIFFUSION)")
	jumpStddevLog := flag.Float64("jump-stddev-log", unset, "Stddev of log jump size (JUMP_DIFFUSION)")
	configPath := flag.String("config", "", "JSON request file; overrides model/strategy flags (required for REGIME_SWITCHING)")

	// Strategy
	strategyType := flag.String("strategy", "", "Strategy: SPOT, CALL, PUT, SPREAD, STRADDLE (required)")
	positionSize := flag.Float64("position-size", 1, "Position size; sign sets direction")
	entryPrice := flag.Float64("entry-price", 100, "Underlying price at entry")
	costRate := flag.Float64("cost-rate", 0, "Transaction cost rate on entry notional")
	strike := flag.Float64("strike", unset, "Option strike")
	upperStrike := flag.Float64("upper-strike", unset, "Short-leg strike (SPREAD)")
	premium := flag.Float64("premium", unset, "Premium per contract; omit to price with Black-Scholes")
	riskFreeRate := flag.Float64("risk-free-rate", unset, "Risk-free rate for Black-Scholes pricing")
	impliedVol := flag.Float64("implied-vol", unset, "Implied volatility for Black-Scholes pricing")
	expiryYears := flag.Float64("expiry-years", unset, "Years to expiry for Black-Scholes pricing")

	// Simulation
	trials := flag.Int("trials", 10000, "Number of Monte Carlo trials")
	horizon := flag.Int("horizon", 252, "Steps per price path")
	seedFlag := flag.String("seed", "", "PRNG seed (uint64); empty draws a random seed")
	workers := flag.Int("workers", 0, "Simulation workers; 0 uses GOMAXPROCS")

	// Risk metrics
	varConfidence := flag.Float64("var-confidence", 0.95, "VaR/CVaR confidence level")
	ruinThreshold := flag.Float64("ruin-threshold", 0, "PnL level at or below which a trial counts as ruin")
	sharpeScale := flag.Float64("sharpe-scale", 1, "Annualization factor for Sharpe/Sortino")
	downsideTarget := flag.Float64("downside-target", 0, "Target PnL for downside deviation")

	// Decision thresholds; each is active only when supplied
	minExpectedPnL := flag.Float64("min-expected-pnl", unset, "Reject when mean PnL is below this")
	maxCVaRLoss := flag.Float64("max-cvar-loss", unset, "Reject when CVaR loss magnitude exceeds this")
	minSharpe := flag.Float64("min-sharpe", unset, "Reject when Sharpe is below this")
	minSortino := flag.Float64("min-sortino", unset, "Reject when Sortino is below this")
	maxRuinProbability := flag.Float64("max-ruin-probability", unset, "Reject when ruin probability exceeds this")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	persist := flag.Bool("persist", false, "Persist the run, sample, snapshot, and decision")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	outputMarkdown := flag.Bool("markdown", false, "Output the decision report as Markdown")
	verbose := flag.Bool("verbose", false, "Verbose pipeline logging")

	flag.Parse()

	logger := log.New(os.Stderr, "[evaluate] ", log.LstdFlags)

	// Build the request from a config file or from flags
	var req orchestrator.EvaluationRequest
	if *configPath != "" {
		loaded, err := loadRequest(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		req = *loaded
	} else {
		if *modelType == "" {
			logger.Fatal("--model is required (or use --config)")
		}
		if *strategyType == "" {
			logger.Fatal("--strategy is required (or use --config)")
		}

		req = orchestrator.EvaluationRequest{
			Model: domain.ModelConfig{
				ModelType:     strings.ToUpper(*modelType),
				InitialPrice:  *initialPrice,
				Drift:         *drift,
				Volatility:    *volatility,
				Dt:            *dt,
				JumpIntensity: optFloat(*jumpIntensity),
				JumpMeanLog:   optFloat(*jumpMeanLog),
				JumpStddevLog: optFloat(*jumpStddevLog),
			},
			Strategy: domain.StrategyConfig{
				StrategyType:        strings.ToUpper(*strategyType),
				PositionSize:        *positionSize,
				EntryPrice:          *entryPrice,
				TransactionCostRate: *costRate,
				Strike:              optFloat(*strike),
				UpperStrike:         optFloat(*upperStrike),
				Premium:             optFloat(*premium),
				RiskFreeRate:        optFloat(*riskFreeRate),
				ImpliedVol:          optFloat(*impliedVol),
				ExpiryYears:         optFloat(*expiryYears),
			},
			Trials:  *trials,
			Horizon: *horizon,
		}
	}

	if *seedFlag != "" {
		seed, err := strconv.ParseUint(*seedFlag, 10, 64)
		if err != nil {
			logger.Fatalf("invalid --seed %q: %v", *seedFlag, err)
		}
		req.Seed = &seed
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores when persisting
	var (
		runStore      storage.RunStore
		sampleStore   storage.SampleStore
		snapshotStore storage.SnapshotStore
		decisionStore storage.DecisionStore
	)
	if *persist {
		if *postgresDSN == "" {
			// In-memory persistence still exercises the full pipeline
			// but is discarded on exit; warn so nobody relies on it.
			logger.Println("--persist without --postgres-dsn keeps results in memory only")
			runStore = memory.NewRunStore()
			sampleStore = memory.NewSampleStore()
			snapshotStore = memory.NewSnapshotStore()
			decisionStore = memory.NewDecisionStore()
		} else {
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()

			runStore = pgstore.NewRunStore(pool)
			snapshotStore = pgstore.NewSnapshotStore(pool)
			decisionStore = pgstore.NewDecisionStore(pool)

			if *clickhouseDSN != "" {
				conn, err := chstore.NewConn(ctx, *clickhouseDSN)
				if err != nil {
					logger.Fatalf("connect to clickhouse: %v", err)
				}
				defer conn.Close()
				sampleStore = chstore.NewSampleStore(conn)
			} else {
				logger.Println("--clickhouse-dsn not set, raw PnL sample will not be persisted")
			}
		}
	}

	orch := orchestrator.New(orchestrator.Options{
		RunStore:      runStore,
		SampleStore:   sampleStore,
		SnapshotStore: snapshotStore,
		DecisionStore: decisionStore,
		Thresholds: decision.Thresholds{
			MinExpectedPnL:     optFloat(*minExpectedPnL),
			MaxCVaRLoss:        optFloat(*maxCVaRLoss),
			MinSharpe:          optFloat(*minSharpe),
			MinSortino:         optFloat(*minSortino),
			MaxRuinProbability: optFloat(*maxRuinProbability),
		},
		MetricOpts: metrics.Options{
			VaRConfidence:  *varConfidence,
			RuinThreshold:  *ruinThreshold,
			SharpeScale:    *sharpeScale,
			DownsideTarget: *downsideTarget,
		},
		Workers: *workers,
		Verbose: *verbose,
	})

	logger.Printf("Evaluating: model=%s strategy=%s trials=%d horizon=%d",
		req.Model.ModelType, req.Strategy.StrategyType, req.Trials, req.Horizon)

	start := time.Now()
	eval, err := orch.Evaluate(ctx, req)
	if err != nil {
		logger.Fatalf("evaluation failed: %v", err)
	}
	logger.Printf("Completed in %v", time.Since(start))

	switch {
	case *outputJSON:
		out := struct {
			Snapshot *domain.RiskSnapshot `json:"snapshot"`
			Decision *decision.Decision   `json:"decision"`
		}{eval.Snapshot, eval.Decision}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
	case *outputMarkdown:
		fmt.Print(decision.RenderMarkdown(eval.Decision))
	default:
		printEvaluation(eval)
	}
}

// loadRequest reads a full evaluation request from a JSON file.
func loadRequest(path string) (*orchestrator.EvaluationRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req orchestrator.EvaluationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &req, nil
}

// optFloat converts an optional flag value to a pointer, nil when unset.
func optFloat(v float64) *float64 {
	if v == unset {
		return nil
	}
	return &v
}

// printEvaluation outputs a human-readable evaluation summary.
func printEvaluation(eval *orchestrator.Evaluation) {
	snap := eval.Snapshot
	dec := eval.Decision

	fmt.Println()
	fmt.Println("=== Trade Evaluation ===")
	fmt.Printf("Run ID:             %s\n", eval.Result.RunID)
	fmt.Printf("Model:              %s\n", eval.Result.ModelID)
	fmt.Printf("Strategy:           %s\n", eval.Result.StrategyID)
	fmt.Printf("Trials:             %d\n", snap.Trials)
	fmt.Printf("Seed:               %d\n", eval.Result.Config.Seed)
	fmt.Printf("Cost convention:    %s\n", eval.Result.CostNote)
	fmt.Println()

	fmt.Println("Distribution:")
	fmt.Printf("  Mean PnL:         %.4f\n", snap.MeanPnL)
	fmt.Printf("  Stddev:           %.4f\n", snap.Stddev)
	fmt.Printf("  Downside Dev:     %.4f (target %.2f)\n", snap.DownsideDeviation, snap.DownsideTarget)
	fmt.Printf("  Skewness:         %.4f\n", snap.Skewness)
	fmt.Printf("  Excess Kurtosis:  %.4f\n", snap.ExcessKurtosis)
	fmt.Printf("  Min / Max:        %.4f / %.4f\n", snap.MinPnL, snap.MaxPnL)
	fmt.Println()

	fmt.Println("Tail risk:")
	fmt.Printf("  VaR (%.0f%%):        %.4f\n", snap.VaRConfidence*100, snap.VaR)
	fmt.Printf("  CVaR (%.0f%%):       %.4f\n", snap.VaRConfidence*100, snap.CVaR)
	fmt.Printf("  P(ruin <= %.2f):  %.4f\n", snap.RuinThreshold, snap.ProbabilityOfRuin)
	fmt.Println()

	fmt.Println("Ratios:")
	printRatio("Sharpe", snap.Sharpe)
	printRatio("Sortino", snap.Sortino)
	if snap.LowConfidence {
		fmt.Println("  (low confidence: single-trial sample)")
	}
	fmt.Println()

	fmt.Printf("Verdict: %s\n", dec.Verdict)
	for _, c := range dec.Criteria {
		status := "PASS"
		if !c.Pass {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s (threshold %s, actual %s)\n", status, c.Name, c.Threshold, c.Actual)
	}
}

func printRatio(name string, v *float64) {
	if v == nil {
		fmt.Printf("  %-17s undefined\n", name+":")
		return
	}
	fmt.Printf("  %-17s %.4f\n", name+":", *v)
}
