package simulation

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"trade-eval-lab/internal/domain"
)

func u64(v uint64) *uint64 { return &v }

func gbmOpts(trials, horizon, workers int, seed uint64) RunOptions {
	return RunOptions{
		Model: domain.ModelConfig{
			ModelType:    domain.ModelTypeGBM,
			InitialPrice: 100,
			Drift:        0.05,
			Volatility:   0.2,
			Dt:           1.0 / 252,
		},
		Strategy: domain.StrategyConfig{
			StrategyType: domain.StrategyTypeSpot,
			PositionSize: 1,
			EntryPrice:   100,
		},
		Trials:  trials,
		Horizon: horizon,
		Seed:    u64(seed),
		Workers: workers,
	}
}

func TestRun_SampleShape(t *testing.T) {
	r := NewRunner(RunnerOptions{})
	res, err := r.Run(context.Background(), gbmOpts(100, 252, 4, 42))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.PnL) != 100 {
		t.Fatalf("len(PnL) = %d, want 100", len(res.PnL))
	}
	if res.RunID == "" {
		t.Fatal("empty run ID")
	}
	if res.Config.Seed != 42 {
		t.Fatalf("recorded seed = %d, want 42", res.Config.Seed)
	}
	for i, v := range res.PnL {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite PnL %v at trial %d", v, i)
		}
	}
}

func TestRun_DeterministicGivenSeed(t *testing.T) {
	r := NewRunner(RunnerOptions{})

	a, err := r.Run(context.Background(), gbmOpts(500, 50, 4, 42))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	b, err := r.Run(context.Background(), gbmOpts(500, 50, 4, 42))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if a.RunID != b.RunID {
		t.Fatalf("run IDs differ: %s vs %s", a.RunID, b.RunID)
	}
	for i := range a.PnL {
		if a.PnL[i] != b.PnL[i] {
			t.Fatalf("PnL diverged at trial %d: %v vs %v", i, a.PnL[i], b.PnL[i])
		}
	}
}

func TestRun_WorkerCountDoesNotChangeResults(t *testing.T) {
	r := NewRunner(RunnerOptions{})

	serial, err := r.Run(context.Background(), gbmOpts(500, 50, 1, 7))
	if err != nil {
		t.Fatalf("serial run failed: %v", err)
	}
	parallel, err := r.Run(context.Background(), gbmOpts(500, 50, 8, 7))
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	for i := range serial.PnL {
		if serial.PnL[i] != parallel.PnL[i] {
			t.Fatalf("trial %d differs across worker counts: %v vs %v", i, serial.PnL[i], parallel.PnL[i])
		}
	}
}

func TestRun_MeanPnLConvergesToGBMExpectation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence test in short mode")
	}
	r := NewRunner(RunnerOptions{})

	opts := gbmOpts(20000, 252, 8, 99)
	res, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var sum float64
	for _, v := range res.PnL {
		sum += v
	}
	mean := sum / float64(len(res.PnL))

	// E[S_T] = S0 * exp(mu * T) with T = 252 * dt = 1y, so the spot
	// PnL expectation is 100*(e^0.05 - 1) ~ 5.13. The sample stddev is
	// about 21, so 20000 trials put the standard error near 0.15.
	want := 100 * (math.Exp(0.05) - 1)
	if math.Abs(mean-want) > 1.0 {
		t.Fatalf("mean PnL = %v, want %v within 1.0", mean, want)
	}
}

func TestRun_ReferenceScenario(t *testing.T) {
	// GBM S0=100 mu=0.05 sigma=0.2 dt=1/252, 20 steps, spot size 1000,
	// 10000 trials, seed 42.
	r := NewRunner(RunnerOptions{})
	opts := gbmOpts(10000, 20, 4, 42)
	opts.Strategy.PositionSize = 1000

	first, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	for i := range first.PnL {
		if first.PnL[i] != second.PnL[i] {
			t.Fatalf("PnL diverged at trial %d: %v vs %v", i, first.PnL[i], second.PnL[i])
		}
	}

	var sum float64
	for _, v := range first.PnL {
		sum += v
	}
	mean := sum / float64(len(first.PnL))

	// Expected PnL is 1000*100*(exp(0.05*20/252)-1) ~ 397.6; the
	// per-trial stddev is near 5600, so 10000 trials put the standard
	// error around 56.
	want := 1000 * 100 * (math.Exp(0.05*20.0/252.0) - 1)
	if math.Abs(mean-want) > 200 {
		t.Fatalf("mean PnL = %v, want %v within 200", mean, want)
	}
}

func TestRun_FailsFastOnBadInputs(t *testing.T) {
	r := NewRunner(RunnerOptions{})

	_, err := r.Run(context.Background(), gbmOpts(0, 252, 1, 1))
	if !errors.Is(err, ErrTooFewTrials) {
		t.Fatalf("trials=0 error = %v, want ErrTooFewTrials", err)
	}

	_, err = r.Run(context.Background(), gbmOpts(100, 0, 1, 1))
	if !errors.Is(err, ErrInvalidHorizon) {
		t.Fatalf("horizon=0 error = %v, want ErrInvalidHorizon", err)
	}

	bad := gbmOpts(100, 252, 1, 1)
	bad.Model.Volatility = -0.2
	_, err = r.Run(context.Background(), bad)
	if !errors.Is(err, domain.ErrNonPositiveVolatility) {
		t.Fatalf("bad volatility error = %v, want ErrNonPositiveVolatility", err)
	}
}

func TestRun_CancelledContextAborts(t *testing.T) {
	r := NewRunner(RunnerOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, gbmOpts(1000, 252, 4, 1))
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("error = %v, want ErrAborted", err)
	}
}

func TestRun_NumericalErrorIdentifiesTrial(t *testing.T) {
	r := NewRunner(RunnerOptions{})

	opts := gbmOpts(10, 252, 1, 1)
	opts.Model.Volatility = 1e155 // squares to +Inf, collapsing every path

	_, err := r.Run(context.Background(), opts)
	var ne *NumericalError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %v, want NumericalError", err)
	}
	if ne.Trial != 0 {
		t.Fatalf("Trial = %d, want 0 with a single worker", ne.Trial)
	}
}

func TestRun_ProgressReachesTotal(t *testing.T) {
	var calls, last atomic.Int64
	r := NewRunner(RunnerOptions{
		Progress: func(completed, total int) {
			calls.Add(1)
			if completed == total {
				last.Store(int64(completed))
			}
		},
	})

	_, err := r.Run(context.Background(), gbmOpts(50, 20, 1, 3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls.Load() != 50 {
		t.Fatalf("progress calls = %d, want 50", calls.Load())
	}
	if last.Load() != 50 {
		t.Fatalf("final progress = %d, want 50", last.Load())
	}
}
