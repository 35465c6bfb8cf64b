package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/idhash"
	"trade-eval-lab/internal/model"
	"trade-eval-lab/internal/strategy"
)

// Runner executes Monte Carlo evaluations of a trade.
type Runner struct {
	progress func(completed, total int)
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	// Progress, if set, is called after each completed trial with the
	// number of finished trials and the total. Calls may come from any
	// worker goroutine.
	Progress func(completed, total int)
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{progress: opts.Progress}
}

// RunOptions describes one simulation run.
type RunOptions struct {
	Model    domain.ModelConfig
	Strategy domain.StrategyConfig
	Trials   int
	Horizon  int
	// Seed pins the run's base seed for reproducibility. When nil a
	// random seed is drawn and recorded in the result config.
	Seed    *uint64
	Workers int // <= 0 means GOMAXPROCS
}

// Run executes a full Monte Carlo evaluation.
// Steps:
//  1. Validate trial count and horizon, fail fast before any work
//  2. Build the price model and payoff via their factories
//  3. Distribute trials over workers; each trial draws its own RNG
//     stream keyed by (seed, trial index) so results do not depend on
//     the worker count
//  4. Collect PnL samples into an index-addressed buffer
//
// Cancellation is cooperative between trials: a cancelled context
// yields ErrAborted and no partial result. A degenerate price in any
// trial fails the run with a NumericalError naming the lowest failing
// trial index.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*domain.SimulationResult, error) {
	if opts.Trials < 1 {
		return nil, ErrTooFewTrials
	}
	if opts.Horizon < 1 {
		return nil, ErrInvalidHorizon
	}

	priceModel, err := model.FromConfig(opts.Model)
	if err != nil {
		return nil, err
	}
	payoff, err := strategy.FromConfig(opts.Strategy)
	if err != nil {
		return nil, err
	}

	seed := resolveSeed(opts.Seed)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > opts.Trials {
		workers = opts.Trials
	}

	startedAt := time.Now().UnixMilli()
	pnl := make([]float64, opts.Trials)

	var (
		next      atomic.Int64
		completed atomic.Int64
		wg        sync.WaitGroup
		mu        sync.Mutex
		runErr    error
	)

	// recordErr keeps the error from the lowest trial index so the
	// failure reported is deterministic across schedules.
	recordErr := func(trial int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if runErr == nil {
			runErr = err
			return
		}
		var have, got *NumericalError
		haveNumerical := errors.As(runErr, &have)
		gotNumerical := errors.As(err, &got)
		switch {
		case gotNumerical && !haveNumerical:
			runErr = err
		case gotNumerical && haveNumerical && got.Trial < have.Trial:
			runErr = err
		}
	}

	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runErr != nil
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= opts.Trials {
					return
				}
				if failed() {
					return
				}
				select {
				case <-ctx.Done():
					recordErr(i, ErrAborted)
					return
				default:
				}

				// Per-trial stream keyed by trial index: the draw
				// sequence of trial i never depends on scheduling.
				rng := rand.New(rand.NewPCG(seed, uint64(i)))
				path, err := GeneratePath(priceModel, opts.Horizon, rng)
				if err != nil {
					var ne *NumericalError
					if errors.As(err, &ne) {
						ne.Trial = i
					}
					recordErr(i, err)
					return
				}

				v := payoff.Evaluate(path)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					recordErr(i, &NumericalError{Trial: i, Step: opts.Horizon, Price: path.Terminal()})
					return
				}
				pnl[i] = v

				done := int(completed.Add(1))
				if r.progress != nil {
					r.progress(done, opts.Trials)
				}
			}
		}()
	}
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}

	modelID := priceModel.ID()
	strategyID := payoff.ID()
	cfg := domain.SimulationConfig{
		Model:    opts.Model,
		Strategy: opts.Strategy,
		Trials:   opts.Trials,
		Horizon:  opts.Horizon,
		Seed:     seed,
	}

	return &domain.SimulationResult{
		RunID:       idhash.ComputeRunID(modelID, strategyID, opts.Trials, opts.Horizon, seed),
		ModelID:     modelID,
		StrategyID:  strategyID,
		Config:      cfg,
		PnL:         pnl,
		CostNote:    strategy.CostNote,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UnixMilli(),
	}, nil
}

func resolveSeed(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}
