package domain

import (
	"errors"
	"fmt"
	"math"
)

// Model type constants
const (
	ModelTypeGBM             = "GBM"
	ModelTypeJumpDiffusion   = "JUMP_DIFFUSION"
	ModelTypeRegimeSwitching = "REGIME_SWITCHING"
)

// Model configuration errors
var (
	ErrUnknownModelType      = errors.New("unknown model type")
	ErrNonPositivePrice      = errors.New("initial price must be positive")
	ErrNonPositiveVolatility = errors.New("volatility must be positive")
	ErrNonPositiveDt         = errors.New("timestep dt must be positive")
	ErrMissingJumpIntensity  = errors.New("JUMP_DIFFUSION requires JumpIntensity")
	ErrMissingJumpMeanLog    = errors.New("JUMP_DIFFUSION requires JumpMeanLog")
	ErrMissingJumpStddevLog  = errors.New("JUMP_DIFFUSION requires JumpStddevLog")
	ErrNegativeJumpIntensity = errors.New("jump intensity must not be negative")
	ErrNegativeJumpStddev    = errors.New("jump size log-stddev must not be negative")
	ErrJumpProbabilityTooBig = errors.New("jump intensity times dt must not exceed 1")
	ErrNoRegimes             = errors.New("REGIME_SWITCHING requires at least one regime")
	ErrBadTransitionMatrix   = errors.New("transition matrix must be square with rows summing to 1")
	ErrBadInitialRegime      = errors.New("initial regime index out of range")
)

// transitionRowTolerance is the allowed deviation of a transition matrix
// row sum from 1.
const transitionRowTolerance = 1e-9

// RegimeParams holds the drift and volatility of one discrete market regime.
type RegimeParams struct {
	Drift      float64
	Volatility float64
}

// ModelConfig is the immutable parameter set of a stochastic price model.
// It is constructed once per evaluation and shared read-only across all
// concurrent trials. Optional, model-specific parameters are pointers;
// nil means "not supplied".
type ModelConfig struct {
	ModelType    string // GBM | JUMP_DIFFUSION | REGIME_SWITCHING
	InitialPrice float64
	Drift        float64 // per unit time (ignored for REGIME_SWITCHING)
	Volatility   float64 // per sqrt unit time (ignored for REGIME_SWITCHING)
	Dt           float64 // timestep in the same time unit as Drift

	// JUMP_DIFFUSION parameters: jumps arrive with probability
	// JumpIntensity*Dt per step (Poisson thinning) and multiply the price
	// by a log-normal factor exp(N(JumpMeanLog, JumpStddevLog^2)).
	JumpIntensity *float64
	JumpMeanLog   *float64
	JumpStddevLog *float64

	// REGIME_SWITCHING parameters. Transition[i][j] is the per-step
	// probability of moving from regime i to regime j; each row must sum
	// to 1. InitialRegime nil means the start regime is drawn uniformly.
	Regimes       []RegimeParams
	Transition    [][]float64
	InitialRegime *int
}

// Validate checks the configuration invariants. All violations are
// configuration errors surfaced before any simulation work begins.
func (c ModelConfig) Validate() error {
	if c.InitialPrice <= 0 || math.IsNaN(c.InitialPrice) || math.IsInf(c.InitialPrice, 0) {
		return ErrNonPositivePrice
	}
	if c.Dt <= 0 || math.IsNaN(c.Dt) || math.IsInf(c.Dt, 0) {
		return ErrNonPositiveDt
	}

	switch c.ModelType {
	case ModelTypeGBM:
		return c.validateDiffusion()
	case ModelTypeJumpDiffusion:
		if err := c.validateDiffusion(); err != nil {
			return err
		}
		return c.validateJump()
	case ModelTypeRegimeSwitching:
		return c.validateRegimes()
	default:
		return ErrUnknownModelType
	}
}

func (c ModelConfig) validateDiffusion() error {
	if c.Volatility <= 0 || math.IsNaN(c.Volatility) || math.IsInf(c.Volatility, 0) {
		return ErrNonPositiveVolatility
	}
	return nil
}

func (c ModelConfig) validateJump() error {
	if c.JumpIntensity == nil {
		return ErrMissingJumpIntensity
	}
	if c.JumpMeanLog == nil {
		return ErrMissingJumpMeanLog
	}
	if c.JumpStddevLog == nil {
		return ErrMissingJumpStddevLog
	}
	if *c.JumpIntensity < 0 {
		return ErrNegativeJumpIntensity
	}
	if *c.JumpStddevLog < 0 {
		return ErrNegativeJumpStddev
	}
	if *c.JumpIntensity*c.Dt > 1 {
		return ErrJumpProbabilityTooBig
	}
	return nil
}

func (c ModelConfig) validateRegimes() error {
	n := len(c.Regimes)
	if n == 0 {
		return ErrNoRegimes
	}
	for _, r := range c.Regimes {
		if r.Volatility <= 0 || math.IsNaN(r.Volatility) || math.IsInf(r.Volatility, 0) {
			return ErrNonPositiveVolatility
		}
	}
	if len(c.Transition) != n {
		return ErrBadTransitionMatrix
	}
	for _, row := range c.Transition {
		if len(row) != n {
			return ErrBadTransitionMatrix
		}
		sum := 0.0
		for _, p := range row {
			if p < 0 || p > 1 || math.IsNaN(p) {
				return ErrBadTransitionMatrix
			}
			sum += p
		}
		if math.Abs(sum-1) > transitionRowTolerance {
			return ErrBadTransitionMatrix
		}
	}
	if c.InitialRegime != nil && (*c.InitialRegime < 0 || *c.InitialRegime >= n) {
		return ErrBadInitialRegime
	}
	return nil
}

// ID returns the model identifier including parameters.
func (c ModelConfig) ID() string {
	switch c.ModelType {
	case ModelTypeGBM:
		return fmt.Sprintf("GBM_s0=%g_mu=%g_sigma=%g_dt=%g",
			c.InitialPrice, c.Drift, c.Volatility, c.Dt)
	case ModelTypeJumpDiffusion:
		lambda, meanLog, stddevLog := 0.0, 0.0, 0.0
		if c.JumpIntensity != nil {
			lambda = *c.JumpIntensity
		}
		if c.JumpMeanLog != nil {
			meanLog = *c.JumpMeanLog
		}
		if c.JumpStddevLog != nil {
			stddevLog = *c.JumpStddevLog
		}
		return fmt.Sprintf("JUMP_s0=%g_mu=%g_sigma=%g_dt=%g_lambda=%g_jmu=%g_jsigma=%g",
			c.InitialPrice, c.Drift, c.Volatility, c.Dt, lambda, meanLog, stddevLog)
	case ModelTypeRegimeSwitching:
		id := fmt.Sprintf("REGIME_s0=%g_dt=%g", c.InitialPrice, c.Dt)
		for _, r := range c.Regimes {
			id += fmt.Sprintf("_%g:%g", r.Drift, r.Volatility)
		}
		return id
	default:
		return "UNKNOWN"
	}
}
