// Package model implements the stochastic price models consumed by the
// path generator: GBM, jump-diffusion and regime-switching. The variant
// set is small and fixed, so models are a closed set of types behind a
// shared step capability built by FromConfig.
package model

import (
	"math"
	"math/rand/v2"

	"trade-eval-lab/internal/domain"
)

// Model defines the per-step transition law of a price process.
// A Model is immutable and safe to share across concurrent trials.
type Model interface {
	// InitialPrice returns the starting price of every path.
	InitialPrice() float64

	// Begin returns a fresh stepper for one path, drawing only from rng.
	// Steppers carry per-path state and are not safe for concurrent use;
	// every trial must call Begin with its own random stream.
	Begin(rng *rand.Rand) Stepper

	// ID returns the model identifier including parameters.
	ID() string
}

// Stepper advances a single path one timestep at a time.
type Stepper interface {
	// Next returns the next price given the previous one.
	Next(prev float64) float64
}

// FromConfig creates a Model from domain.ModelConfig.
// Validates the configuration per model type; all violations surface
// before any simulation work begins.
func FromConfig(cfg domain.ModelConfig) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.ModelType {
	case domain.ModelTypeGBM:
		return newGBM(cfg), nil
	case domain.ModelTypeJumpDiffusion:
		return newJumpDiffusion(cfg), nil
	case domain.ModelTypeRegimeSwitching:
		return newRegimeSwitching(cfg), nil
	default:
		return nil, domain.ErrUnknownModelType
	}
}

// diffuse applies one geometric Brownian step:
// prev * exp((mu - 0.5*sigma^2)*dt + sigma*sqrt(dt)*z).
// Log-normal by construction, so a finite draw keeps the price positive.
func diffuse(prev, mu, sigma, dt, z float64) float64 {
	return prev * math.Exp((mu-0.5*sigma*sigma)*dt+sigma*math.Sqrt(dt)*z)
}
