package model

import (
	"math/rand/v2"

	"trade-eval-lab/internal/domain"
)

// gbm is geometric Brownian motion with constant drift and volatility.
type gbm struct {
	cfg domain.ModelConfig
}

func newGBM(cfg domain.ModelConfig) *gbm {
	return &gbm{cfg: cfg}
}

func (m *gbm) InitialPrice() float64 {
	return m.cfg.InitialPrice
}

func (m *gbm) ID() string {
	return m.cfg.ID()
}

func (m *gbm) Begin(rng *rand.Rand) Stepper {
	return &gbmStepper{m: m, rng: rng}
}

// gbmStepper consumes one standard-normal draw per step.
type gbmStepper struct {
	m   *gbm
	rng *rand.Rand
}

func (s *gbmStepper) Next(prev float64) float64 {
	return diffuse(prev, s.m.cfg.Drift, s.m.cfg.Volatility, s.m.cfg.Dt, s.rng.NormFloat64())
}

var _ Model = (*gbm)(nil)
