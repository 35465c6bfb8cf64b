package model

import (
	"math"
	"math/rand/v2"

	"trade-eval-lab/internal/domain"
)

// jumpDiffusion is a GBM step followed by an occasional multiplicative
// log-normal jump. Jumps arrive with probability lambda*dt per step
// (Poisson thinning, valid for small dt).
type jumpDiffusion struct {
	cfg       domain.ModelConfig
	lambda    float64
	meanLog   float64
	stddevLog float64
}

func newJumpDiffusion(cfg domain.ModelConfig) *jumpDiffusion {
	return &jumpDiffusion{
		cfg:       cfg,
		lambda:    *cfg.JumpIntensity,
		meanLog:   *cfg.JumpMeanLog,
		stddevLog: *cfg.JumpStddevLog,
	}
}

func (m *jumpDiffusion) InitialPrice() float64 {
	return m.cfg.InitialPrice
}

func (m *jumpDiffusion) ID() string {
	return m.cfg.ID()
}

func (m *jumpDiffusion) Begin(rng *rand.Rand) Stepper {
	return &jumpStepper{m: m, rng: rng}
}

// jumpStepper consumes a normal draw for the continuous part, a uniform
// draw for the jump decision, and a further normal draw when a jump
// triggers.
type jumpStepper struct {
	m   *jumpDiffusion
	rng *rand.Rand
}

func (s *jumpStepper) Next(prev float64) float64 {
	next := diffuse(prev, s.m.cfg.Drift, s.m.cfg.Volatility, s.m.cfg.Dt, s.rng.NormFloat64())

	if s.rng.Float64() < s.m.lambda*s.m.cfg.Dt {
		next *= math.Exp(s.m.meanLog + s.m.stddevLog*s.rng.NormFloat64())
	}

	return next
}

var _ Model = (*jumpDiffusion)(nil)
