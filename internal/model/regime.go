package model

import (
	"math/rand/v2"

	"trade-eval-lab/internal/domain"
)

// regimeSwitching maintains a discrete regime per path. Each step first
// transitions the regime via the transition matrix row of the current
// regime, then applies a GBM step with the new regime's parameters.
type regimeSwitching struct {
	cfg domain.ModelConfig
}

func newRegimeSwitching(cfg domain.ModelConfig) *regimeSwitching {
	return &regimeSwitching{cfg: cfg}
}

func (m *regimeSwitching) InitialPrice() float64 {
	return m.cfg.InitialPrice
}

func (m *regimeSwitching) ID() string {
	return m.cfg.ID()
}

// Begin draws the start regime uniformly unless one is configured.
func (m *regimeSwitching) Begin(rng *rand.Rand) Stepper {
	regime := 0
	if m.cfg.InitialRegime != nil {
		regime = *m.cfg.InitialRegime
	} else {
		regime = rng.IntN(len(m.cfg.Regimes))
	}
	return &regimeStepper{m: m, rng: rng, regime: regime}
}

// regimeStepper consumes a uniform draw for the regime transition and a
// normal draw for the price step.
type regimeStepper struct {
	m      *regimeSwitching
	rng    *rand.Rand
	regime int
}

func (s *regimeStepper) Next(prev float64) float64 {
	s.regime = nextRegime(s.m.cfg.Transition[s.regime], s.rng.Float64())
	p := s.m.cfg.Regimes[s.regime]
	return diffuse(prev, p.Drift, p.Volatility, s.m.cfg.Dt, s.rng.NormFloat64())
}

// nextRegime maps a uniform draw to a regime index via the cumulative
// probabilities of one transition matrix row. Rounding residue in the
// row sum falls to the last regime.
func nextRegime(row []float64, u float64) int {
	cum := 0.0
	for i, p := range row {
		cum += p
		if u < cum {
			return i
		}
	}
	return len(row) - 1
}

var _ Model = (*regimeSwitching)(nil)
