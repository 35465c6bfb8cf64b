// Package strategy implements the payoff functions that map a completed
// price path to a realized PnL, net of transaction costs.
package strategy

import (
	"trade-eval-lab/internal/domain"
)

// CostNote documents the transaction-cost convention shared by all
// payoffs, echoed into every SimulationResult.
const CostNote = "transaction cost charged once at entry as rate on notional (|size| * entry price); exit assumed costless"

// Payoff maps a completed price path to a realized PnL scalar.
type Payoff interface {
	// Evaluate returns the trial PnL for the path. Pure: the path is
	// never mutated, and every finite terminal price yields a finite PnL.
	Evaluate(path domain.PricePath) float64

	// ID returns the payoff identifier including parameters.
	ID() string
}

// entryCost is the one-off transaction cost charged on the entry
// notional, per CostNote.
func entryCost(size, entry, rate float64) float64 {
	if size < 0 {
		size = -size
	}
	return rate * size * entry
}
