package strategy

import (
	"fmt"

	"trade-eval-lab/internal/domain"
)

// SpotPayoff holds the underlying outright: PnL is the terminal price
// move times position size, minus the entry cost.
type SpotPayoff struct {
	Size     float64 // units held; sign = direction
	Entry    float64 // entry price
	CostRate float64
}

// NewSpotPayoff creates a spot payoff.
func NewSpotPayoff(size, entry, costRate float64) *SpotPayoff {
	return &SpotPayoff{Size: size, Entry: entry, CostRate: costRate}
}

// ID returns the payoff identifier including parameters.
func (p *SpotPayoff) ID() string {
	return fmt.Sprintf("SPOT_size=%g_entry=%g_cost=%g", p.Size, p.Entry, p.CostRate)
}

// Evaluate returns (S_T - entry) * size - cost.
func (p *SpotPayoff) Evaluate(path domain.PricePath) float64 {
	return (path.Terminal()-p.Entry)*p.Size - entryCost(p.Size, p.Entry, p.CostRate)
}

var _ Payoff = (*SpotPayoff)(nil)
