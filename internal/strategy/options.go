package strategy

import (
	"fmt"
	"math"

	"trade-eval-lab/internal/domain"
)

// Option payoffs: intrinsic value at the terminal price minus the premium
// paid at entry, scaled by contract count, minus the entry cost. The
// premium is a resolved per-contract amount; see factory.go for how it is
// supplied or priced.

// CallPayoff is a long European call.
type CallPayoff struct {
	Size     float64 // contracts; sign = direction
	Entry    float64 // underlying price at entry (cost notional base)
	Strike   float64
	Premium  float64 // per contract
	CostRate float64
}

func (p *CallPayoff) ID() string {
	return fmt.Sprintf("CALL_size=%g_strike=%g_premium=%g_cost=%g", p.Size, p.Strike, p.Premium, p.CostRate)
}

func (p *CallPayoff) Evaluate(path domain.PricePath) float64 {
	intrinsic := math.Max(path.Terminal()-p.Strike, 0)
	return (intrinsic-p.Premium)*p.Size - entryCost(p.Size, p.Entry, p.CostRate)
}

// PutPayoff is a long European put.
type PutPayoff struct {
	Size     float64
	Entry    float64
	Strike   float64
	Premium  float64
	CostRate float64
}

func (p *PutPayoff) ID() string {
	return fmt.Sprintf("PUT_size=%g_strike=%g_premium=%g_cost=%g", p.Size, p.Strike, p.Premium, p.CostRate)
}

func (p *PutPayoff) Evaluate(path domain.PricePath) float64 {
	intrinsic := math.Max(p.Strike-path.Terminal(), 0)
	return (intrinsic-p.Premium)*p.Size - entryCost(p.Size, p.Entry, p.CostRate)
}

// SpreadPayoff is a bull call spread: long the lower strike, short the
// upper. Premium is the net debit per contract pair.
type SpreadPayoff struct {
	Size     float64
	Entry    float64
	Lower    float64
	Upper    float64
	Premium  float64
	CostRate float64
}

func (p *SpreadPayoff) ID() string {
	return fmt.Sprintf("SPREAD_size=%g_lower=%g_upper=%g_premium=%g_cost=%g",
		p.Size, p.Lower, p.Upper, p.Premium, p.CostRate)
}

func (p *SpreadPayoff) Evaluate(path domain.PricePath) float64 {
	terminal := path.Terminal()
	intrinsic := math.Max(terminal-p.Lower, 0) - math.Max(terminal-p.Upper, 0)
	return (intrinsic-p.Premium)*p.Size - entryCost(p.Size, p.Entry, p.CostRate)
}

// StraddlePayoff is a long straddle: call plus put at the same strike.
// Premium is the combined premium per contract pair.
type StraddlePayoff struct {
	Size     float64
	Entry    float64
	Strike   float64
	Premium  float64
	CostRate float64
}

func (p *StraddlePayoff) ID() string {
	return fmt.Sprintf("STRADDLE_size=%g_strike=%g_premium=%g_cost=%g", p.Size, p.Strike, p.Premium, p.CostRate)
}

func (p *StraddlePayoff) Evaluate(path domain.PricePath) float64 {
	intrinsic := math.Abs(path.Terminal() - p.Strike)
	return (intrinsic-p.Premium)*p.Size - entryCost(p.Size, p.Entry, p.CostRate)
}

var (
	_ Payoff = (*CallPayoff)(nil)
	_ Payoff = (*PutPayoff)(nil)
	_ Payoff = (*SpreadPayoff)(nil)
	_ Payoff = (*StraddlePayoff)(nil)
)
