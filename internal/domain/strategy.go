package domain

// Strategy type constants
const (
	StrategyTypeSpot     = "SPOT"
	StrategyTypeCall     = "CALL"
	StrategyTypePut      = "PUT"
	StrategyTypeSpread   = "SPREAD"
	StrategyTypeStraddle = "STRADDLE"
)

// StrategyConfig represents strategy configuration parameters.
// Optional, variant-specific parameters are pointers; nil means
// "not supplied". Required parameters are validated by the payoff
// factory per strategy type.
type StrategyConfig struct {
	StrategyType string // SPOT | CALL | PUT | SPREAD | STRADDLE

	// Common parameters
	PositionSize        float64 // units (SPOT) or contracts (options); sign = direction
	EntryPrice          float64 // underlying price at entry, also the cost notional base
	TransactionCostRate float64 // rate on notional, charged once at entry

	// Option parameters
	Strike      *float64
	UpperStrike *float64 // SPREAD only: short leg strike, must exceed Strike

	// Premium per contract. When nil the premium is computed with
	// Black-Scholes from the three pricing inputs below; the pricing
	// formula is a configuration input, never re-derived from the
	// simulated path.
	Premium      *float64
	RiskFreeRate *float64
	ImpliedVol   *float64
	ExpiryYears  *float64
}
