package domain

// PricePath is an ordered sequence of simulated prices of length
// horizon_steps + 1, with the initial price at index 0. A path is owned
// exclusively by the trial that generated it and is discarded after
// payoff extraction; it is never retained in a SimulationResult.
type PricePath []float64

// Terminal returns the last price of the path.
func (p PricePath) Terminal() float64 {
	return p[len(p)-1]
}

// Steps returns the number of simulated steps (length - 1).
func (p PricePath) Steps() int {
	return len(p) - 1
}
