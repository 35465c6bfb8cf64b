package strategy

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Black-Scholes premiums for European options. Used by the factory when
// a strategy config supplies pricing inputs instead of a premium.

// BlackScholesCall returns the Black-Scholes price of a European call.
func BlackScholesCall(spot, strike, rate, sigma, expiry float64) float64 {
	if expiry <= 0 || sigma <= 0 {
		return math.Max(spot-strike, 0)
	}
	d1, d2 := dValues(spot, strike, rate, sigma, expiry)
	return spot*distuv.UnitNormal.CDF(d1) - strike*math.Exp(-rate*expiry)*distuv.UnitNormal.CDF(d2)
}

// BlackScholesPut returns the Black-Scholes price of a European put.
func BlackScholesPut(spot, strike, rate, sigma, expiry float64) float64 {
	if expiry <= 0 || sigma <= 0 {
		return math.Max(strike-spot, 0)
	}
	d1, d2 := dValues(spot, strike, rate, sigma, expiry)
	return strike*math.Exp(-rate*expiry)*distuv.UnitNormal.CDF(-d2) - spot*distuv.UnitNormal.CDF(-d1)
}

func dValues(spot, strike, rate, sigma, expiry float64) (d1, d2 float64) {
	sqrtT := math.Sqrt(expiry)
	d1 = (math.Log(spot/strike) + (rate+0.5*sigma*sigma)*expiry) / (sigma * sqrtT)
	d2 = d1 - sigma*sqrtT
	return d1, d2
}
