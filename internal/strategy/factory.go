package strategy

import (
	"errors"
	"math"

	"trade-eval-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategyType   = errors.New("unknown strategy type")
	ErrZeroPositionSize      = errors.New("position size must not be zero")
	ErrNonPositiveEntryPrice = errors.New("entry price must be positive")
	ErrNegativeCostRate      = errors.New("transaction cost rate must not be negative")
	ErrMissingStrike         = errors.New("option strategy requires Strike")
	ErrMissingUpperStrike    = errors.New("SPREAD requires UpperStrike")
	ErrBadSpreadStrikes      = errors.New("SPREAD requires UpperStrike > Strike")
	ErrNonPositiveStrike     = errors.New("strike must be positive")
	ErrMissingPremiumInputs  = errors.New("option strategy requires Premium, or RiskFreeRate+ImpliedVol+ExpiryYears for pricing")
	ErrNegativePremium       = errors.New("premium must not be negative")
)

// FromConfig creates a Payoff from domain.StrategyConfig.
// Validates required parameters per strategy type and resolves the
// option premium: supplied directly, or priced with Black-Scholes from
// the configured rate, implied vol and expiry.
func FromConfig(cfg domain.StrategyConfig) (Payoff, error) {
	if err := validateCommon(cfg); err != nil {
		return nil, err
	}

	switch cfg.StrategyType {
	case domain.StrategyTypeSpot:
		return NewSpotPayoff(cfg.PositionSize, cfg.EntryPrice, cfg.TransactionCostRate), nil
	case domain.StrategyTypeCall:
		return fromCallConfig(cfg)
	case domain.StrategyTypePut:
		return fromPutConfig(cfg)
	case domain.StrategyTypeSpread:
		return fromSpreadConfig(cfg)
	case domain.StrategyTypeStraddle:
		return fromStraddleConfig(cfg)
	default:
		return nil, ErrUnknownStrategyType
	}
}

func validateCommon(cfg domain.StrategyConfig) error {
	if cfg.PositionSize == 0 || math.IsNaN(cfg.PositionSize) {
		return ErrZeroPositionSize
	}
	if cfg.EntryPrice <= 0 || math.IsNaN(cfg.EntryPrice) || math.IsInf(cfg.EntryPrice, 0) {
		return ErrNonPositiveEntryPrice
	}
	if cfg.TransactionCostRate < 0 {
		return ErrNegativeCostRate
	}
	return nil
}

func fromCallConfig(cfg domain.StrategyConfig) (*CallPayoff, error) {
	strike, err := requireStrike(cfg.Strike)
	if err != nil {
		return nil, err
	}
	premium, err := resolvePremium(cfg, func(r, v, t float64) float64 {
		return BlackScholesCall(cfg.EntryPrice, strike, r, v, t)
	})
	if err != nil {
		return nil, err
	}
	return &CallPayoff{
		Size:     cfg.PositionSize,
		Entry:    cfg.EntryPrice,
		Strike:   strike,
		Premium:  premium,
		CostRate: cfg.TransactionCostRate,
	}, nil
}

func fromPutConfig(cfg domain.StrategyConfig) (*PutPayoff, error) {
	strike, err := requireStrike(cfg.Strike)
	if err != nil {
		return nil, err
	}
	premium, err := resolvePremium(cfg, func(r, v, t float64) float64 {
		return BlackScholesPut(cfg.EntryPrice, strike, r, v, t)
	})
	if err != nil {
		return nil, err
	}
	return &PutPayoff{
		Size:     cfg.PositionSize,
		Entry:    cfg.EntryPrice,
		Strike:   strike,
		Premium:  premium,
		CostRate: cfg.TransactionCostRate,
	}, nil
}

func fromSpreadConfig(cfg domain.StrategyConfig) (*SpreadPayoff, error) {
	lower, err := requireStrike(cfg.Strike)
	if err != nil {
		return nil, err
	}
	if cfg.UpperStrike == nil {
		return nil, ErrMissingUpperStrike
	}
	upper := *cfg.UpperStrike
	if upper <= lower {
		return nil, ErrBadSpreadStrikes
	}
	premium, err := resolvePremium(cfg, func(r, v, t float64) float64 {
		// Net debit: long lower-strike call, short upper-strike call.
		return BlackScholesCall(cfg.EntryPrice, lower, r, v, t) - BlackScholesCall(cfg.EntryPrice, upper, r, v, t)
	})
	if err != nil {
		return nil, err
	}
	return &SpreadPayoff{
		Size:     cfg.PositionSize,
		Entry:    cfg.EntryPrice,
		Lower:    lower,
		Upper:    upper,
		Premium:  premium,
		CostRate: cfg.TransactionCostRate,
	}, nil
}

func fromStraddleConfig(cfg domain.StrategyConfig) (*StraddlePayoff, error) {
	strike, err := requireStrike(cfg.Strike)
	if err != nil {
		return nil, err
	}
	premium, err := resolvePremium(cfg, func(r, v, t float64) float64 {
		return BlackScholesCall(cfg.EntryPrice, strike, r, v, t) + BlackScholesPut(cfg.EntryPrice, strike, r, v, t)
	})
	if err != nil {
		return nil, err
	}
	return &StraddlePayoff{
		Size:     cfg.PositionSize,
		Entry:    cfg.EntryPrice,
		Strike:   strike,
		Premium:  premium,
		CostRate: cfg.TransactionCostRate,
	}, nil
}

func requireStrike(strike *float64) (float64, error) {
	if strike == nil {
		return 0, ErrMissingStrike
	}
	if *strike <= 0 || math.IsNaN(*strike) || math.IsInf(*strike, 0) {
		return 0, ErrNonPositiveStrike
	}
	return *strike, nil
}

// resolvePremium returns the configured premium, or prices one when all
// pricing inputs are present.
func resolvePremium(cfg domain.StrategyConfig, price func(rate, vol, expiry float64) float64) (float64, error) {
	if cfg.Premium != nil {
		if *cfg.Premium < 0 {
			return 0, ErrNegativePremium
		}
		return *cfg.Premium, nil
	}
	if cfg.RiskFreeRate == nil || cfg.ImpliedVol == nil || cfg.ExpiryYears == nil {
		return 0, ErrMissingPremiumInputs
	}
	if *cfg.ImpliedVol <= 0 || *cfg.ExpiryYears <= 0 {
		return 0, ErrMissingPremiumInputs
	}
	return price(*cfg.RiskFreeRate, *cfg.ImpliedVol, *cfg.ExpiryYears), nil
}
