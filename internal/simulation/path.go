package simulation

import (
	"math"
	"math/rand/v2"

	"trade-eval-lab/internal/domain"
	"trade-eval-lab/internal/model"
)

// GeneratePath simulates one price path of horizon steps. The returned
// path has horizon+1 entries: the initial price followed by one price
// per step. A non-finite or non-positive price at any step fails the
// path with a NumericalError (Trial left zero for the caller to fill).
func GeneratePath(m model.Model, horizon int, rng *rand.Rand) (domain.PricePath, error) {
	path := make(domain.PricePath, horizon+1)
	path[0] = m.InitialPrice()

	stepper := m.Begin(rng)
	for step := 1; step <= horizon; step++ {
		next := stepper.Next(path[step-1])
		if !isValidPrice(next) {
			return nil, &NumericalError{Step: step, Price: next}
		}
		path[step] = next
	}
	return path, nil
}

func isValidPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}
