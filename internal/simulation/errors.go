package simulation

import (
	"errors"
	"fmt"
)

// Runner errors
var (
	ErrTooFewTrials   = errors.New("n_simulations must be at least 1")
	ErrInvalidHorizon = errors.New("horizon must be at least 1 step")
	ErrAborted        = errors.New("simulation aborted")
)

// NumericalError reports a trial whose price path degenerated into a
// non-finite or non-positive value. The whole run fails; when several
// trials degenerate concurrently, the lowest trial index is reported.
type NumericalError struct {
	Trial int
	Step  int
	Price float64
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical error in trial %d at step %d: price %v", e.Trial, e.Step, e.Price)
}
