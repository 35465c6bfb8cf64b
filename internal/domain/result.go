package domain

// SimulationConfig echoes the inputs that produced a SimulationResult.
type SimulationConfig struct {
	Model    ModelConfig
	Strategy StrategyConfig
	Trials   int
	Horizon  int // steps per path
	Seed     uint64
}

// SimulationResult is the outcome of one simulator run: the ordered
// per-trial PnL sample plus the configuration that produced it.
// Invariant: len(PnL) == Config.Trials exactly; partial results from a
// failed or cancelled run are never returned.
type SimulationResult struct {
	RunID      string
	ModelID    string
	StrategyID string
	Config     SimulationConfig

	// PnL holds one value per trial, indexed by trial number.
	PnL []float64

	// CostNote documents the transaction-cost convention the payoff
	// applied, so reports never have to guess it.
	CostNote string

	StartedAt   int64 // Unix ms
	CompletedAt int64 // Unix ms
}

// RunRecord is the persistable summary of a simulation run: everything
// in the result except the raw sample, which is stored separately.
type RunRecord struct {
	RunID        string
	ModelID      string
	StrategyID   string
	ModelType    string
	StrategyType string
	Trials       int
	Horizon      int
	Seed         uint64
	CostNote     string
	StartedAt    int64 // Unix ms
	CompletedAt  int64 // Unix ms
}

// Record derives the persistable run summary from a result.
func (r *SimulationResult) Record() *RunRecord {
	return &RunRecord{
		RunID:        r.RunID,
		ModelID:      r.ModelID,
		StrategyID:   r.StrategyID,
		ModelType:    r.Config.Model.ModelType,
		StrategyType: r.Config.Strategy.StrategyType,
		Trials:       r.Config.Trials,
		Horizon:      r.Config.Horizon,
		Seed:         r.Config.Seed,
		CostNote:     r.CostNote,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
}

// PnLPoint is one trial's outcome, stored row-per-trial for analytical
// queries over large samples.
type PnLPoint struct {
	RunID string
	Trial int
	PnL   float64
}

// Points expands the sample into storable per-trial rows.
func (r *SimulationResult) Points() []*PnLPoint {
	points := make([]*PnLPoint, len(r.PnL))
	for i, v := range r.PnL {
		points[i] = &PnLPoint{RunID: r.RunID, Trial: i, PnL: v}
	}
	return points
}
