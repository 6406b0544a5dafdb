package solver

import G "gorgonia.org/gorgonia"

// VanillaConfig describes a configuration of the vanilla stochastic
// gradient descent solver
type VanillaConfig struct {
	StepSize float64
	Batch    int
}

// NewVanilla returns a vanilla gradient descent Solver with the
// argument step size
func NewVanilla(stepSize float64, batchSize int) (*Solver, error) {
	return newSolver(Vanilla, VanillaConfig{
		StepSize: stepSize,
		Batch:    batchSize,
	})
}

// Create returns the Gorgonia Solver that the VanillaConfig describes
func (v VanillaConfig) Create() G.Solver {
	return G.NewVanillaSolver(
		G.WithLearnRate(v.StepSize),
		G.WithBatchSize(float64(v.Batch)),
	)
}

// ValidType returns whether t can be constructed from a VanillaConfig
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}
