package solver

import G "gorgonia.org/gorgonia"

// AdamConfig describes a configuration of the Adam solver. Epsilon is
// the denominator smoothing term and Beta1/Beta2 are the exponential
// decay rates of the two moment estimates.
type AdamConfig struct {
	StepSize float64
	Epsilon  float64
	Beta1    float64
	Beta2    float64
	Batch    int
}

// NewAdam returns an Adam Solver with the argument hyperparameters
func NewAdam(stepSize, epsilon, beta1, beta2 float64,
	batchSize int) (*Solver, error) {
	return newSolver(Adam, AdamConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Beta1:    beta1,
		Beta2:    beta2,
		Batch:    batchSize,
	})
}

// NewDefaultAdam returns an Adam Solver with the common defaults for
// everything except the step size and batch size
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, batchSize)
}

// Create returns the Gorgonia Solver that the AdamConfig describes
func (a AdamConfig) Create() G.Solver {
	return G.NewAdamSolver(
		G.WithLearnRate(a.StepSize),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(float64(a.Batch)),
	)
}

// ValidType returns whether t can be constructed from an AdamConfig
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}
