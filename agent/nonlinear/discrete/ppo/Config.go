package ppo

import (
	"fmt"

	"github.com/njmarsh/swingup/agent"
	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/initwfn"
	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/solver"
)

// Config implements a configuration of the PPO agent
type Config struct {
	// Policy neural net
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// State value function neural net
	ValueFnLayers      []int
	ValueFnBiases      []bool
	ValueFnActivations []*network.Activation

	// Weight init function for all neural nets
	InitWFn *initwfn.InitWFn

	PolicySolver *solver.Solver
	VSolver      *solver.Solver

	// EpochLength is the number of timesteps gathered between updates
	EpochLength int

	// PolicyIters is the maximum number of gradient steps taken on
	// the policy per epoch. Fewer steps are taken when the approximate
	// KL divergence between the updated and behaviour policies grows
	// beyond 1.5 * TargetKL.
	PolicyIters int

	// ValueGradSteps is the number of gradient steps to take on the
	// value function per epoch
	ValueGradSteps int

	// Clip is the ε of the clipped surrogate objective: importance
	// sampling ratios are clipped to [1-ε, 1+ε]
	Clip float64

	// EntropyCoef scales the entropy bonus added to the policy
	// objective
	EntropyCoef float64

	// TargetKL is the approximate KL divergence beyond which policy
	// updates are stopped early within an epoch
	TargetKL float64

	// Generalized Advantage Estimation
	Lambda float64
	Gamma  float64
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.EpochLength <= 0 {
		return fmt.Errorf("epoch length must be positive")
	}
	if c.PolicyIters <= 0 {
		return fmt.Errorf("at least one policy iteration per epoch " +
			"is required")
	}
	if c.ValueGradSteps <= 0 {
		return fmt.Errorf("at least one value gradient step per " +
			"epoch is required")
	}
	if c.Clip <= 0 {
		return fmt.Errorf("clip must be positive \n\thave(%v)", c.Clip)
	}
	if c.EntropyCoef < 0 {
		return fmt.Errorf("entropy coefficient must be non-negative "+
			"\n\thave(%v)", c.EntropyCoef)
	}
	if c.TargetKL < 0 {
		return fmt.Errorf("target KL must be non-negative \n\thave(%v)",
			c.TargetKL)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda must be in [0, 1] \n\thave(%v)",
			c.Lambda)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1] \n\thave(%v)",
			c.Gamma)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("no weight initialization scheme given")
	}
	if c.PolicySolver == nil || c.VSolver == nil {
		return fmt.Errorf("no solver given")
	}
	return nil
}

// CreateAgent creates and returns the PPO agent that the Config
// describes
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	return New(env, c, seed)
}
