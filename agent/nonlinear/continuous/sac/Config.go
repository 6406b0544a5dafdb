package sac

import (
	"fmt"

	"github.com/njmarsh/swingup/agent"
	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/initwfn"
	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/solver"
)

// Config implements a configuration of the SAC agent
type Config struct {
	// Policy neural net
	RootLayers      []int
	RootBiases      []bool
	RootActivations []*network.Activation

	LeafLayers      [][]int
	LeafBiases      [][]bool
	LeafActivations [][]*network.Activation

	// Action value function neural nets. Both critics of the twin
	// critic share this architecture.
	CriticLayers      []int
	CriticBiases      []bool
	CriticActivations []*network.Activation

	// Weight init function for all neural nets
	InitWFn *initwfn.InitWFn

	PolicySolver *solver.Solver
	CriticSolver *solver.Solver

	// Experience replay parameters
	BatchSize         int
	ReplayCapacity    int
	MinReplayCapacity int

	// Tau is the Polyak averaging constant for the target critics
	Tau float64

	// Temperature is the entropy regularization coefficient α
	Temperature float64

	// WarmUpSteps is the number of initial steps on which actions are
	// selected uniformly at random rather than from the policy
	WarmUpSteps int
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if len(c.LeafLayers) != 2 {
		return fmt.Errorf("gaussian policy requires 2 leaf networks "+
			"\n\twant(2)\n\thave(%v)", len(c.LeafLayers))
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.ReplayCapacity < c.BatchSize {
		return fmt.Errorf("cannot have replay capacity(%v) < batch "+
			"size(%v)", c.ReplayCapacity, c.BatchSize)
	}
	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("tau must be in (0, 1] \n\thave(%v)", c.Tau)
	}
	if c.Temperature < 0 {
		return fmt.Errorf("temperature must be non-negative "+
			"\n\thave(%v)", c.Temperature)
	}
	if c.InitWFn == nil {
		return fmt.Errorf("no weight initialization scheme given")
	}
	if c.PolicySolver == nil || c.CriticSolver == nil {
		return fmt.Errorf("no solver given")
	}
	return nil
}

// CreateAgent creates and returns the SAC agent that the Config
// describes
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	return New(env, c, seed)
}
