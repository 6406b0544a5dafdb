// Package agent defines an agent interface
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a
// Policy which chooses actions in each state. The Policy chooses which
// actions are taken, and the Learner uses these actions to update the
// Policy.
type Agent interface {
	Learner
	Policy
}

// A Closer is an agent that must be closed after it is done learning
type Closer interface {
	Agent
	Close() error
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Step performs a single update to the learner
	Step() error

	// Observe records that an action lead to some timestep
	Observe(action mat.Vector, nextObs timestep.TimeStep) error

	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode() error
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. For a given agent, the
// Policy and Learner should have pointers to the same weights so that
// any changes the Learner makes to the weights are reflected in the
// actions the Policy chooses.
type Policy interface {
	SelectAction(t timestep.TimeStep) (*mat.VecDense, error)
}

// NNPolicy represents a policy that uses neural network function
// approximation.
//
// Policies implemented by neural networks satisfy a different
// interface from Policy because external VMs are needed to update the
// policy's weights: losses are built over the policy's graph, so the
// network itself must be exposed.
type NNPolicy interface {
	Policy
	Network() network.NeuralNet
	Close() error
}
