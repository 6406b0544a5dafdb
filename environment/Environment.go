// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/njmarsh/swingup/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode ends. Enders modify a TimeStep in
// place, setting its StepType and EndType when the episode is over.
type Ender interface {
	// End returns whether the argument timestep ends the episode,
	// modifying the timestep appropriately
	End(*timestep.TimeStep) bool
}

// Cardinality indicates whether the associated type is continuous or
// discrete
type Cardinality int

const (
	Discrete Cardinality = iota
	Continuous
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an action, an observation, a discount, or a
// reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// Spec implements a specification, which tells the type, shape, and
// bounds of an action, observation, discount, or reward
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec returns a new Spec of the argument shape, type, bounds, and
// cardinality
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, c Cardinality) Spec {
	return Spec{shape, t, lowerBound, upperBound, c}
}

// Task implements the reward scheme and start-state distribution for
// acting in some environment
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for taking action a in the state
	// of timestep t
	GetReward(t timestep.TimeStep, a mat.Vector) float64

	// AtGoal returns whether the argument state is a goal state
	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum attainable rewards
	Min() float64
	Max() float64

	RewardSpec() Spec
}

// Environment implements a simulated environment, which includes a
// Task to complete
type Environment interface {
	Task

	// Reset resets the environment between episodes and returns the
	// first timestep of the new episode
	Reset() timestep.TimeStep

	// Step takes one environmental step given the argument action,
	// returning the next timestep and whether it is the last timestep
	// of the episode
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	// CurrentTimeStep returns the last timestep of the environment
	CurrentTimeStep() timestep.TimeStep

	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
