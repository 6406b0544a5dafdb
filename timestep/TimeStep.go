// Package timestep implements timesteps of the agent-environment
// interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be: the first
// step in an episode, a middle step, or the last step.
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes why an episode ended. Episodes may end because the
// agent reached an environmental terminal state, or because some
// step limit cut the episode off. The two cases must be distinguished:
// value bootstrapping is only legal on cutoffs.
type EndType int

const (
	// NotEnded denotes a timestep on which the episode did not end
	NotEnded EndType = iota

	// TerminalStateReached denotes that the episode ended because the
	// agent reached an environmental terminal state
	TerminalStateReached

	// Cutoff denotes that the episode was cut off by a timestep limit
	// before any terminal state was reached
	Cutoff
)

// TimeStep packages together a single timestep of agent-environment
// interaction.
type TimeStep struct {
	StepType
	EndType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
}

// New returns a new TimeStep with the argument fields
func New(t StepType, reward, discount float64, obs mat.Vector,
	number int) TimeStep {
	return TimeStep{t, NotEnded, reward, discount, obs, number}
}

// First returns whether a TimeStep is the first in an episode
func (t TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t TimeStep) Last() bool {
	return t.StepType == Last
}

// TerminalEnd returns whether the TimeStep ended the episode at an
// environmental terminal state. If true, the value of the timestep's
// state is 0 and no bootstrapping should be performed. If the episode
// ended due to a cutoff, this method returns false.
func (t TimeStep) TerminalEnd() bool {
	return t.EndType == TerminalStateReached
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
