package environment

import "github.com/njmarsh/swingup/timestep"

// StepLimit implements the Ender interface to end episodes at a
// specific timestep limit. Episodes ended by a StepLimit are cutoffs,
// not terminal states: value estimates may still be bootstrapped from
// the final state.
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit returns an Ender which cuts episodes off after
// episodeSteps timesteps.
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended, End modifies the timestep so that its StepType
// field is timestep.Last and its EndType field is timestep.Cutoff.
func (s StepLimit) End(t *timestep.TimeStep) bool {
	if t.Number >= s.episodeSteps {
		t.StepType = timestep.Last
		t.EndType = timestep.Cutoff
		return true
	}
	return false
}
