package pendulum

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/timestep"
)

// SwingUp implements the task of swinging the pendulum up and holding
// it in a vertical position. Rewards are the cosine of the pendulum
// angle measured from the positive y-axis, so that a reward of 1.0 is
// given on each timestep on which the pendulum points straight up.
// Episodes never reach a terminal state; they are cut off by the
// task's step limit.
type SwingUp struct {
	environment.Starter
	environment.Ender
}

// NewSwingUp returns a new SwingUp task with starting states drawn
// from s and episodes cut off after maxSteps timesteps.
func NewSwingUp(s environment.Starter, maxSteps int) *SwingUp {
	ender := environment.NewStepLimit(maxSteps)
	return &SwingUp{s, ender}
}

// GetReward returns the reward for being in the state of timestep t
func (s *SwingUp) GetReward(t timestep.TimeStep, _ mat.Vector) float64 {
	th := t.Observation.AtVec(0)
	return math.Cos(th)
}

// AtGoal returns whether the argument state is the goal state
func (s *SwingUp) AtGoal(state mat.Matrix) bool {
	return state.At(0, 0) == 0
}

// Min returns the minimum attainable reward
func (s *SwingUp) Min() float64 {
	return -1.0
}

// Max returns the maximum attainable reward
func (s *SwingUp) Max() float64 {
	return 1.0
}

// RewardSpec returns the reward specification of the task
func (s *SwingUp) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{s.Min()})
	upperBound := mat.NewVecDense(1, []float64{s.Max()})

	return environment.NewSpec(shape, environment.Reward, lowerBound,
		upperBound, environment.Continuous)
}
