package pendulum

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/timestep"
)

// Discrete implements the pendulum environment with discrete,
// 1-dimensional actions. Actions are enumerated 0 through
// NumDiscreteActions-1 and map to evenly spaced torques in
// [-TorqueBound, TorqueBound], so that action 0 is full
// counterclockwise torque, the middle action is no torque, and the
// last action is full clockwise torque.
//
// Discrete implements the environment.Environment interface.
type Discrete struct {
	*base
}

// NewDiscrete returns a new Discrete pendulum environment and the
// first timestep of the first episode
func NewDiscrete(t environment.Task, discount float64) (*Discrete,
	timestep.TimeStep, error) {
	baseEnv, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newDiscrete: %v", err)
	}

	return &Discrete{baseEnv}, firstStep, nil
}

// Step takes one environmental step given action a and returns the
// next timestep and whether it is the last timestep of the episode.
func (p *Discrete) Step(a *mat.VecDense) (timestep.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return timestep.TimeStep{}, true, fmt.Errorf("step: actions must "+
			"be %v-dimensional", ActionDims)
	}

	action := int(a.AtVec(0))
	if action < 0 || action >= NumDiscreteActions {
		return timestep.TimeStep{}, true, fmt.Errorf("step: illegal "+
			"action %v", action)
	}

	// Convert the discrete action into a torque applied at the fixed
	// base
	torqueStep := (TorqueBound - (-TorqueBound)) /
		float64(NumDiscreteActions-1)
	torque := -TorqueBound + float64(action)*torqueStep

	nextState := p.nextState(p.lastStep, torque)
	nextStep, last := p.update(a, nextState)

	return nextStep, last, nil
}

// ActionSpec returns the action specification of the environment
func (p *Discrete) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{0})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(NumDiscreteActions - 1)})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Discrete)
}

// String converts the environment to a string representation
func (p *Discrete) String() string {
	str := "Discrete Pendulum  |  theta: %v  |  theta dot: %v\n"
	theta := p.lastStep.Observation.AtVec(0)
	thetadot := p.lastStep.Observation.AtVec(1)

	return fmt.Sprintf(str, theta, thetadot)
}
