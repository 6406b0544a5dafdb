package pendulum

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/timestep"
	"github.com/njmarsh/swingup/utils/floatutils"
)

// Continuous implements the pendulum environment with continuous,
// 1-dimensional actions. Actions determine the torque to apply to the
// pendulum at its fixed base and are clipped to stay within
// [MinContinuousAction, MaxContinuousAction].
//
// Continuous implements the environment.Environment interface.
type Continuous struct {
	*base
}

// NewContinuous returns a new Continuous pendulum environment and the
// first timestep of the first episode
func NewContinuous(t environment.Task, discount float64) (*Continuous,
	timestep.TimeStep, error) {
	baseEnv, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newContinuous: %v", err)
	}

	return &Continuous{baseEnv}, firstStep, nil
}

// Step takes one environmental step given action a and returns the
// next timestep and whether it is the last timestep of the episode.
// Actions outside the legal torque range are clipped to stay within
// the range.
func (p *Continuous) Step(a *mat.VecDense) (timestep.TimeStep, bool, error) {
	if a.Len() != ActionDims {
		return timestep.TimeStep{}, true, fmt.Errorf("step: actions must "+
			"be %v-dimensional", ActionDims)
	}

	torque := floatutils.Clip(a.AtVec(0), MinContinuousAction,
		MaxContinuousAction)

	nextState := p.nextState(p.lastStep, torque)
	nextStep, last := p.update(a, nextState)

	return nextStep, last, nil
}

// ActionSpec returns the action specification of the environment
func (p *Continuous) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{MinContinuousAction})
	upperBound := mat.NewVecDense(ActionDims, []float64{MaxContinuousAction})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}

// String converts the environment to a string representation
func (p *Continuous) String() string {
	str := "Continuous Pendulum  |  theta: %v  |  theta dot: %v\n"
	theta := p.lastStep.Observation.AtVec(0)
	thetadot := p.lastStep.Observation.AtVec(1)

	return fmt.Sprintf(str, theta, thetadot)
}
