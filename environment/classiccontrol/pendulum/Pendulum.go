// Package pendulum implements the pendulum classic control environment
package pendulum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/timestep"
	"github.com/njmarsh/swingup/utils/floatutils"
)

// default physical constants
const (
	AngleBound  float64 = math.Pi // +/- Angle bounds
	SpeedBound  float64 = 8.0     // +/- Angular velocity bounds
	TorqueBound float64 = 2.0     // +/- Torque bounds

	MaxContinuousAction float64 = TorqueBound
	MinContinuousAction float64 = -MaxContinuousAction

	// Discrete actions enumerate evenly spaced torques in
	// [-TorqueBound, TorqueBound]
	NumDiscreteActions int = 5

	dt              float64 = 0.05
	Gravity         float64 = 9.8
	Mass            float64 = 1.0
	Length          float64 = 1.0
	ActionDims      int     = 1
	ObservationDims int     = 2
)

// base implements the dynamics shared by the Continuous and Discrete
// pendulum environments. A pendulum is attached to a fixed base. An
// agent can swing the pendulum back and forth, but the swinging torque
// is underpowered. In order to swing the pendulum straight up, it must
// first be rocked back and forth, using the momentum to gradually
// climb higher until the pendulum can point straight up.
//
// State features consist of the angle of the pendulum measured from
// the positive y-axis and the angular velocity of the pendulum. The
// sign of the angular velocity indicates direction, with negative sign
// indicating counterclockwise rotation. The angular velocity is
// clipped to [-SpeedBound, SpeedBound]. Angles are normalized to stay
// within [-AngleBound, AngleBound] = [-π, π].
//
// Actions determine the torque applied to the pendulum at its fixed
// base and are clipped to [-TorqueBound, TorqueBound] before
// integration.
type base struct {
	environment.Task
	dt           float64
	gravity      float64
	mass         float64
	length       float64
	angleBounds  r1.Interval
	speedBounds  r1.Interval
	torqueBounds r1.Interval
	lastStep     timestep.TimeStep
	discount     float64
}

// newBase returns a new base environment and the first timestep of
// the first episode
func newBase(t environment.Task, discount float64) (*base,
	timestep.TimeStep, error) {
	if discount < 0 || discount > 1 {
		return nil, timestep.TimeStep{}, fmt.Errorf("newBase: discount "+
			"must be in [0, 1] \n\thave(%v)", discount)
	}

	angleBounds := r1.Interval{Min: -AngleBound, Max: AngleBound}
	speedBounds := r1.Interval{Min: -SpeedBound, Max: SpeedBound}
	torqueBounds := r1.Interval{Min: -TorqueBound, Max: TorqueBound}

	state := t.Start()
	if err := validateState(state, angleBounds, speedBounds); err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("newBase: %v", err)
	}

	firstStep := timestep.New(timestep.First, 0.0, discount, state, 0)

	pendulum := base{t, dt, Gravity, Mass, Length, angleBounds,
		speedBounds, torqueBounds, firstStep, discount}

	return &pendulum, firstStep, nil
}

// CurrentTimeStep returns the last TimeStep that occurred in the
// environment
func (p *base) CurrentTimeStep() timestep.TimeStep {
	return p.lastStep
}

// Reset resets the environment and returns a starting state drawn
// from the Task's Starter
func (p *base) Reset() timestep.TimeStep {
	state := p.Start()
	if err := validateState(state, p.angleBounds, p.speedBounds); err != nil {
		panic(fmt.Sprintf("reset: %v", err))
	}
	startStep := timestep.New(timestep.First, 0, p.discount, state, 0)
	p.lastStep = startStep

	return startStep
}

// nextState computes the next state of the environment given an
// amount of torque to apply to the fixed base of the pendulum. The
// torque is first clipped to the legal torque bounds.
func (p *base) nextState(t timestep.TimeStep, torque float64) *mat.VecDense {
	obs := t.Observation
	th, thdot := obs.AtVec(0), obs.AtVec(1)

	torque = floatutils.ClipInterval(torque, p.torqueBounds)

	newthdot := thdot + (-3*p.gravity/(2*p.length)*math.Sin(th+math.Pi)+
		3.0/(p.mass*math.Pow(p.length, 2))*torque)*p.dt

	newth := th + (newthdot * p.dt)

	newthdot = floatutils.ClipInterval(newthdot, p.speedBounds)
	newth = normalizeAngle(newth, p.angleBounds)

	return mat.NewVecDense(ObservationDims, []float64{newth, newthdot})
}

// update constructs the timestep for transitioning to newState by
// action, records it as the environment's current step, and returns
// it along with whether it ends the episode.
func (p *base) update(action, newState *mat.VecDense) (timestep.TimeStep,
	bool) {
	nextStep := timestep.New(timestep.Mid, 0, p.discount, newState,
		p.lastStep.Number+1)
	nextStep.Reward = p.GetReward(nextStep, action)

	// Check if the episode ends at the new timestep, adjusting the
	// step and end types if so
	p.End(&nextStep)

	p.lastStep = nextStep
	return nextStep, nextStep.Last()
}

// DiscountSpec returns the discount specification of the environment
func (p *base) DiscountSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{p.discount})

	return environment.NewSpec(shape, environment.Discount, bound, bound,
		environment.Continuous)
}

// ObservationSpec returns the observation specification of the
// environment
func (p *base) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)

	minObs := []float64{p.angleBounds.Min, p.speedBounds.Min}
	lowerBound := mat.NewVecDense(ObservationDims, minObs)

	maxObs := []float64{p.angleBounds.Max, p.speedBounds.Max}
	upperBound := mat.NewVecDense(ObservationDims, maxObs)

	return environment.NewSpec(shape, environment.Observation, lowerBound,
		upperBound, environment.Continuous)
}

// normalizeAngle normalizes the pendulum angle to within angleBounds
func normalizeAngle(th float64, angleBounds r1.Interval) float64 {
	if angleBounds.Max != -angleBounds.Min {
		panic("normalizeAngle: angle bounds should be centered around 0")
	}

	if th > angleBounds.Max {
		divisor := int(th / angleBounds.Max)
		return -math.Pi + th - (angleBounds.Max * float64(divisor))
	} else if th < angleBounds.Min {
		divisor := int(th / angleBounds.Min)
		return math.Pi + th - (angleBounds.Min * float64(divisor))
	}
	return th
}

// validateState checks that the angle and angular velocity of a state
// are within the environmental limits
func validateState(obs mat.Vector, angleBounds,
	speedBounds r1.Interval) error {
	thWithinBounds := obs.AtVec(0) <= angleBounds.Max &&
		obs.AtVec(0) >= angleBounds.Min
	if !thWithinBounds {
		return fmt.Errorf("theta %v is not within bounds %v", obs.AtVec(0),
			angleBounds)
	}

	thdotWithinBounds := obs.AtVec(1) <= speedBounds.Max &&
		obs.AtVec(1) >= speedBounds.Min
	if !thdotWithinBounds {
		return fmt.Errorf("theta dot %v is not within bounds %v",
			obs.AtVec(1), speedBounds)
	}
	return nil
}
