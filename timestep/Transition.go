package timestep

import "gonum.org/v1/gonum/mat"

// Transition packages together a single transition of
// (state, action, reward, next state) along with the discount to apply
// to the value of the next state. A discount of 0 denotes that the
// next state is an environmental terminal state.
type Transition struct {
	State     *mat.VecDense
	Action    *mat.VecDense
	Reward    float64
	Discount  float64
	NextState *mat.VecDense
}

// NewTransition returns the Transition generated by taking action a in
// the state of step and transitioning to nextStep. The transition's
// discount is 0 if nextStep ended the episode at a terminal state, so
// that bootstrapped value targets become plain reward targets. Episode
// cutoffs keep the environmental discount since the episode could have
// continued.
func NewTransition(step TimeStep, a *mat.VecDense,
	nextStep TimeStep) Transition {
	discount := nextStep.Discount
	if nextStep.TerminalEnd() {
		discount = 0.0
	}

	return Transition{
		State:     vecCopy(step.Observation),
		Action:    a,
		Reward:    nextStep.Reward,
		Discount:  discount,
		NextState: vecCopy(nextStep.Observation),
	}
}

// vecCopy returns a dense copy of a vector so that stored transitions
// do not alias environment state.
func vecCopy(v mat.Vector) *mat.VecDense {
	c := mat.NewVecDense(v.Len(), nil)
	c.CopyVec(v)
	return c
}
