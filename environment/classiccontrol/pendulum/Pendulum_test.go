package pendulum

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// fixedStarter always starts episodes from the same state
type fixedStarter struct {
	state []float64
}

func (f fixedStarter) Start() *mat.VecDense {
	return mat.NewVecDense(len(f.state), []float64{f.state[0], f.state[1]})
}

// TestContinuousNoTorqueAtRest checks that the pendulum hanging
// straight down with no angular velocity is a fixed point of the
// dynamics when no torque is applied.
func TestContinuousNoTorqueAtRest(t *testing.T) {
	task := NewSwingUp(fixedStarter{[]float64{math.Pi, 0.0}}, 200)
	env, firstStep, err := NewContinuous(task, 0.99)
	if err != nil {
		t.Fatal(err)
	}
	if !firstStep.First() {
		t.Error("first timestep should have StepType First")
	}

	step, last, err := env.Step(mat.NewVecDense(1, []float64{0.0}))
	if err != nil {
		t.Fatal(err)
	}
	if last {
		t.Error("episode should not end after a single step")
	}

	th := step.Observation.AtVec(0)
	thdot := step.Observation.AtVec(1)
	if math.Abs(th-math.Pi) > 1e-10 || math.Abs(thdot) > 1e-10 {
		t.Errorf("pendulum at rest moved: theta = %v, theta dot = %v", th,
			thdot)
	}
}

// TestSwingUpReward checks that the reward is the cosine of the
// pendulum angle after transitioning.
func TestSwingUpReward(t *testing.T) {
	task := NewSwingUp(fixedStarter{[]float64{math.Pi, 0.0}}, 200)
	env, _, err := NewContinuous(task, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	step, _, err := env.Step(mat.NewVecDense(1, []float64{0.0}))
	if err != nil {
		t.Fatal(err)
	}

	expected := math.Cos(step.Observation.AtVec(0))
	if math.Abs(step.Reward-expected) > 1e-12 {
		t.Errorf("reward: want(%v) have(%v)", expected, step.Reward)
	}
}

// TestStepLimitCutoff checks that episodes are cut off, not
// terminated, at the task's step limit.
func TestStepLimitCutoff(t *testing.T) {
	maxSteps := 10
	task := NewSwingUp(fixedStarter{[]float64{math.Pi, 0.0}}, maxSteps)
	env, _, err := NewContinuous(task, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	action := mat.NewVecDense(1, []float64{1.0})
	var last bool
	steps := 0
	for !last {
		_, last, err = env.Step(action)
		if err != nil {
			t.Fatal(err)
		}
		steps++
		if steps > maxSteps {
			t.Fatal("episode did not end at the step limit")
		}
	}

	if steps != maxSteps {
		t.Errorf("episode length: want(%v) have(%v)", maxSteps, steps)
	}

	finalStep := env.CurrentTimeStep()
	if !finalStep.Last() {
		t.Error("final timestep should have StepType Last")
	}
	if finalStep.TerminalEnd() {
		t.Error("step limit cutoffs should not be terminal ends")
	}

	// Resetting should begin a new episode from the start state
	step := env.Reset()
	if !step.First() || step.Number != 0 {
		t.Error("reset did not produce the first step of a new episode")
	}
}

// TestDiscreteTorqueMapping checks the mapping from discrete actions
// to evenly spaced torques by comparing a discrete step against the
// equivalent continuous step.
func TestDiscreteTorqueMapping(t *testing.T) {
	start := []float64{math.Pi / 4, 1.0}

	torques := []float64{-TorqueBound, -TorqueBound / 2, 0.0,
		TorqueBound / 2, TorqueBound}
	for action, torque := range torques {
		dTask := NewSwingUp(fixedStarter{start}, 200)
		dEnv, _, err := NewDiscrete(dTask, 0.99)
		if err != nil {
			t.Fatal(err)
		}

		cTask := NewSwingUp(fixedStarter{start}, 200)
		cEnv, _, err := NewContinuous(cTask, 0.99)
		if err != nil {
			t.Fatal(err)
		}

		dStep, _, err := dEnv.Step(mat.NewVecDense(1,
			[]float64{float64(action)}))
		if err != nil {
			t.Fatal(err)
		}
		cStep, _, err := cEnv.Step(mat.NewVecDense(1, []float64{torque}))
		if err != nil {
			t.Fatal(err)
		}

		for i := 0; i < ObservationDims; i++ {
			if dStep.Observation.AtVec(i) != cStep.Observation.AtVec(i) {
				t.Errorf("action %v does not match torque %v at feature %v",
					action, torque, i)
			}
		}
	}
}

// TestDiscreteIllegalAction checks that out-of-range actions are
// rejected.
func TestDiscreteIllegalAction(t *testing.T) {
	task := NewSwingUp(fixedStarter{[]float64{math.Pi, 0.0}}, 200)
	env, _, err := NewDiscrete(task, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = env.Step(mat.NewVecDense(1,
		[]float64{float64(NumDiscreteActions)}))
	if err == nil {
		t.Error("expected an error for an out-of-range action")
	}
}

// TestSpeedClipping checks that the angular velocity never exceeds
// its bounds under sustained maximum torque.
func TestSpeedClipping(t *testing.T) {
	task := NewSwingUp(fixedStarter{[]float64{math.Pi, 0.0}}, 1000)
	env, _, err := NewContinuous(task, 0.99)
	if err != nil {
		t.Fatal(err)
	}

	action := mat.NewVecDense(1, []float64{MaxContinuousAction})
	for i := 0; i < 500; i++ {
		step, last, err := env.Step(action)
		if err != nil {
			t.Fatal(err)
		}
		thdot := step.Observation.AtVec(1)
		if thdot < -SpeedBound || thdot > SpeedBound {
			t.Fatalf("angular velocity %v exceeds bounds", thdot)
		}
		if last {
			break
		}
	}
}
