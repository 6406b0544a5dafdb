package gae

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

const tolerance = 1e-10

func TestDiscountCumSum(t *testing.T) {
	x := []float64{1, 2, 3}
	discount := 0.5

	got := discountCumSum(x, discount)
	want := []float64{
		1 + 0.5*2 + 0.25*3,
		2 + 0.5*3,
		3,
	}

	for i := range want {
		if math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("incorrect discounted cumulative sum at index %v"+
				"\n\twant(%v)\n\thave(%v)", i, want[i], got[i])
		}
	}
}

// TestFinishPathTerminal checks the GAE(λ) advantages and
// rewards-to-go of a single terminal trajectory against values
// computed by hand.
func TestFinishPathTerminal(t *testing.T) {
	const gamma = 0.9
	const lambda = 0.5

	buffer := New(1, 1, 3, lambda, gamma)

	rewards := []float64{1, 2, 3}
	values := []float64{0.5, 1.5, 2.5}
	for i := range rewards {
		err := buffer.Store([]float64{float64(i)}, []float64{0},
			rewards[i], values[i], 0)
		if err != nil {
			t.Fatalf("could not store timestep: %v", err)
		}
	}

	// Terminal trajectory bootstraps with 0
	buffer.FinishPath(0)

	// δ_t = r_t + ℽ v(s_{t+1}) - v(s_t), with v(s_3) = 0
	deltas := []float64{
		1 + gamma*1.5 - 0.5,
		2 + gamma*2.5 - 1.5,
		3 + gamma*0 - 2.5,
	}
	wantAdv := discountCumSum(deltas, gamma*lambda)
	wantRet := discountCumSum(rewards, gamma)

	for i := range wantAdv {
		if math.Abs(buffer.advBuffer[i]-wantAdv[i]) > tolerance {
			t.Errorf("incorrect advantage at index %v\n\twant(%v)"+
				"\n\thave(%v)", i, wantAdv[i], buffer.advBuffer[i])
		}
		if math.Abs(buffer.retBuffer[i]-wantRet[i]) > tolerance {
			t.Errorf("incorrect rewards-to-go at index %v\n\twant(%v)"+
				"\n\thave(%v)", i, wantRet[i], buffer.retBuffer[i])
		}
	}
}

// TestFinishPathPreservesRewards checks that finishing a trajectory
// does not corrupt the rewards of a later trajectory stored in the
// same buffer.
func TestFinishPathPreservesRewards(t *testing.T) {
	buffer := New(1, 1, 4, 0.95, 0.99)

	// First trajectory: two timesteps, cut off with a bootstrap value
	for i := 0; i < 2; i++ {
		err := buffer.Store([]float64{0}, []float64{0}, 1, 0.5, 0)
		if err != nil {
			t.Fatalf("could not store timestep: %v", err)
		}
	}
	buffer.FinishPath(10)

	// The bootstrap value must not leak into the reward buffer, where
	// the next trajectory's first reward is stored
	err := buffer.Store([]float64{0}, []float64{0}, -1, 0.5, 0)
	if err != nil {
		t.Fatalf("could not store timestep: %v", err)
	}
	if buffer.rewBuffer[2] != -1 {
		t.Errorf("finishing a trajectory corrupted the reward buffer"+
			"\n\twant(-1)\n\thave(%v)", buffer.rewBuffer[2])
	}
}

// TestGet checks that sampling the buffer standardizes advantages and
// returns the stored behaviour policy log probabilities.
func TestGet(t *testing.T) {
	const size = 5
	buffer := New(2, 1, size, 0.97, 0.99)

	logProbs := []float64{-0.1, -0.5, -1, -2, -0.25}
	for i := 0; i < size; i++ {
		err := buffer.Store([]float64{float64(i), 0}, []float64{1},
			float64(i), 0.1*float64(i), logProbs[i])
		if err != nil {
			t.Fatalf("could not store timestep: %v", err)
		}
	}

	buffer.FinishPath(0)

	obs, act, adv, ret, lp, err := buffer.Get()
	if err != nil {
		t.Fatalf("could not sample full buffer: %v", err)
	}
	if len(obs) != size*2 || len(act) != size || len(ret) != size {
		t.Fatalf("sampled data has incorrect lengths")
	}

	mean := stat.Mean(adv, nil)
	std := stat.StdDev(adv, nil)
	if math.Abs(mean) > 1e-8 {
		t.Errorf("advantages are not zero mean: %v", mean)
	}
	if math.Abs(std-1) > 1e-4 {
		t.Errorf("advantages do not have unit standard deviation: %v",
			std)
	}

	for i := range logProbs {
		if lp[i] != logProbs[i] {
			t.Errorf("incorrect log probability at index %v"+
				"\n\twant(%v)\n\thave(%v)", i, logProbs[i], lp[i])
		}
	}
}

func TestGetBeforeFull(t *testing.T) {
	buffer := New(1, 1, 3, 0.95, 0.99)

	err := buffer.Store([]float64{0}, []float64{0}, 1, 0, 0)
	if err != nil {
		t.Fatalf("could not store timestep: %v", err)
	}
	buffer.FinishPath(0)

	if _, _, _, _, _, err := buffer.Get(); err == nil {
		t.Error("expected sampling a partially full buffer to fail")
	}
}
