package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/njmarsh/swingup/timestep"
)

// transitionOf returns a transition whose every stored value equals v,
// so that sampled batches can be traced back to the transitions that
// produced them.
func transitionOf(v float64) timestep.Transition {
	return timestep.Transition{
		State:     mat.NewVecDense(2, []float64{v, v}),
		Action:    mat.NewVecDense(1, []float64{v}),
		Reward:    v,
		Discount:  v,
		NextState: mat.NewVecDense(2, []float64{v, v}),
	}
}

func TestSampleEmptyBuffer(t *testing.T) {
	buffer, err := New(1, 10, 2, 2, 1, 1)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	_, _, _, _, _, err = buffer.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("expected an empty buffer error, got %v", err)
	}
}

func TestSampleBelowMinCapacity(t *testing.T) {
	buffer, err := New(3, 10, 2, 2, 1, 1)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	if err := buffer.Add(transitionOf(1)); err != nil {
		t.Fatalf("could not add transition: %v", err)
	}

	_, _, _, _, _, err = buffer.Sample()
	if !IsInsufficientSamples(err) {
		t.Errorf("expected an insufficient samples error, got %v", err)
	}
	if IsEmptyBuffer(err) {
		t.Errorf("non-empty buffer reported as empty")
	}
}

// TestSampleConsistency checks that each sampled row is a coherent
// stored transition, not a mixture of multiple transitions.
func TestSampleConsistency(t *testing.T) {
	const batchSize = 8
	buffer, err := New(1, 4, batchSize, 2, 1, 14)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	for v := 1.0; v <= 3.0; v++ {
		if err := buffer.Add(transitionOf(v)); err != nil {
			t.Fatalf("could not add transition: %v", err)
		}
	}
	if buffer.Capacity() != 3 {
		t.Fatalf("incorrect capacity \n\twant(3)\n\thave(%v)",
			buffer.Capacity())
	}

	states, actions, rewards, discounts, nextStates, err := buffer.Sample()
	if err != nil {
		t.Fatalf("could not sample buffer: %v", err)
	}

	for i := 0; i < batchSize; i++ {
		v := rewards[i]
		if v < 1 || v > 3 {
			t.Errorf("sampled transition was never stored: %v", v)
		}
		row := []float64{
			states[i*2], states[i*2+1],
			actions[i],
			discounts[i],
			nextStates[i*2], nextStates[i*2+1],
		}
		for _, got := range row {
			if got != v {
				t.Errorf("sampled transition mixes stored transitions"+
					"\n\twant(%v)\n\thave(%v)", v, got)
			}
		}
	}
}

// TestFIFOOverwrite checks that, at maximum capacity, new transitions
// replace the oldest stored transitions.
func TestFIFOOverwrite(t *testing.T) {
	buffer, err := New(1, 2, 4, 2, 1, 7)
	if err != nil {
		t.Fatalf("could not construct buffer: %v", err)
	}

	for v := 1.0; v <= 3.0; v++ {
		if err := buffer.Add(transitionOf(v)); err != nil {
			t.Fatalf("could not add transition: %v", err)
		}
	}
	if buffer.Capacity() != buffer.MaxCapacity() {
		t.Fatalf("buffer did not fill to maximum capacity")
	}

	// Transition 1 was overwritten by transition 3
	_, _, rewards, _, _, err := buffer.Sample()
	if err != nil {
		t.Fatalf("could not sample buffer: %v", err)
	}
	for _, r := range rewards {
		if r != 2 && r != 3 {
			t.Errorf("sampled overwritten transition %v", r)
		}
	}
}
