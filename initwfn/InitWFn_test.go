package initwfn

import (
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// weightsOf returns the data of a weight matrix initialized with wfn
func weightsOf(wfn *InitWFn) []float64 {
	g := G.NewGraph()
	w := G.NewMatrix(g, tensor.Float64, G.WithShape(3, 4),
		G.WithName("w"), G.WithInit(wfn.InitWFn()))

	return w.Value().Data().([]float64)
}

func TestZeroes(t *testing.T) {
	wfn, err := NewZeroes()
	if err != nil {
		t.Fatalf("could not construct initializer: %v", err)
	}
	if wfn.Type != Zeroes {
		t.Errorf("incorrect initializer type \n\twant(%v)\n\thave(%v)",
			Zeroes, wfn.Type)
	}

	for i, v := range weightsOf(wfn) {
		if v != 0 {
			t.Errorf("nonzero weight at index %v: %v", i, v)
		}
	}
}

// TestGlorot checks that both Glorot variants record their type and
// produce initialized, non-degenerate weights.
func TestGlorot(t *testing.T) {
	glorotU, err := NewGlorotU(1.0)
	if err != nil {
		t.Fatalf("could not construct initializer: %v", err)
	}
	glorotN, err := NewGlorotN(1.0)
	if err != nil {
		t.Fatalf("could not construct initializer: %v", err)
	}

	if glorotU.Type != GlorotU {
		t.Errorf("incorrect initializer type \n\twant(%v)\n\thave(%v)",
			GlorotU, glorotU.Type)
	}
	if glorotN.Type != GlorotN {
		t.Errorf("incorrect initializer type \n\twant(%v)\n\thave(%v)",
			GlorotN, glorotN.Type)
	}

	for _, wfn := range []*InitWFn{glorotU, glorotN} {
		allZero := true
		for _, v := range weightsOf(wfn) {
			if v != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			t.Errorf("%v initializer produced all-zero weights",
				wfn.Type)
		}
	}
}
