package op

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const tolerance = 1e-10

func vector(g *G.ExprGraph, name string, data []float64) *G.Node {
	backing := tensor.New(tensor.WithShape(len(data)),
		tensor.WithBacking(data))
	return G.NewVector(g, tensor.Float64, G.WithShape(len(data)),
		G.WithName(name), G.WithValue(backing))
}

func runGraph(t *testing.T, g *G.ExprGraph) {
	t.Helper()
	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}
}

func TestClip(t *testing.T) {
	g := G.NewGraph()
	in := vector(g, "in", []float64{-5, -0.5, 0.25, 5})

	clipped, err := Clip(in, -1, 1)
	if err != nil {
		t.Fatalf("could not clip node: %v", err)
	}
	runGraph(t, g)

	want := []float64{-1, -0.5, 0.25, 1}
	got := clipped.Value().Data().([]float64)
	for i := range want {
		if math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("incorrect clipped value at index %v"+
				"\n\twant(%v)\n\thave(%v)", i, want[i], got[i])
		}
	}
}

// TestMinMax checks the elementwise minimum and maximum of two nodes,
// including the case where both nodes hold the same value.
func TestMinMax(t *testing.T) {
	g := G.NewGraph()
	a := vector(g, "a", []float64{1, 4, 2})
	b := vector(g, "b", []float64{2, 3, 2})

	min, err := Min(a, b)
	if err != nil {
		t.Fatalf("could not take elementwise min: %v", err)
	}
	max, err := Max(a, b)
	if err != nil {
		t.Fatalf("could not take elementwise max: %v", err)
	}
	runGraph(t, g)

	wantMin := []float64{1, 3, 2}
	wantMax := []float64{2, 4, 2}
	gotMin := min.Value().Data().([]float64)
	gotMax := max.Value().Data().([]float64)
	for i := range wantMin {
		if math.Abs(gotMin[i]-wantMin[i]) > tolerance {
			t.Errorf("incorrect elementwise min at index %v"+
				"\n\twant(%v)\n\thave(%v)", i, wantMin[i], gotMin[i])
		}
		if math.Abs(gotMax[i]-wantMax[i]) > tolerance {
			t.Errorf("incorrect elementwise max at index %v"+
				"\n\twant(%v)\n\thave(%v)", i, wantMax[i], gotMax[i])
		}
	}
}

func TestLogSumExp(t *testing.T) {
	g := G.NewGraph()
	backing := tensor.New(tensor.WithShape(2, 3),
		tensor.WithBacking([]float64{0, 0, 0, 1, 2, 3}))
	logits := G.NewMatrix(g, tensor.Float64, G.WithShape(2, 3),
		G.WithName("logits"), G.WithValue(backing))

	lse := LogSumExp(logits, 1)
	runGraph(t, g)

	want := []float64{
		math.Log(3),
		3 + math.Log(1+math.Exp(-1)+math.Exp(-2)),
	}
	got := lse.Value().Data().([]float64)
	for i := range want {
		if math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("incorrect log-sum-exp at index %v"+
				"\n\twant(%v)\n\thave(%v)", i, want[i], got[i])
		}
	}
}
