package solver

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// TestVanillaStep checks that a Vanilla solver steps weights against
// their gradient by the configured step size.
func TestVanillaStep(t *testing.T) {
	g := G.NewGraph()
	w := G.NewMatrix(g, tensor.Float64, G.WithShape(1, 2),
		G.WithName("w"), G.WithInit(G.Ones()))
	loss := G.Must(G.Mean(G.Must(G.Square(w))))

	if _, err := G.Grad(loss, w); err != nil {
		t.Fatalf("could not compute gradient: %v", err)
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(w))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}

	solver, err := NewVanilla(0.1, 1)
	if err != nil {
		t.Fatalf("could not construct solver: %v", err)
	}
	if solver.Type != Vanilla {
		t.Errorf("incorrect solver type \n\twant(%v)\n\thave(%v)",
			Vanilla, solver.Type)
	}

	if err := solver.Step([]G.ValueGrad{w}); err != nil {
		t.Fatalf("could not step solver: %v", err)
	}

	// ∂(mean(w²))/∂wᵢ = wᵢ = 1, so each weight moves from 1 to
	// 1 - 0.1
	for i, got := range w.Value().Data().([]float64) {
		if math.Abs(got-0.9) > 1e-10 {
			t.Errorf("incorrect weight %v after update"+
				"\n\twant(%v)\n\thave(%v)", i, 0.9, got)
		}
	}
}

func TestNewDefaultAdam(t *testing.T) {
	solver, err := NewDefaultAdam(3e-4, 32)
	if err != nil {
		t.Fatalf("could not construct solver: %v", err)
	}
	if solver.Type != Adam {
		t.Errorf("incorrect solver type \n\twant(%v)\n\thave(%v)",
			Adam, solver.Type)
	}

	config, ok := solver.Config.(AdamConfig)
	if !ok {
		t.Fatalf("solver does not carry its Adam configuration")
	}
	if config.Beta1 != 0.9 || config.Beta2 != 0.999 {
		t.Errorf("incorrect default decay rates"+
			"\n\twant(%v, %v)\n\thave(%v, %v)", 0.9, 0.999,
			config.Beta1, config.Beta2)
	}
}

// TestConfigValidType checks that a configuration rejects solver types
// it cannot construct.
func TestConfigValidType(t *testing.T) {
	if (AdamConfig{}).ValidType(Vanilla) {
		t.Error("Adam configuration accepted the Vanilla solver type")
	}
	if (VanillaConfig{}).ValidType(Adam) {
		t.Error("Vanilla configuration accepted the Adam solver type")
	}
}
