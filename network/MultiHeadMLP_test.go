package network

import (
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// TestMultiHeadMLPForward ensures that a multi-head MLP can be
// constructed and run on a batch of inputs, producing predictions of
// the correct shape.
func TestMultiHeadMLPForward(t *testing.T) {
	const features = 3
	const batch = 4
	const outputs = 2

	g := G.NewGraph()
	net, err := NewMultiHeadMLP(features, batch, outputs, g,
		[]int{8}, []bool{true}, G.GlorotN(1.0), []*Activation{ReLU()})
	if err != nil {
		t.Fatalf("could not construct network: %v", err)
	}

	input := make([]float64, features*batch)
	for i := range input {
		input[i] = float64(i) / 10.0
	}
	if err := net.SetInput(input); err != nil {
		t.Fatalf("could not set input: %v", err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run forward pass: %v", err)
	}

	out := net.Output()
	if len(out) != 1 {
		t.Fatalf("expected a single output value, got %v", len(out))
	}
	shape := out[0].(*tensor.Dense).Shape()
	if shape[0] != batch || shape[1] != outputs {
		t.Errorf("incorrect output shape \n\twant(%v, %v)\n\thave(%v)",
			batch, outputs, shape)
	}
}

// TestMultiHeadMLPFromInputs ensures that an MLP built over multiple
// input nodes concatenates its inputs along the feature dimension.
func TestMultiHeadMLPFromInputs(t *testing.T) {
	const batch = 2

	g := G.NewGraph()
	state := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 3),
		G.WithName("state"), G.WithInit(G.Zeroes()))
	action := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
		G.WithName("action"), G.WithInit(G.Zeroes()))

	net, err := NewMultiHeadMLPFromInputs([]*G.Node{state, action}, 1, g,
		[]int{5}, []bool{true}, G.GlorotN(1.0), []*Activation{TanH()},
		"critic")
	if err != nil {
		t.Fatalf("could not construct network: %v", err)
	}

	if net.SetInput(make([]float64, batch*4)) == nil {
		t.Error("expected SetInput to fail for a multi-input network")
	}

	features := net.Features()
	if len(features) != 2 || features[0] != 3 || features[1] != 1 {
		t.Errorf("incorrect input features: %v", features)
	}

	stateTensor := tensor.New(tensor.WithShape(batch, 3),
		tensor.WithBacking([]float64{1, 2, 3, 4, 5, 6}))
	actionTensor := tensor.New(tensor.WithShape(batch, 1),
		tensor.WithBacking([]float64{-1, 1}))
	if err := G.Let(state, stateTensor); err != nil {
		t.Fatalf("could not set state input: %v", err)
	}
	if err := G.Let(action, actionTensor); err != nil {
		t.Fatalf("could not set action input: %v", err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run forward pass: %v", err)
	}

	shape := net.Output()[0].(*tensor.Dense).Shape()
	if shape[0] != batch || shape[1] != 1 {
		t.Errorf("incorrect output shape \n\twant(%v, 1)\n\thave(%v)",
			batch, shape)
	}
}

// TestTreeMLPLeaves ensures that a tree MLP produces one prediction
// per leaf network, each of the requested output size.
func TestTreeMLPLeaves(t *testing.T) {
	const features = 2
	const batch = 3

	g := G.NewGraph()
	net, err := NewTreeMLP(features, batch, []int{1, 1}, g,
		[]int{10}, []bool{true}, []*Activation{ReLU()},
		[][]int{{4}, {4}}, [][]bool{{true}, {true}},
		[][]*Activation{{ReLU()}, {ReLU()}}, G.GlorotN(1.0))
	if err != nil {
		t.Fatalf("could not construct network: %v", err)
	}

	if err := net.SetInput(make([]float64, features*batch)); err != nil {
		t.Fatalf("could not set input: %v", err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run forward pass: %v", err)
	}

	out := net.Output()
	if len(out) != 2 {
		t.Fatalf("expected one output per leaf network, got %v", len(out))
	}
	for i := range out {
		shape := out[i].(*tensor.Dense).Shape()
		if shape[0] != batch || shape[1] != 1 {
			t.Errorf("incorrect shape for leaf %v output "+
				"\n\twant(%v, 1)\n\thave(%v)", i, batch, shape)
		}
	}
}

// TestSet ensures that setting one network's weights from another
// results in identical predictions on identical inputs.
func TestSet(t *testing.T) {
	const features = 3
	const batch = 1

	g1 := G.NewGraph()
	net1, err := NewSingleHeadMLP(features, batch, g1, []int{6},
		[]bool{true}, G.GlorotU(1.0), []*Activation{ReLU()})
	if err != nil {
		t.Fatalf("could not construct network: %v", err)
	}

	g2 := G.NewGraph()
	net2, err := NewSingleHeadMLP(features, batch, g2, []int{6},
		[]bool{true}, G.GlorotU(1.0), []*Activation{ReLU()})
	if err != nil {
		t.Fatalf("could not construct network: %v", err)
	}

	if err := Set(net2, net1); err != nil {
		t.Fatalf("could not set network weights: %v", err)
	}

	input := []float64{0.5, -0.25, 1.0}
	for _, net := range []NeuralNet{net1, net2} {
		if err := net.SetInput(input); err != nil {
			t.Fatalf("could not set input: %v", err)
		}
		vm := G.NewTapeMachine(net.Graph())
		if err := vm.RunAll(); err != nil {
			t.Fatalf("could not run forward pass: %v", err)
		}
		vm.Close()
	}

	out1 := net1.Output()[0].Data().([]float64)
	out2 := net2.Output()[0].Data().([]float64)
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Errorf("networks with identical weights disagree "+
				"\n\twant(%v)\n\thave(%v)", out1[i], out2[i])
		}
	}
}
