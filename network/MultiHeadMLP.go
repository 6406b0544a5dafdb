package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted.
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []Layer
	inputs     []*G.Node
	numOutputs int
	numInputs  []int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// with outputs output nodes. The graph parameter g is populated with
// the MLP.
//
// The MLP has number of layers equal to len(hiddenSizes) + 1. A final
// linear layer with a bias unit and no activation is always added so
// that given any input, the prediction has outputs columns. For index
// i, hiddenSizes[i] is the number of nodes in hidden layer i;
// biases[i] is true if hidden layer i contains a bias unit; and
// activations[i] is the activation function of hidden layer i. The
// init parameter determines the weight initialization scheme.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	return NewMultiHeadMLPFromInputs([]*G.Node{input}, outputs, g,
		hiddenSizes, biases, init, activations, "")
}

// NewSingleHeadMLP returns an MLP with a single output node. This
// function is a convenience function for calling NewMultiHeadMLP with
// an output size of 1.
func NewSingleHeadMLP(features, batch int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	return NewMultiHeadMLP(features, batch, 1, g, hiddenSizes, biases,
		init, activations)
}

// NewMultiHeadMLPFromInputs returns a new multi-head output MLP whose
// input is a specific node or nodes of an existing graph. If multiple
// input nodes are given, they are first concatenated along the
// feature (column) dimension; this allows, for example, state-action
// value networks whose inputs are a state node and an action node.
// The prefix parameter names the network's weights so that multiple
// networks can share a single graph.
func NewMultiHeadMLPFromInputs(inputs []*G.Node, outputs int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation, prefix string) (NeuralNet, error) {
	// Ensure one activation and one bias flag per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmultiheadmlp: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newmultiheadmlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("newmultiheadmlp: at least one input " +
			"node is required")
	}

	numInputs := make([]int, len(inputs))
	features := 0
	batch := inputs[0].Shape()[0]
	for i, input := range inputs {
		if input.Graph() != g {
			return nil, fmt.Errorf("newmultiheadmlp: input %d is not on "+
				"the argument graph", i)
		}
		if !input.IsMatrix() {
			return nil, fmt.Errorf("newmultiheadmlp: input %d must be a "+
				"matrix", i)
		}
		if input.Shape()[0] != batch {
			return nil, fmt.Errorf("newmultiheadmlp: inputs have "+
				"mismatched batch dimensions \n\twant(%d)\n\thave(%d)",
				batch, input.Shape()[0])
		}
		numInputs[i] = input.Shape()[1]
		features += input.Shape()[1]
	}

	// Add a final linear layer so that the output heads are predicted
	// by the network
	hiddenSizes = append(hiddenSizes, outputs)
	biases = append(biases, true)
	activations = append(activations, Identity())

	layers := addFCLayers(g, hiddenSizes, biases, activations, init,
		features, prefix)

	net := &multiHeadMLP{
		g:          g,
		layers:     layers,
		inputs:     inputs,
		numOutputs: outputs,
		numInputs:  numInputs,
		batchSize:  batch,
	}

	if err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: could not compute "+
			"forward pass: %v", err)
	}

	return net, nil
}

// Graph returns the computational graph of the multiHeadMLP
func (e *multiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// BatchSize returns the batch size of inputs to the network
func (e *multiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of features per input node
func (e *multiHeadMLP) Features() []int {
	return e.numInputs
}

// Outputs returns the number of outputs predicted per input row
func (e *multiHeadMLP) Outputs() int {
	return e.numOutputs
}

// Input returns the input nodes of the network
func (e *multiHeadMLP) Input() []*G.Node {
	return e.inputs
}

// SetInput sets the value of the network's input node before running
// the forward pass. SetInput returns an error for networks with
// multiple input nodes; such inputs must be set with gorgonia.Let.
func (e *multiHeadMLP) SetInput(input []float64) error {
	if len(e.inputs) != 1 {
		return fmt.Errorf("setinput: network has %d input nodes, set "+
			"each with gorgonia.Let", len(e.inputs))
	}
	if len(input) != e.numInputs[0]*e.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs"+
			"\n\twant(%v)\n\thave(%v)", e.numInputs[0]*e.batchSize,
			len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.inputs[0].Shape()...),
	)
	return G.Let(e.inputs[0], inputTensor)
}

// Set sets the weights of the multiHeadMLP to be equal to the weights
// of another NeuralNet with the same architecture
func (e *multiHeadMLP) Set(source NeuralNet) error {
	return setLearnables(e.Learnables(), source.Learnables())
}

// Polyak sets the weights of the multiHeadMLP to a Polyak average
// between its existing weights and the weights of another NeuralNet
// with the same architecture
func (e *multiHeadMLP) Polyak(source NeuralNet, tau float64) error {
	return polyakLearnables(e.Learnables(), source.Learnables(), tau)
}

// Learnables returns the learnable nodes in the multiHeadMLP
func (e *multiHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if e.learnables == nil {
		e.learnables = layerLearnables(e.layers)
	}
	return e.learnables
}

// Model returns the learnable nodes with their gradients
func (e *multiHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if e.model == nil {
		e.model = make([]G.ValueGrad, 0, len(e.Learnables()))
		for _, node := range e.Learnables() {
			e.model = append(e.model, node)
		}
	}
	return e.model
}

// fwd performs the forward pass of the multiHeadMLP on the input
// nodes
func (e *multiHeadMLP) fwd() error {
	var pred *G.Node
	if len(e.inputs) > 1 {
		pred = G.Must(G.Concat(1, e.inputs...))
	} else {
		pred = e.inputs[0]
	}

	var err error
	for i, l := range e.layers {
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %v: %v", i, err)
		}
	}

	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return nil
}

// Output returns the output of the multiHeadMLP
func (e *multiHeadMLP) Output() []G.Value {
	return []G.Value{e.predVal}
}

// Prediction returns the node of the computational graph that stores
// the output of the multiHeadMLP
func (e *multiHeadMLP) Prediction() []*G.Node {
	return []*G.Node{e.prediction}
}
