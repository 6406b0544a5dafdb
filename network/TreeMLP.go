package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// treeMLP implements a multi-layered perceptron with a tree structure.
// A root network first computes a shared hidden representation of the
// input observations. Each leaf network then computes a separate
// prediction from this shared representation:
//
//	          ┌─ leaf network 1 ─→ prediction 1
//	root ─────┼─ leaf network 2 ─→ prediction 2
//	          └─ leaf network 3 ─→ prediction 3
//
// A treeMLP is useful for implementing policies that predict multiple
// quantities from a single observation, such as a Gaussian policy
// whose leaves predict the mean and the log standard deviation.
type treeMLP struct {
	g           *G.ExprGraph
	rootLayers  []Layer
	leafLayers  [][]Layer
	input       *G.Node
	numOutputs  []int
	numInputs   int
	batchSize   int

	learnables G.Nodes
	model      []G.ValueGrad

	predictions []*G.Node
	predVals    []G.Value
}

// NewTreeMLP creates and returns a new tree MLP on graph g. The
// features and batch parameters determine the shape of the input node.
//
// The root network has len(rootHiddenSizes) layers, parameterized by
// rootHiddenSizes, rootBiases, and rootActivations in the same way as
// NewMultiHeadMLP. The network has len(leafHiddenSizes) leaf networks.
// For leaf network i, leafHiddenSizes[i], leafBiases[i], and
// leafActivations[i] parameterize its hidden layers, and a final
// linear layer is appended so that the leaf predicts outputs[i]
// values per input row.
func NewTreeMLP(features, batch int, outputs []int, g *G.ExprGraph,
	rootHiddenSizes []int, rootBiases []bool,
	rootActivations []*Activation, leafHiddenSizes [][]int,
	leafBiases [][]bool, leafActivations [][]*Activation,
	init G.InitWFn) (NeuralNet, error) {
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("treeMLPInput"), G.WithInit(G.Zeroes()))

	return NewTreeMLPFromInput(input, outputs, g, rootHiddenSizes,
		rootBiases, rootActivations, leafHiddenSizes, leafBiases,
		leafActivations, init, "")
}

// NewTreeMLPFromInput returns a new tree MLP whose input is a specific
// node of an existing graph. The prefix parameter names the network's
// weights so that multiple networks can share a computational graph.
func NewTreeMLPFromInput(input *G.Node, outputs []int, g *G.ExprGraph,
	rootHiddenSizes []int, rootBiases []bool,
	rootActivations []*Activation, leafHiddenSizes [][]int,
	leafBiases [][]bool, leafActivations [][]*Activation,
	init G.InitWFn, prefix string) (NeuralNet, error) {
	// Validate the root network architecture
	if len(rootHiddenSizes) != len(rootActivations) {
		msg := "newtreemlp: invalid number of root activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(rootHiddenSizes),
			len(rootActivations))
	}
	if len(rootHiddenSizes) != len(rootBiases) {
		msg := "newtreemlp: invalid number of root biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(rootHiddenSizes), len(rootBiases))
	}

	// Validate the leaf network architectures
	if len(leafHiddenSizes) == 0 {
		return nil, fmt.Errorf("newtreemlp: at least one leaf network " +
			"is required")
	}
	if len(leafHiddenSizes) != len(outputs) {
		msg := "newtreemlp: one output size per leaf network is " +
			"required\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(leafHiddenSizes), len(outputs))
	}
	if len(leafHiddenSizes) != len(leafActivations) {
		msg := "newtreemlp: invalid number of leaf activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(leafHiddenSizes),
			len(leafActivations))
	}
	if len(leafHiddenSizes) != len(leafBiases) {
		msg := "newtreemlp: invalid number of leaf biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(leafHiddenSizes), len(leafBiases))
	}
	for i := range leafHiddenSizes {
		if len(leafHiddenSizes[i]) != len(leafActivations[i]) {
			msg := "newtreemlp: invalid number of activations for leaf " +
				"%d\n\twant(%d)\n\thave(%d)"
			return nil, fmt.Errorf(msg, i, len(leafHiddenSizes[i]),
				len(leafActivations[i]))
		}
		if len(leafHiddenSizes[i]) != len(leafBiases[i]) {
			msg := "newtreemlp: invalid number of biases for leaf " +
				"%d\n\twant(%d)\n\thave(%d)"
			return nil, fmt.Errorf(msg, i, len(leafHiddenSizes[i]),
				len(leafBiases[i]))
		}
	}

	if input.Graph() != g {
		return nil, fmt.Errorf("newtreemlp: input is not on the " +
			"argument graph")
	}
	if !input.IsMatrix() {
		return nil, fmt.Errorf("newtreemlp: input must be a matrix")
	}
	features := input.Shape()[1]
	batch := input.Shape()[0]

	rootLayers := addFCLayers(g, rootHiddenSizes, rootBiases,
		rootActivations, init, features, prefix+"Root")

	rootOutputs := features
	if len(rootHiddenSizes) > 0 {
		rootOutputs = rootHiddenSizes[len(rootHiddenSizes)-1]
	}

	leafLayers := make([][]Layer, len(leafHiddenSizes))
	for i := range leafHiddenSizes {
		// Append the final linear layer of each leaf network
		sizes := append([]int{}, leafHiddenSizes[i]...)
		sizes = append(sizes, outputs[i])
		withBiases := append([]bool{}, leafBiases[i]...)
		withBiases = append(withBiases, true)
		acts := append([]*Activation{}, leafActivations[i]...)
		acts = append(acts, Identity())

		leafLayers[i] = addFCLayers(g, sizes, withBiases, acts, init,
			rootOutputs, fmt.Sprintf("%vLeaf%d", prefix, i))
	}

	net := &treeMLP{
		g:          g,
		rootLayers: rootLayers,
		leafLayers: leafLayers,
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  batch,
	}

	if err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newtreemlp: could not compute forward "+
			"pass: %v", err)
	}

	return net, nil
}

// Graph returns the computational graph of the treeMLP
func (t *treeMLP) Graph() *G.ExprGraph {
	return t.g
}

// BatchSize returns the batch size of inputs to the network
func (t *treeMLP) BatchSize() int {
	return t.batchSize
}

// Features returns the number of features per input node
func (t *treeMLP) Features() []int {
	return []int{t.numInputs}
}

// Input returns the input node of the network
func (t *treeMLP) Input() []*G.Node {
	return []*G.Node{t.input}
}

// SetInput sets the value of the network's input node before running
// the forward pass
func (t *treeMLP) SetInput(input []float64) error {
	if len(input) != t.numInputs*t.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs"+
			"\n\twant(%v)\n\thave(%v)", t.numInputs*t.batchSize,
			len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(t.input.Shape()...),
	)
	return G.Let(t.input, inputTensor)
}

// Set sets the weights of the treeMLP to be equal to the weights of
// another NeuralNet with the same architecture
func (t *treeMLP) Set(source NeuralNet) error {
	return setLearnables(t.Learnables(), source.Learnables())
}

// Polyak sets the weights of the treeMLP to a Polyak average between
// its existing weights and the weights of another NeuralNet with the
// same architecture
func (t *treeMLP) Polyak(source NeuralNet, tau float64) error {
	return polyakLearnables(t.Learnables(), source.Learnables(), tau)
}

// Learnables returns the learnable nodes in the treeMLP
func (t *treeMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if t.learnables == nil {
		t.learnables = layerLearnables(t.rootLayers)
		for _, leaf := range t.leafLayers {
			t.learnables = append(t.learnables, layerLearnables(leaf)...)
		}
	}
	return t.learnables
}

// Model returns the learnable nodes with their gradients
func (t *treeMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if t.model == nil {
		t.model = make([]G.ValueGrad, 0, len(t.Learnables()))
		for _, node := range t.Learnables() {
			t.model = append(t.model, node)
		}
	}
	return t.model
}

// fwd performs the forward pass of the treeMLP on the input node
func (t *treeMLP) fwd() error {
	rootOut := t.input
	var err error
	for i, l := range t.rootLayers {
		if rootOut, err = l.fwd(rootOut); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"root layer %v: %v", i, err)
		}
	}

	t.predictions = make([]*G.Node, len(t.leafLayers))
	t.predVals = make([]G.Value, len(t.leafLayers))
	for i, leaf := range t.leafLayers {
		pred := rootOut
		for j, l := range leaf {
			if pred, err = l.fwd(pred); err != nil {
				return fmt.Errorf("fwd: could not compute forward pass "+
					"of layer %v of leaf network %v: %v", j, i, err)
			}
		}
		t.predictions[i] = pred
		G.Read(t.predictions[i], &t.predVals[i])
	}

	return nil
}

// Output returns the outputs of each leaf network of the treeMLP
func (t *treeMLP) Output() []G.Value {
	return t.predVals
}

// Prediction returns the nodes of the computational graph that store
// the output of each leaf network of the treeMLP
func (t *treeMLP) Prediction() []*G.Node {
	return t.predictions
}
