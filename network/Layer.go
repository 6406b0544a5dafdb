package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer implements a single layer of a neural network
type Layer interface {
	fwd(*G.Node) (*G.Node, error)
	Weights() *G.Node
	Bias() *G.Node
	Activation() *Activation
}

// fcLayer implements a fully connected layer of a feedforward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	if f.Weights() != nil {
		x = G.Must(G.Mul(x, f.Weights()))
	}
	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x = G.Must(G.BroadcastAdd(x, f.Bias(), nil, []byte{0}))
	}
	if f.Activation() == nil || f.Activation().IsIdentity() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

func (f *fcLayer) Activation() *Activation {
	return f.act
}

func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

// addFCLayers creates the fully connected layers of an MLP on graph g.
// For index i, hiddenSizes[i] is the number of units in layer i,
// biases[i] determines whether layer i has a bias unit, and
// activations[i] is the activation function of layer i. The features
// parameter is the number of input features to the first layer, and
// init determines the weight initialization scheme. Weights are named
// with the argument prefix so that multiple networks can share a
// computational graph.
func addFCLayers(g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, features int,
	prefix string) []Layer {
	layers := make([]Layer, len(hiddenSizes))
	inputs := features

	for i, size := range hiddenSizes {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(inputs, size),
			G.WithInit(init),
			G.WithName(fmt.Sprintf("%vL%dW", prefix, i)),
		)

		var bias *G.Node
		if biases[i] {
			bias = G.NewMatrix(
				g,
				tensor.Float64,
				G.WithShape(1, size),
				G.WithInit(G.Zeroes()),
				G.WithName(fmt.Sprintf("%vL%dB", prefix, i)),
			)
		}

		layers[i] = &fcLayer{
			weights: weights,
			bias:    bias,
			act:     activations[i],
		}
		inputs = size
	}

	return layers
}

// layerLearnables returns the learnable nodes of a slice of layers
func layerLearnables(layers []Layer) G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(layers))
	for _, layer := range layers {
		learnables = append(learnables, layer.Weights())
		if bias := layer.Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return learnables
}
