// Package network implements neural networks on Gorgonia expression
// graphs
package network

import (
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet implements a neural network whose forward pass has been
// added to a Gorgonia expression graph. A NeuralNet does not own a VM:
// callers construct VMs over the graph so that loss functions and
// gradients external to the network can be included.
type NeuralNet interface {
	// Graph returns the computational graph holding the network
	Graph() *G.ExprGraph

	// BatchSize returns the number of rows of the network's input
	BatchSize() int

	// Features returns the number of input features per input node
	Features() []int

	// Input returns the network's input nodes. Networks with a single
	// input node support SetInput; networks with multiple input nodes
	// require each input to be set with gorgonia.Let directly.
	Input() []*G.Node

	// SetInput sets the value of the network's single input node
	SetInput([]float64) error

	// Set sets the weights of the network to those of another network
	// with an identical architecture
	Set(NeuralNet) error

	// Polyak sets the weights of the network to a Polyak average
	// between its current weights and those of another network with
	// an identical architecture
	Polyak(NeuralNet, float64) error

	// Learnables returns the learnable nodes of the network
	Learnables() G.Nodes

	// Model returns the learnable nodes with their gradients
	Model() []G.ValueGrad

	// Output returns the values of the network predictions after the
	// graph has been run
	Output() []G.Value

	// Prediction returns the nodes of the computational graph that
	// store the network predictions
	Prediction() []*G.Node
}

// Set sets the weights of dest to the weights of source. The networks
// must share architectures.
func Set(dest, source NeuralNet) error {
	return dest.Set(source)
}

// Polyak sets the weights of dest to a Polyak average between its
// current weights and the weights of source:
//
//	dest <- tau * source + (1 - tau) * dest
//
// The networks must share architectures.
func Polyak(dest, source NeuralNet, tau float64) error {
	return dest.Polyak(source, tau)
}

// setLearnables copies the values of the source learnables into the
// destination learnables
func setLearnables(dest, source G.Nodes) error {
	for i, destLearnable := range dest {
		sourceLearnable := source[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// polyakLearnables sets each destination learnable to a Polyak average
// between itself and the corresponding source learnable
func polyakLearnables(dest, source G.Nodes, tau float64) error {
	for i := range dest {
		weights := dest[i].Value().(*tensor.Dense)
		sourceWeights := source[i].Value().(*tensor.Dense)

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(dest[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}
