// Package policy implements policies over discrete action spaces,
// parameterized by neural networks
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/timestep"
	"github.com/njmarsh/swingup/utils/op"
)

// CategoricalMLP implements a softmax policy over a discrete action
// space, parameterized by an MLP predicting one logit per action.
// Actions are sampled from the categorical distribution induced by
// the softmax of the logits.
//
// Given a number of discrete actions taken in a number of states, the
// CategoricalMLP can calculate the log probability of selecting each
// of these actions in each corresponding state, which is useful for
// constructing policy gradients.
type CategoricalMLP struct {
	net network.NeuralNet
	vm  G.VM

	logits    *G.Node
	logitsVal G.Value

	actionIndices       *G.Node
	logProbInputActions *G.Node
	logProbVal          G.Value

	batchSize  int
	numActions int

	source rand.Source
}

// NewCategoricalMLP returns a new CategoricalMLP policy selecting
// actions from the argument environment, built on graph g. The MLP
// parameterization is defined by hiddenSizes, biases, and activations;
// see network.NewMultiHeadMLP for details.
//
// When batch == 1, the policy owns a VM over its graph and can select
// actions at each timestep with SelectAction. When batch > 1, the
// policy computes log probabilities for batches of actions, and it is
// assumed that an external VM containing a loss will run the graph.
func NewCategoricalMLP(env environment.Environment, batch int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*network.Activation, init G.InitWFn,
	seed uint64) (*CategoricalMLP, error) {
	if env.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("newCategoricalMLP: softmax policy " +
			"cannot be used with continuous actions")
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := int(env.ActionSpec().UpperBound.AtVec(0)) + 1

	net, err := network.NewMultiHeadMLP(features, batch, numActions, g,
		hiddenSizes, biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: could not create "+
			"policy network: %v", err)
	}

	logits := net.Prediction()[0]

	// Log probability of actions inputted with LogProbOf. The input
	// actions are one-hot encoded so that a row's logit of interest
	// can be selected with a Hadamard product and row sum.
	actionIndices := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("ActionIndices"),
	)
	logitsInputActions := G.Must(G.HadamardProd(actionIndices, logits))
	logitsInputActions = G.Must(G.Sum(logitsInputActions, 1))
	logSumExp := op.LogSumExp(logits, 1)
	logProbInputActions := G.Must(G.Sub(logitsInputActions, logSumExp))

	pol := &CategoricalMLP{
		net:                 net,
		logits:              logits,
		actionIndices:       actionIndices,
		logProbInputActions: logProbInputActions,
		batchSize:           batch,
		numActions:          numActions,
		source:              rand.NewSource(seed),
	}
	G.Read(pol.logits, &pol.logitsVal)
	G.Read(pol.logProbInputActions, &pol.logProbVal)

	if batch == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// SelectAction samples and returns an action at the argument timestep
func (c *CategoricalMLP) SelectAction(
	t timestep.TimeStep) (*mat.VecDense, error) {
	weights, err := c.actionWeights(t)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}

	dist := distuv.NewCategorical(weights, c.source)
	return mat.NewVecDense(1, []float64{dist.Rand()}), nil
}

// LogProbOfAction returns the log probability with which the policy
// selects the argument discrete action at the argument timestep
func (c *CategoricalMLP) LogProbOfAction(t timestep.TimeStep,
	action mat.Vector) (float64, error) {
	weights, err := c.actionWeights(t)
	if err != nil {
		return 0, fmt.Errorf("logProbOfAction: %v", err)
	}

	a := int(action.AtVec(0))
	if a < 0 || a >= c.numActions {
		return 0, fmt.Errorf("logProbOfAction: illegal action %v", a)
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	return math.Log(weights[a] / total), nil
}

// actionWeights runs the policy network on the argument timestep's
// observation and returns the unnormalized action probabilities
func (c *CategoricalMLP) actionWeights(
	t timestep.TimeStep) ([]float64, error) {
	if c.batchSize != 1 {
		return nil, fmt.Errorf("action selection can only be done "+
			"with a policy with batch size 1 \n\twant(1)\n\thave(%v)",
			c.batchSize)
	}

	obs := t.Observation.(*mat.VecDense).RawVector().Data
	if err := c.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("cannot set input: %v", err)
	}
	if err := c.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("could not run policy VM: %v", err)
	}
	defer c.vm.Reset()

	logits := c.logitsVal.Data().([]float64)

	// Softmax with the max logit subtracted for numerical stability.
	// The weights need not be normalized for sampling.
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	weights := make([]float64, len(logits))
	for i, l := range logits {
		weights[i] = math.Exp(l - maxLogit)
	}
	return weights, nil
}

// LogProbOf sets the state and action inputs of the policy's
// computational graph to the argument states and actions so that when
// a VM of the graph is run, the log probability of each action taken
// in the corresponding state is computed and stored in the node
// returned by LogProbNode.
//
// This function does not return the log probabilities themselves
// because that would require running the policy's VM, which does not
// contain any loss function. An external VM containing a loss built
// over the returned node must run the graph.
func (c *CategoricalMLP) LogProbOf(s, a []float64) (*G.Node, error) {
	if err := c.net.SetInput(s); err != nil {
		return nil, fmt.Errorf("logProbOf: could not set states: %v",
			err)
	}

	// One-hot encode the actions
	actionIndices := make([]float64, 0, c.numActions*c.batchSize)
	for i := range a {
		row := make([]float64, c.numActions)
		row[int(a[i])] = 1.0
		actionIndices = append(actionIndices, row...)
	}
	actionIndicesTensor := tensor.NewDense(tensor.Float64,
		[]int{c.batchSize, c.numActions},
		tensor.WithBacking(actionIndices),
	)
	if err := G.Let(c.actionIndices, actionIndicesTensor); err != nil {
		return nil, fmt.Errorf("logProbOf: could not set actions: %v",
			err)
	}

	return c.LogProbNode(), nil
}

// LogProbNode returns the node that holds the log probability of
// actions inputted with LogProbOf when the computational graph is run
func (c *CategoricalMLP) LogProbNode() *G.Node {
	return c.logProbInputActions
}

// LogProbVal returns the value of the node returned by LogProbNode()
func (c *CategoricalMLP) LogProbVal() G.Value {
	return c.logProbVal
}

// Logits returns the node holding the policy network's logits
func (c *CategoricalMLP) Logits() *G.Node {
	return c.logits
}

// Network returns the network of the CategoricalMLP
func (c *CategoricalMLP) Network() network.NeuralNet {
	return c.net
}

// Close closes the policy's VM, if it owns one
func (c *CategoricalMLP) Close() error {
	if c.vm != nil {
		return c.vm.Close()
	}
	return nil
}
