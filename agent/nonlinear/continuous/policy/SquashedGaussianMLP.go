// Package policy implements policies for continuous action spaces,
// parameterized by neural networks
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/timestep"
	"github.com/njmarsh/swingup/utils/floatutils"
	"github.com/njmarsh/swingup/utils/op"
)

const (
	// Bounds on the predicted log standard deviation, needed to keep
	// the standard deviation strictly positive and finite
	logStdMin float64 = -20.0
	logStdMax float64 = 2.0

	// Offset inside the squashing correction logarithm, needed to
	// avoid log(0) when tanh saturates
	squashEps float64 = 1e-6
)

// SquashedGaussianMLP implements a squashed Gaussian policy
// parameterized by a tree MLP. The root network computes a shared
// hidden representation of the state. One leaf network predicts the
// mean μ and the other the log standard deviation log(σ) of a
// Gaussian. Actions are selected by sampling from the standard normal
// ɛ ~ N(0, 1) and computing:
//
//	action := tanh(μ + σ * ɛ) * scale
//
// so that actions are always within [-scale, scale]. Because the
// sampled action is a differentiable function of the network outputs
// and the externally sampled noise ɛ, gradients flow through action
// selection, and policy losses that depend on the selected action can
// be constructed directly on the policy's graph.
//
// The log probability of the selected action accounts for the change
// of variables introduced by the tanh squashing:
//
//	log π(a|s) = log N(u; μ, σ) - Σ log(scale * (1 - tanh²(u)) + ε)
//
// where u := μ + σ * ɛ is the unsquashed action.
type SquashedGaussianMLP struct {
	vm  G.VM
	net network.NeuralNet

	noise   *G.Node
	action  *G.Node
	logProb *G.Node

	actionVal  G.Value
	logProbVal G.Value

	normal     distmv.Rander
	actionDims int
	batchSize  int
	scale      float64
}

// NewSquashedGaussianMLP returns a new SquashedGaussianMLP policy
// selecting actions from the argument environment, built on graph g.
// The neural network parameterization is defined by rootHiddenSizes,
// rootBiases, rootActivations, leafHiddenSizes, leafBiases, and
// leafActivations; see network.NewTreeMLP for details. The prefix
// parameter names the policy's weights so that multiple networks can
// share the graph.
//
// When batch == 1, the policy owns a VM over its graph and can select
// actions at each timestep with SelectAction. When batch > 1, the
// policy computes actions and log probabilities for batches of states;
// it is assumed that an external VM containing a loss will run the
// graph, and SelectAction returns an error.
func NewSquashedGaussianMLP(env environment.Environment, batch int,
	g *G.ExprGraph, rootHiddenSizes []int, rootBiases []bool,
	rootActivations []*network.Activation, leafHiddenSizes [][]int,
	leafBiases [][]bool, leafActivations [][]*network.Activation,
	init G.InitWFn, seed uint64,
	prefix string) (*SquashedGaussianMLP, error) {
	if env.ActionSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("newSquashedGaussianMLP: actions must " +
			"be continuous")
	}
	if len(leafHiddenSizes) != 2 {
		return nil, fmt.Errorf("newSquashedGaussianMLP: gaussian "+
			"policy requires 2 leaf networks \n\twant(2)\n\thave(%v)",
			len(leafHiddenSizes))
	}

	features := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()
	scale := env.ActionSpec().UpperBound.AtVec(0)

	input := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, features),
		G.WithName(prefix+"State"), G.WithInit(G.Zeroes()))

	net, err := network.NewTreeMLPFromInput(input,
		[]int{actionDims, actionDims}, g, rootHiddenSizes, rootBiases,
		rootActivations, leafHiddenSizes, leafBiases, leafActivations,
		init, prefix)
	if err != nil {
		return nil, fmt.Errorf("newSquashedGaussianMLP: could not "+
			"create policy network: %v", err)
	}

	mean := net.Prediction()[0]
	logStd, err := op.Clip(net.Prediction()[1], logStdMin, logStdMax)
	if err != nil {
		return nil, fmt.Errorf("newSquashedGaussianMLP: could not "+
			"clip log standard deviation: %v", err)
	}
	std := G.Must(G.Exp(logStd))

	// Reparameterized sampling: u = μ + σ ∘ ɛ
	noise := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, actionDims),
		G.WithName(prefix+"Noise"), G.WithInit(G.Zeroes()))
	unsquashed := G.Must(G.Add(mean, G.Must(G.HadamardProd(std, noise))))

	tanhU := G.Must(G.Tanh(unsquashed))
	scaleConst := G.NewConstant(scale)
	action := G.Must(G.HadamardProd(tanhU, scaleConst))

	// Log density of the squashed, scaled action
	one := G.NewConstant(1.0)
	eps := G.NewConstant(squashEps)
	correction := G.Must(G.Sub(one, G.Must(G.Square(tanhU))))
	correction = G.Must(G.HadamardProd(correction, scaleConst))
	correction = G.Must(G.Add(correction, eps))
	correction = G.Must(G.Log(correction))
	correction = G.Must(G.Sum(correction, 1))

	logProb := op.GaussianLogPdf(mean, std, unsquashed)
	logProb = G.Must(G.Sub(logProb, correction))

	// Standard normal for sampling ɛ
	means := make([]float64, actionDims)
	stds := mat.NewDiagDense(actionDims, floatutils.Ones(actionDims))
	source := rand.NewSource(seed)
	normal, ok := distmv.NewNormal(means, stds, source)
	if !ok {
		return nil, fmt.Errorf("newSquashedGaussianMLP: could not " +
			"create standard normal for action selection")
	}

	pol := &SquashedGaussianMLP{
		net:        net,
		noise:      noise,
		action:     action,
		logProb:    logProb,
		normal:     normal,
		actionDims: actionDims,
		batchSize:  batch,
		scale:      scale,
	}

	G.Read(pol.action, &pol.actionVal)
	G.Read(pol.logProb, &pol.logProbVal)

	// Policies can select actions at each timestep only when using a
	// batch size of 1
	if batch == 1 {
		pol.vm = G.NewTapeMachine(g)
	}

	return pol, nil
}

// SampleNoise samples fresh standard normal noise for every row of
// the policy's batch and sets the noise input of the policy's graph.
// SampleNoise must be called before each run of a VM over the graph
// so that distinct actions are sampled on each run.
func (s *SquashedGaussianMLP) SampleNoise() error {
	backing := make([]float64, s.batchSize*s.actionDims)
	for i := 0; i < s.batchSize; i++ {
		copy(backing[i*s.actionDims:(i+1)*s.actionDims],
			s.normal.Rand(nil))
	}

	noise := tensor.NewDense(tensor.Float64,
		[]int{s.batchSize, s.actionDims},
		tensor.WithBacking(backing),
	)
	return G.Let(s.noise, noise)
}

// SelectAction samples and returns an action at the argument timestep
func (s *SquashedGaussianMLP) SelectAction(
	t timestep.TimeStep) (*mat.VecDense, error) {
	if s.batchSize != 1 {
		return nil, fmt.Errorf("selectAction: action selection can "+
			"only be done with a policy with batch size 1 \n\twant(1)"+
			"\n\thave(%v)", s.batchSize)
	}

	obs := t.Observation.(*mat.VecDense).RawVector().Data
	if err := s.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("selectAction: cannot set input: %v", err)
	}
	if err := s.SampleNoise(); err != nil {
		return nil, fmt.Errorf("selectAction: cannot set noise: %v", err)
	}

	if err := s.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("selectAction: could not run policy "+
			"VM: %v", err)
	}
	defer s.vm.Reset()

	action := make([]float64, s.actionDims)
	copy(action, s.actionVal.Data().([]float64))
	return mat.NewVecDense(s.actionDims, action), nil
}

// Action returns the node holding the policy's sampled action
func (s *SquashedGaussianMLP) Action() *G.Node {
	return s.action
}

// ActionVal returns the value of the node returned by Action()
func (s *SquashedGaussianMLP) ActionVal() G.Value {
	return s.actionVal
}

// LogProb returns the node holding the log probability of the
// policy's sampled action
func (s *SquashedGaussianMLP) LogProb() *G.Node {
	return s.logProb
}

// LogProbVal returns the value of the node returned by LogProb()
func (s *SquashedGaussianMLP) LogProbVal() G.Value {
	return s.logProbVal
}

// Network returns the network of the SquashedGaussianMLP
func (s *SquashedGaussianMLP) Network() network.NeuralNet {
	return s.net
}

// Close closes the policy's VM, if it owns one
func (s *SquashedGaussianMLP) Close() error {
	if s.vm != nil {
		return s.vm.Close()
	}
	return nil
}
