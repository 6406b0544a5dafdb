// Package sac implements the Soft Actor-Critic algorithm:
//
//	https://arxiv.org/abs/1801.01290
//
// The implementation uses twin action value critics with Polyak
// averaged target networks and a fixed entropy temperature.
package sac

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/njmarsh/swingup/agent"
	"github.com/njmarsh/swingup/agent/nonlinear/continuous/policy"
	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/expreplay"
	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/solver"
	"github.com/njmarsh/swingup/timestep"
	"github.com/njmarsh/swingup/utils/op"
)

// SAC implements the Soft Actor-Critic algorithm. The agent maintains
// three groups of networks:
//
//  1. A behaviour policy with batch size 1 for selecting actions at
//     each timestep, kept in sync with the train policy.
//
//  2. A critic graph holding the twin action value critics Q1 and Q2,
//     updated towards the soft Bellman target
//
//     y = r + ℽ (min(Q1', Q2')(s', ã') - α log π(ã'|s'))
//
//     where ã' is sampled from the current policy at the next state
//     and Q1', Q2' are Polyak averaged target critics held on a
//     separate graph.
//
//  3. An actor graph holding the train policy along with copies of
//     the twin critics. Since the policy's sampled action is a
//     differentiable function of the policy weights, the policy loss
//
//     mean(α log π(a|s) - min(Q1, Q2)(s, a))
//
//     is minimized by gradient descent through the sampled action.
//     The critic copies are synced from the critic graph before each
//     actor update, and only the policy weights are stepped.
type SAC struct {
	// Action selection
	behaviour   *policy.SquashedGaussianMLP
	uniform     distmv.Rander
	warmUpSteps int
	stepsTaken  int

	// Actor graph
	trainPolicy  *policy.SquashedGaussianMLP
	actorCritic1 network.NeuralNet
	actorCritic2 network.NeuralNet
	actorVM      G.VM
	policySolver *solver.Solver

	// Policy for sampling next-state actions of the Bellman target,
	// synced with the train policy
	samplePolicy *policy.SquashedGaussianMLP
	sampleVM     G.VM

	// Critic graph
	critic1      network.NeuralNet
	critic2      network.NeuralNet
	criticState  *G.Node
	criticAction *G.Node
	criticTarget *G.Node
	criticVM     G.VM
	criticModel  []G.ValueGrad
	criticSolver *solver.Solver

	// Target critic graph
	targetCritic1 network.NeuralNet
	targetCritic2 network.NeuralNet
	targetState   *G.Node
	targetAction  *G.Node
	targetVM      G.VM

	replay      expreplay.ExperienceReplayer
	prevStep    timestep.TimeStep
	batchSize   int
	features    int
	actionDims  int
	temperature float64
	tau         float64
}

// New creates and returns a new SAC agent acting in the argument
// environment
func New(env environment.Environment, config Config,
	seed uint64) (agent.Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("sac: invalid configuration: %v", err)
	}
	if env.ActionSpec().Cardinality != environment.Continuous {
		return nil, fmt.Errorf("sac: SAC can only be used with " +
			"continuous actions")
	}

	features := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()
	batch := config.BatchSize
	init := config.InitWFn.InitWFn()

	// Behaviour policy for action selection
	behaviour, err := policy.NewSquashedGaussianMLP(
		env, 1, G.NewGraph(), config.RootLayers, config.RootBiases,
		config.RootActivations, config.LeafLayers, config.LeafBiases,
		config.LeafActivations, init, seed, "Policy",
	)
	if err != nil {
		return nil, fmt.Errorf("sac: could not create behaviour "+
			"policy: %v", err)
	}

	// Train policy and critic copies share the actor graph
	gActor := G.NewGraph()
	trainPolicy, err := policy.NewSquashedGaussianMLP(
		env, batch, gActor, config.RootLayers, config.RootBiases,
		config.RootActivations, config.LeafLayers, config.LeafBiases,
		config.LeafActivations, init, seed, "Policy",
	)
	if err != nil {
		return nil, fmt.Errorf("sac: could not create train policy: %v",
			err)
	}

	actorInputs := []*G.Node{
		trainPolicy.Network().Input()[0],
		trainPolicy.Action(),
	}
	actorCritic1, err := network.NewMultiHeadMLPFromInputs(actorInputs,
		1, gActor, config.CriticLayers, config.CriticBiases, init,
		config.CriticActivations, "Q1Copy")
	if err != nil {
		return nil, fmt.Errorf("sac: could not create critic copy: %v",
			err)
	}
	actorCritic2, err := network.NewMultiHeadMLPFromInputs(actorInputs,
		1, gActor, config.CriticLayers, config.CriticBiases, init,
		config.CriticActivations, "Q2Copy")
	if err != nil {
		return nil, fmt.Errorf("sac: could not create critic copy: %v",
			err)
	}

	// Policy loss: mean(α log π(a|s) - min(Q1, Q2)(s, a))
	minQ, err := op.Min(actorCritic1.Prediction()[0],
		actorCritic2.Prediction()[0])
	if err != nil {
		return nil, fmt.Errorf("sac: could not compute minimum "+
			"critic value: %v", err)
	}
	minQ = G.Must(G.Ravel(minQ))
	alpha := G.NewConstant(config.Temperature, G.WithName("alpha"))
	entropyTerm := G.Must(G.HadamardProd(trainPolicy.LogProb(), alpha))
	actorLoss := G.Must(G.Sub(entropyTerm, minQ))
	actorLoss = G.Must(G.Mean(actorLoss))

	policyLearnables := trainPolicy.Network().Learnables()
	if _, err := G.Grad(actorLoss, policyLearnables...); err != nil {
		return nil, fmt.Errorf("sac: could not compute policy "+
			"gradient: %v", err)
	}
	actorVM := G.NewTapeMachine(gActor,
		G.BindDualValues(policyLearnables...))

	// Policy for sampling next-state actions of the Bellman target
	samplePolicy, err := policy.NewSquashedGaussianMLP(
		env, batch, G.NewGraph(), config.RootLayers, config.RootBiases,
		config.RootActivations, config.LeafLayers, config.LeafBiases,
		config.LeafActivations, init, seed, "Policy",
	)
	if err != nil {
		return nil, fmt.Errorf("sac: could not create sampling "+
			"policy: %v", err)
	}
	sampleVM := G.NewTapeMachine(samplePolicy.Network().Graph())

	// Twin critics share the critic graph
	gCritic := G.NewGraph()
	criticState := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batch, features), G.WithName("State"),
		G.WithInit(G.Zeroes()))
	criticAction := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batch, actionDims), G.WithName("Action"),
		G.WithInit(G.Zeroes()))
	criticInputs := []*G.Node{criticState, criticAction}

	critic1, err := network.NewMultiHeadMLPFromInputs(criticInputs, 1,
		gCritic, config.CriticLayers, config.CriticBiases, init,
		config.CriticActivations, "Q1")
	if err != nil {
		return nil, fmt.Errorf("sac: could not create critic: %v", err)
	}
	critic2, err := network.NewMultiHeadMLPFromInputs(criticInputs, 1,
		gCritic, config.CriticLayers, config.CriticBiases, init,
		config.CriticActivations, "Q2")
	if err != nil {
		return nil, fmt.Errorf("sac: could not create critic: %v", err)
	}

	// Critic loss: mean((Q1(s,a) - y)²) + mean((Q2(s,a) - y)²)
	criticTarget := G.NewMatrix(gCritic, tensor.Float64,
		G.WithShape(batch, 1), G.WithName("Target"),
		G.WithInit(G.Zeroes()))
	loss1 := G.Must(G.Sub(critic1.Prediction()[0], criticTarget))
	loss1 = G.Must(G.Mean(G.Must(G.Square(loss1))))
	loss2 := G.Must(G.Sub(critic2.Prediction()[0], criticTarget))
	loss2 = G.Must(G.Mean(G.Must(G.Square(loss2))))
	criticLoss := G.Must(G.Add(loss1, loss2))

	criticLearnables := append(critic1.Learnables(),
		critic2.Learnables()...)
	if _, err := G.Grad(criticLoss, criticLearnables...); err != nil {
		return nil, fmt.Errorf("sac: could not compute critic "+
			"gradient: %v", err)
	}
	criticVM := G.NewTapeMachine(gCritic,
		G.BindDualValues(criticLearnables...))
	criticModel := append(critic1.Model(), critic2.Model()...)

	// Target critics hold the Polyak averaged critic weights
	gTarget := G.NewGraph()
	targetState := G.NewMatrix(gTarget, tensor.Float64,
		G.WithShape(batch, features), G.WithName("State"),
		G.WithInit(G.Zeroes()))
	targetAction := G.NewMatrix(gTarget, tensor.Float64,
		G.WithShape(batch, actionDims), G.WithName("Action"),
		G.WithInit(G.Zeroes()))
	targetInputs := []*G.Node{targetState, targetAction}

	targetCritic1, err := network.NewMultiHeadMLPFromInputs(
		targetInputs, 1, gTarget, config.CriticLayers,
		config.CriticBiases, init, config.CriticActivations, "Q1")
	if err != nil {
		return nil, fmt.Errorf("sac: could not create target critic: "+
			"%v", err)
	}
	targetCritic2, err := network.NewMultiHeadMLPFromInputs(
		targetInputs, 1, gTarget, config.CriticLayers,
		config.CriticBiases, init, config.CriticActivations, "Q2")
	if err != nil {
		return nil, fmt.Errorf("sac: could not create target critic: "+
			"%v", err)
	}
	targetVM := G.NewTapeMachine(gTarget)

	// All policies and all critic pairs start with identical weights
	if err := network.Set(trainPolicy.Network(),
		behaviour.Network()); err != nil {
		return nil, fmt.Errorf("sac: could not sync policies: %v", err)
	}
	if err := network.Set(samplePolicy.Network(),
		behaviour.Network()); err != nil {
		return nil, fmt.Errorf("sac: could not sync policies: %v", err)
	}
	if err := network.Set(targetCritic1, critic1); err != nil {
		return nil, fmt.Errorf("sac: could not sync critics: %v", err)
	}
	if err := network.Set(targetCritic2, critic2); err != nil {
		return nil, fmt.Errorf("sac: could not sync critics: %v", err)
	}

	replay, err := expreplay.New(config.MinReplayCapacity,
		config.ReplayCapacity, batch, features, actionDims, seed)
	if err != nil {
		return nil, fmt.Errorf("sac: could not create replay "+
			"buffer: %v", err)
	}

	// Uniform action sampler for warm-up steps
	bounds := make([]r1.Interval, actionDims)
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: env.ActionSpec().LowerBound.AtVec(i),
			Max: env.ActionSpec().UpperBound.AtVec(i),
		}
	}
	uniform := distmv.NewUniform(bounds, rand.NewSource(seed))

	return &SAC{
		behaviour:   behaviour,
		uniform:     uniform,
		warmUpSteps: config.WarmUpSteps,

		trainPolicy:  trainPolicy,
		actorCritic1: actorCritic1,
		actorCritic2: actorCritic2,
		actorVM:      actorVM,
		policySolver: config.PolicySolver,

		samplePolicy: samplePolicy,
		sampleVM:     sampleVM,

		critic1:      critic1,
		critic2:      critic2,
		criticState:  criticState,
		criticAction: criticAction,
		criticTarget: criticTarget,
		criticVM:     criticVM,
		criticModel:  criticModel,
		criticSolver: config.CriticSolver,

		targetCritic1: targetCritic1,
		targetCritic2: targetCritic2,
		targetState:   targetState,
		targetAction:  targetAction,
		targetVM:      targetVM,

		replay:      replay,
		batchSize:   batch,
		features:    features,
		actionDims:  actionDims,
		temperature: config.Temperature,
		tau:         config.Tau,
	}, nil
}

// SelectAction selects an action at the argument timestep. During
// warm-up, actions are sampled uniformly at random from the action
// bounds; afterwards, actions are sampled from the behaviour policy.
func (s *SAC) SelectAction(t timestep.TimeStep) (*mat.VecDense, error) {
	if s.stepsTaken < s.warmUpSteps {
		return mat.NewVecDense(s.actionDims, s.uniform.Rand(nil)), nil
	}
	return s.behaviour.SelectAction(t)
}

// ObserveFirst records the first timestep in an episode
func (s *SAC) ObserveFirst(t timestep.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observeFirst: timestep is not first "+
			"\n\twant(%v)\n\thave(%v)", timestep.First, t.StepType)
	}
	s.prevStep = t
	return nil
}

// Observe stores the transition produced by taking the argument
// action in the replay buffer
func (s *SAC) Observe(action mat.Vector, nextStep timestep.TimeStep) error {
	if nextStep.First() {
		return fmt.Errorf("observe: timestep is first, use ObserveFirst")
	}

	a, ok := action.(*mat.VecDense)
	if !ok {
		return fmt.Errorf("observe: actions must be dense vectors")
	}
	transition := timestep.NewTransition(s.prevStep, a, nextStep)
	if err := s.replay.Add(transition); err != nil {
		return fmt.Errorf("observe: could not store transition: %v", err)
	}

	s.prevStep = nextStep
	s.stepsTaken++
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (s *SAC) EndEpisode() error {
	return nil
}

// Step updates the twin critics towards the soft Bellman target, then
// updates the policy, then Polyak averages the target critics. If the
// replay buffer does not yet hold enough transitions, no update is
// performed.
func (s *SAC) Step() error {
	states, actions, rewards, discounts, nextStates, err :=
		s.replay.Sample()
	if expreplay.IsEmptyBuffer(err) ||
		expreplay.IsInsufficientSamples(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("step: could not sample replay buffer: %v",
			err)
	}

	nextActions, nextLogProbs, err := s.sampleNextActions(nextStates)
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	target, err := s.bellmanTarget(rewards, discounts, nextStates,
		nextActions, nextLogProbs)
	if err != nil {
		return fmt.Errorf("step: %v", err)
	}

	if err := s.stepCritics(states, actions, target); err != nil {
		return fmt.Errorf("step: %v", err)
	}

	if err := s.stepPolicy(states); err != nil {
		return fmt.Errorf("step: %v", err)
	}

	return s.sync()
}

// sampleNextActions samples actions and their log probabilities from
// the current policy at the argument next states
func (s *SAC) sampleNextActions(nextStates []float64) ([]float64,
	[]float64, error) {
	err := s.samplePolicy.Network().SetInput(nextStates)
	if err != nil {
		return nil, nil, fmt.Errorf("could not set sampling policy "+
			"input: %v", err)
	}
	if err := s.samplePolicy.SampleNoise(); err != nil {
		return nil, nil, fmt.Errorf("could not sample policy noise: %v",
			err)
	}
	if err := s.sampleVM.RunAll(); err != nil {
		return nil, nil, fmt.Errorf("could not run sampling policy: %v",
			err)
	}
	defer s.sampleVM.Reset()

	actions := make([]float64, s.batchSize*s.actionDims)
	copy(actions, s.samplePolicy.ActionVal().Data().([]float64))

	logProbs := make([]float64, s.batchSize)
	copy(logProbs, s.samplePolicy.LogProbVal().Data().([]float64))

	return actions, logProbs, nil
}

// bellmanTarget computes the soft Bellman target
//
//	y = r + ℽ (min(Q1', Q2')(s', ã') - α log π(ã'|s'))
//
// using the target critics, where ℽ is the transition's discount
// (zero on terminal transitions)
func (s *SAC) bellmanTarget(rewards, discounts, nextStates, nextActions,
	nextLogProbs []float64) ([]float64, error) {
	stateTensor := tensor.NewDense(tensor.Float64,
		[]int{s.batchSize, s.features},
		tensor.WithBacking(nextStates))
	if err := G.Let(s.targetState, stateTensor); err != nil {
		return nil, fmt.Errorf("could not set target critic state "+
			"input: %v", err)
	}

	actionTensor := tensor.NewDense(tensor.Float64,
		[]int{s.batchSize, s.actionDims},
		tensor.WithBacking(nextActions))
	if err := G.Let(s.targetAction, actionTensor); err != nil {
		return nil, fmt.Errorf("could not set target critic action "+
			"input: %v", err)
	}

	if err := s.targetVM.RunAll(); err != nil {
		return nil, fmt.Errorf("could not run target critics: %v", err)
	}
	defer s.targetVM.Reset()

	q1 := s.targetCritic1.Output()[0].Data().([]float64)
	q2 := s.targetCritic2.Output()[0].Data().([]float64)

	target := make([]float64, s.batchSize)
	for i := range target {
		nextValue := math.Min(q1[i], q2[i]) -
			s.temperature*nextLogProbs[i]
		target[i] = rewards[i] + discounts[i]*nextValue
	}
	return target, nil
}

// stepCritics takes one gradient step on the twin critics towards the
// argument Bellman target
func (s *SAC) stepCritics(states, actions, target []float64) error {
	stateTensor := tensor.NewDense(tensor.Float64,
		[]int{s.batchSize, s.features}, tensor.WithBacking(states))
	if err := G.Let(s.criticState, stateTensor); err != nil {
		return fmt.Errorf("could not set critic state input: %v", err)
	}

	actionTensor := tensor.NewDense(tensor.Float64,
		[]int{s.batchSize, s.actionDims}, tensor.WithBacking(actions))
	if err := G.Let(s.criticAction, actionTensor); err != nil {
		return fmt.Errorf("could not set critic action input: %v", err)
	}

	targetTensor := tensor.NewDense(tensor.Float64,
		[]int{s.batchSize, 1}, tensor.WithBacking(target))
	if err := G.Let(s.criticTarget, targetTensor); err != nil {
		return fmt.Errorf("could not set critic target input: %v", err)
	}

	if err := s.criticVM.RunAll(); err != nil {
		return fmt.Errorf("could not run critic update: %v", err)
	}
	defer s.criticVM.Reset()

	if err := s.criticSolver.Step(s.criticModel); err != nil {
		return fmt.Errorf("could not step critic solver: %v", err)
	}
	return nil
}

// stepPolicy takes one gradient step on the policy, first syncing the
// actor graph's critic copies with the freshly updated critics
func (s *SAC) stepPolicy(states []float64) error {
	if err := network.Set(s.actorCritic1, s.critic1); err != nil {
		return fmt.Errorf("could not sync critic copy: %v", err)
	}
	if err := network.Set(s.actorCritic2, s.critic2); err != nil {
		return fmt.Errorf("could not sync critic copy: %v", err)
	}

	err := s.trainPolicy.Network().SetInput(states)
	if err != nil {
		return fmt.Errorf("could not set train policy input: %v", err)
	}
	if err := s.trainPolicy.SampleNoise(); err != nil {
		return fmt.Errorf("could not sample policy noise: %v", err)
	}

	if err := s.actorVM.RunAll(); err != nil {
		return fmt.Errorf("could not run policy update: %v", err)
	}
	defer s.actorVM.Reset()

	err = s.policySolver.Step(s.trainPolicy.Network().Model())
	if err != nil {
		return fmt.Errorf("could not step policy solver: %v", err)
	}
	return nil
}

// sync propagates the updated policy weights to the behaviour and
// sampling policies and Polyak averages the target critics
func (s *SAC) sync() error {
	err := network.Set(s.behaviour.Network(), s.trainPolicy.Network())
	if err != nil {
		return fmt.Errorf("sync: could not update behaviour policy: %v",
			err)
	}
	err = network.Set(s.samplePolicy.Network(), s.trainPolicy.Network())
	if err != nil {
		return fmt.Errorf("sync: could not update sampling policy: %v",
			err)
	}

	err = network.Polyak(s.targetCritic1, s.critic1, s.tau)
	if err != nil {
		return fmt.Errorf("sync: could not update target critic: %v",
			err)
	}
	err = network.Polyak(s.targetCritic2, s.critic2, s.tau)
	if err != nil {
		return fmt.Errorf("sync: could not update target critic: %v",
			err)
	}
	return nil
}

// Close closes all VMs held by the agent
func (s *SAC) Close() error {
	for _, vm := range []G.VM{s.actorVM, s.sampleVM, s.criticVM,
		s.targetVM} {
		if err := vm.Close(); err != nil {
			return err
		}
	}
	return s.behaviour.Close()
}
