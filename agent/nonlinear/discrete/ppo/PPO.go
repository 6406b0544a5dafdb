// Package ppo implements the Proximal Policy Optimization algorithm
// with a clipped surrogate objective:
//
//	https://arxiv.org/abs/1707.06347
//
// Advantages are computed with generalized advantage estimation. This
// implementation is adapted from:
//
//	https://spinningup.openai.com/en/latest/algorithms/ppo.html
package ppo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/njmarsh/swingup/agent"
	"github.com/njmarsh/swingup/agent/nonlinear/discrete/policy"
	"github.com/njmarsh/swingup/buffer/gae"
	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/solver"
	"github.com/njmarsh/swingup/timestep"
	"github.com/njmarsh/swingup/utils/op"
)

// PPO implements the Proximal Policy Optimization algorithm. On each
// timestep, the transition's state, action, reward, state value
// estimate, and behaviour policy log probability are stored in a
// GAE(λ) buffer. Once a full epoch of timesteps has been gathered,
// the policy is updated by maximizing the clipped surrogate objective
//
//	mean(min(ρ Â, clip(ρ, 1-ε, 1+ε) Â)) + c * entropy
//
// where ρ := π(a|s) / π_old(a|s) is the importance sampling ratio
// against the behaviour policy that gathered the epoch, and Â is the
// standardized advantage estimate. Multiple gradient steps are taken
// per epoch, stopping early once the approximate KL divergence
// between the updated and behaviour policies exceeds 1.5 times the
// configured target. The state value function is then updated by
// regression on the rewards-to-go.
//
// Step() is called on each timestep, but the agent is only updated
// once a full epoch of timesteps has been gathered. When an epoch
// ends in the middle of an episode, the remainder of that episode is
// finished with the updated policy and its data discarded, and the
// next epoch begins at the start of the next episode.
type PPO struct {
	// Policy
	behaviour         *policy.CategoricalMLP // Has its own VM
	trainPolicy       *policy.CategoricalMLP // Policy struct that is learned
	trainPolicySolver *solver.Solver
	trainPolicyVM     G.VM
	advantages        *G.Node
	oldLogProbs       *G.Node
	klVal             G.Value
	policyIters       int
	targetKL          float64

	buffer           *gae.Buffer
	epochLength      int
	currentEpochStep int
	completedEpochs  int
	finishingEpisode bool

	prevStep timestep.TimeStep

	// State value critic
	vValueFn             network.NeuralNet
	vVM                  G.VM
	vTrainValueFn        network.NeuralNet
	vTrainValueFnVM      G.VM
	vTrainValueFnTargets *G.Node
	vSolver              *solver.Solver
	valueGradSteps       int
}

// New creates and returns a new PPO agent acting in the argument
// environment
func New(env environment.Environment, config Config,
	seed uint64) (agent.Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("ppo: invalid configuration: %v", err)
	}
	if env.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("ppo: PPO with a categorical policy " +
			"can only be used with discrete actions")
	}

	features := env.ObservationSpec().Shape.Len()
	actionDims := env.ActionSpec().Shape.Len()
	init := config.InitWFn.InitWFn()

	buffer := gae.New(features, actionDims, config.EpochLength,
		config.Lambda, config.Gamma)

	// Prediction value function for bootstrapping and GAE
	valueFn, err := network.NewSingleHeadMLP(features, 1, G.NewGraph(),
		config.ValueFnLayers, config.ValueFnBiases, init,
		config.ValueFnActivations)
	if err != nil {
		return nil, fmt.Errorf("ppo: could not create value "+
			"function: %v", err)
	}
	vVM := G.NewTapeMachine(valueFn.Graph())

	// Training value function, updated by regression on the
	// rewards-to-go
	trainValueFn, err := network.NewSingleHeadMLP(features,
		config.EpochLength, G.NewGraph(), config.ValueFnLayers,
		config.ValueFnBiases, init, config.ValueFnActivations)
	if err != nil {
		return nil, fmt.Errorf("ppo: could not create train value "+
			"function: %v", err)
	}

	trainValueFnTargets := G.NewMatrix(
		trainValueFn.Graph(),
		tensor.Float64,
		G.WithShape(trainValueFn.Prediction()[0].Shape()...),
		G.WithName("ValueFnTargets"),
		G.WithInit(G.Zeroes()),
	)
	valueFnLoss := G.Must(G.Sub(trainValueFn.Prediction()[0],
		trainValueFnTargets))
	valueFnLoss = G.Must(G.Square(valueFnLoss))
	valueFnLoss = G.Must(G.Mean(valueFnLoss))

	if _, err := G.Grad(valueFnLoss,
		trainValueFn.Learnables()...); err != nil {
		return nil, fmt.Errorf("ppo: could not compute value "+
			"function gradient: %v", err)
	}
	trainValueFnVM := G.NewTapeMachine(trainValueFn.Graph(),
		G.BindDualValues(trainValueFn.Learnables()...))

	// Behaviour policy for action selection
	behaviour, err := policy.NewCategoricalMLP(env, 1, G.NewGraph(),
		config.PolicyLayers, config.PolicyBiases,
		config.PolicyActivations, init, seed)
	if err != nil {
		return nil, fmt.Errorf("ppo: could not create behaviour "+
			"policy: %v", err)
	}

	// Training policy and the clipped surrogate objective
	trainPolicy, err := policy.NewCategoricalMLP(env,
		config.EpochLength, G.NewGraph(), config.PolicyLayers,
		config.PolicyBiases, config.PolicyActivations, init, seed)
	if err != nil {
		return nil, fmt.Errorf("ppo: could not create train "+
			"policy: %v", err)
	}

	gPolicy := trainPolicy.Network().Graph()
	logProb := trainPolicy.LogProbNode()
	advantages := G.NewVector(
		gPolicy,
		tensor.Float64,
		G.WithName("Advantages"),
		G.WithShape(config.EpochLength),
		G.WithInit(G.Zeroes()),
	)
	oldLogProbs := G.NewVector(
		gPolicy,
		tensor.Float64,
		G.WithName("OldLogProbs"),
		G.WithShape(config.EpochLength),
		G.WithInit(G.Zeroes()),
	)

	// Clipped surrogate objective
	ratio := G.Must(G.Exp(G.Must(G.Sub(logProb, oldLogProbs))))
	clippedRatio, err := op.Clip(ratio, 1-config.Clip, 1+config.Clip)
	if err != nil {
		return nil, fmt.Errorf("ppo: could not clip importance "+
			"sampling ratio: %v", err)
	}
	surrogate := G.Must(G.HadamardProd(ratio, advantages))
	clippedSurrogate := G.Must(G.HadamardProd(clippedRatio, advantages))
	minSurrogate, err := op.Min(surrogate, clippedSurrogate)
	if err != nil {
		return nil, fmt.Errorf("ppo: could not compute clipped "+
			"surrogate objective: %v", err)
	}
	policyLoss := G.Must(G.Neg(G.Must(G.Mean(minSurrogate))))

	// Entropy bonus, computed from the policy's logits
	logSumExp := op.LogSumExp(trainPolicy.Logits(), 1)
	logSoftmax := G.Must(G.BroadcastSub(trainPolicy.Logits(),
		logSumExp, nil, []byte{1}))
	probs := G.Must(G.Exp(logSoftmax))
	entropy := G.Must(G.Sum(G.Must(G.HadamardProd(probs, logSoftmax)),
		1))
	entropy = G.Must(G.Neg(G.Must(G.Mean(entropy))))
	entropyCoef := G.NewConstant(config.EntropyCoef,
		G.WithName("EntropyCoef"))
	entropyBonus := G.Must(G.HadamardProd(entropy, entropyCoef))
	policyLoss = G.Must(G.Sub(policyLoss, entropyBonus))

	// Approximate KL divergence to the behaviour policy, used for
	// early stopping of policy updates within an epoch
	kl := G.Must(G.Mean(G.Must(G.Sub(oldLogProbs, logProb))))

	if _, err := G.Grad(policyLoss,
		trainPolicy.Network().Learnables()...); err != nil {
		return nil, fmt.Errorf("ppo: could not compute policy "+
			"gradient: %v", err)
	}

	ppo := &PPO{
		behaviour:         behaviour,
		trainPolicy:       trainPolicy,
		trainPolicySolver: config.PolicySolver,
		advantages:        advantages,
		oldLogProbs:       oldLogProbs,
		policyIters:       config.PolicyIters,
		targetKL:          config.TargetKL,

		buffer:      buffer,
		epochLength: config.EpochLength,

		vValueFn:             valueFn,
		vVM:                  vVM,
		vTrainValueFn:        trainValueFn,
		vTrainValueFnVM:      trainValueFnVM,
		vTrainValueFnTargets: trainValueFnTargets,
		vSolver:              config.VSolver,
		valueGradSteps:       config.ValueGradSteps,
	}

	// The read must be in the graph before the tape machine compiles it
	G.Read(kl, &ppo.klVal)
	ppo.trainPolicyVM = G.NewTapeMachine(gPolicy,
		G.BindDualValues(trainPolicy.Network().Learnables()...))

	// The behaviour and training networks start with identical weights
	err = network.Set(ppo.trainPolicy.Network(),
		ppo.behaviour.Network())
	if err != nil {
		return nil, fmt.Errorf("ppo: could not sync policies: %v", err)
	}
	if err := network.Set(ppo.vTrainValueFn, ppo.vValueFn); err != nil {
		return nil, fmt.Errorf("ppo: could not sync value "+
			"functions: %v", err)
	}

	return ppo, nil
}

// SelectAction samples an action from the behaviour policy at the
// argument timestep
func (p *PPO) SelectAction(t timestep.TimeStep) (*mat.VecDense, error) {
	return p.behaviour.SelectAction(t)
}

// ObserveFirst records the first timestep in an episode
func (p *PPO) ObserveFirst(t timestep.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observeFirst: timestep is not first "+
			"\n\twant(%v)\n\thave(%v)", timestep.First, t.StepType)
	}
	p.prevStep = t
	return nil
}

// Observe stores the transition produced by taking the argument
// action in the GAE buffer, finishing the current trajectory when the
// episode or epoch ends. When the agent is finishing an episode whose
// data cannot be stored, Observe only tracks the current timestep.
func (p *PPO) Observe(action mat.Vector,
	nextStep timestep.TimeStep) error {
	// Finish current episode to end epoch
	if p.finishingEpisode {
		p.prevStep = nextStep
		return nil
	}

	// Calculate the value and behaviour log probability of the
	// previous step
	obs := p.prevStep.Observation.(*mat.VecDense).RawVector().Data
	stateValue, err := p.stateValue(obs)
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}
	logProb, err := p.behaviour.LogProbOfAction(p.prevStep, action)
	if err != nil {
		return fmt.Errorf("observe: %v", err)
	}

	a := action.(*mat.VecDense).RawVector().Data
	err = p.buffer.Store(obs, a, nextStep.Reward, stateValue, logProb)
	if err != nil {
		return fmt.Errorf("observe: could not store timestep: %v", err)
	}

	p.prevStep = nextStep
	p.currentEpochStep++

	last := nextStep.Last() || p.currentEpochStep == p.epochLength
	if last {
		if nextStep.TerminalEnd() {
			p.buffer.FinishPath(0.0)
		} else {
			// Bootstrap the cut off trajectory with the value of the
			// state it was cut off at
			nextObs := nextStep.Observation.(*mat.VecDense).RawVector().Data
			lastValue, err := p.stateValue(nextObs)
			if err != nil {
				return fmt.Errorf("observe: %v", err)
			}
			p.buffer.FinishPath(lastValue)
			p.finishingEpisode = p.currentEpochStep == p.epochLength &&
				!nextStep.Last()
		}
	}
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (p *PPO) EndEpisode() error {
	// If the previous epoch finished before the episode did, the
	// remainder of the episode was discarded. A new episode starts
	// now, so data can be stored again.
	p.finishingEpisode = false
	return nil
}

// Step updates the agent once a full epoch of timesteps has been
// gathered, and otherwise does nothing
func (p *PPO) Step() error {
	if p.currentEpochStep < p.epochLength {
		return nil
	}

	obs, act, adv, ret, oldLogProbs, err := p.buffer.Get()
	if err != nil {
		return fmt.Errorf("step: could not sample buffer: %v", err)
	}

	if err := p.stepPolicy(obs, act, adv, oldLogProbs); err != nil {
		return fmt.Errorf("step: %v", err)
	}
	if err := p.stepValueFn(obs, ret); err != nil {
		return fmt.Errorf("step: %v", err)
	}

	// Update the behaviour policy and prediction value function
	err = network.Set(p.behaviour.Network(), p.trainPolicy.Network())
	if err != nil {
		return fmt.Errorf("step: could not update behaviour "+
			"policy: %v", err)
	}
	if err := network.Set(p.vValueFn, p.vTrainValueFn); err != nil {
		return fmt.Errorf("step: could not update value function: %v",
			err)
	}

	p.completedEpochs++
	p.currentEpochStep = 0
	return nil
}

// stepPolicy takes up to policyIters gradient steps on the clipped
// surrogate objective, stopping early once the approximate KL
// divergence to the behaviour policy exceeds 1.5 * targetKL
func (p *PPO) stepPolicy(obs, act, adv, oldLogProbs []float64) error {
	advantagesTensor := tensor.NewDense(
		tensor.Float64,
		p.advantages.Shape(),
		tensor.WithBacking(adv),
	)
	if err := G.Let(p.advantages, advantagesTensor); err != nil {
		return fmt.Errorf("could not set advantages: %v", err)
	}

	oldLogProbsTensor := tensor.NewDense(
		tensor.Float64,
		p.oldLogProbs.Shape(),
		tensor.WithBacking(oldLogProbs),
	)
	if err := G.Let(p.oldLogProbs, oldLogProbsTensor); err != nil {
		return fmt.Errorf("could not set old log probabilities: %v",
			err)
	}

	for i := 0; i < p.policyIters; i++ {
		if _, err := p.trainPolicy.LogProbOf(obs, act); err != nil {
			return fmt.Errorf("could not compute log "+
				"probabilities: %v", err)
		}
		if err := p.trainPolicyVM.RunAll(); err != nil {
			return fmt.Errorf("could not run policy update: %v", err)
		}

		kl := p.klVal.Data().(float64)
		if kl > 1.5*p.targetKL {
			p.trainPolicyVM.Reset()
			break
		}

		err := p.trainPolicySolver.Step(p.trainPolicy.Network().Model())
		if err != nil {
			return fmt.Errorf("could not step policy solver: %v", err)
		}
		p.trainPolicyVM.Reset()
	}
	return nil
}

// stepValueFn takes valueGradSteps gradient steps on the value
// function towards the rewards-to-go
func (p *PPO) stepValueFn(obs, ret []float64) error {
	if err := p.vTrainValueFn.SetInput(obs); err != nil {
		return fmt.Errorf("could not set value function input: %v", err)
	}

	targetsTensor := tensor.NewDense(
		tensor.Float64,
		p.vTrainValueFnTargets.Shape(),
		tensor.WithBacking(ret),
	)
	err := G.Let(p.vTrainValueFnTargets, targetsTensor)
	if err != nil {
		return fmt.Errorf("could not set value function targets: %v",
			err)
	}

	for i := 0; i < p.valueGradSteps; i++ {
		if err := p.vTrainValueFnVM.RunAll(); err != nil {
			return fmt.Errorf("could not run value function "+
				"update: %v", err)
		}
		if err := p.vSolver.Step(p.vTrainValueFn.Model()); err != nil {
			return fmt.Errorf("could not step value function "+
				"solver: %v", err)
		}
		p.vTrainValueFnVM.Reset()
	}
	return nil
}

// stateValue returns the state value estimate v(s) of the state with
// the argument observation
func (p *PPO) stateValue(obs []float64) (float64, error) {
	if err := p.vValueFn.SetInput(obs); err != nil {
		return 0, fmt.Errorf("could not set value function input: %v",
			err)
	}
	if err := p.vVM.RunAll(); err != nil {
		return 0, fmt.Errorf("could not run value function: %v", err)
	}
	defer p.vVM.Reset()

	value := p.vValueFn.Output()[0].Data().([]float64)
	if len(value) != 1 {
		return 0, fmt.Errorf("multiple values predicted for state " +
			"value")
	}
	return value[0], nil
}

// Close closes all VMs held by the agent
func (p *PPO) Close() error {
	for _, vm := range []G.VM{p.trainPolicyVM, p.vVM,
		p.vTrainValueFnVM} {
		if err := vm.Close(); err != nil {
			return err
		}
	}
	if err := p.behaviour.Close(); err != nil {
		return err
	}
	return p.trainPolicy.Close()
}
