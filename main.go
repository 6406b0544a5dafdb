// Trains a Soft Actor-Critic agent and a PPO agent back-to-back on
// the pendulum swing-up task and renders their learning curves on a
// single comparison figure.
//
// Both agents face the same underlying dynamics and reward. SAC
// controls the pendulum with continuous torques, while PPO selects
// among evenly spaced discrete torques spanning the same range, so
// the return scales of the two agents are directly comparable.
package main

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat"

	"github.com/njmarsh/swingup/agent"
	"github.com/njmarsh/swingup/agent/nonlinear/continuous/sac"
	"github.com/njmarsh/swingup/agent/nonlinear/discrete/ppo"
	"github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/environment/classiccontrol/pendulum"
	"github.com/njmarsh/swingup/experiment"
	"github.com/njmarsh/swingup/experiment/tracker"
	"github.com/njmarsh/swingup/initwfn"
	"github.com/njmarsh/swingup/network"
	"github.com/njmarsh/swingup/plot"
	"github.com/njmarsh/swingup/solver"
)

const (
	seed uint64 = 617

	gamma         = 0.99
	episodeLength = 200
	totalSteps    = 40_000

	figureFile = "comparison.png"
	sacFile    = "sac_return.bin"
	ppoFile    = "ppo_return.bin"
)

// swingUpTask returns a pendulum swing-up task with starting angles
// drawn uniformly from the full circle and small starting velocities
func swingUpTask(seed uint64) *pendulum.SwingUp {
	bounds := []r1.Interval{
		{Min: -pendulum.AngleBound, Max: pendulum.AngleBound},
		{Min: -1.0, Max: 1.0},
	}
	starter := environment.NewUniformStarter(bounds, seed)
	return pendulum.NewSwingUp(starter, episodeLength)
}

// runSAC trains a SAC agent on the continuous-action pendulum and
// returns its episodic returns
func runSAC() ([]float64, error) {
	env, _, err := pendulum.NewContinuous(swingUpTask(seed), gamma)
	if err != nil {
		return nil, fmt.Errorf("could not create environment: %v", err)
	}

	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return nil, fmt.Errorf("could not create initializer: %v", err)
	}
	const batchSize = 32
	policySolver, err := solver.NewDefaultAdam(3e-4, batchSize)
	if err != nil {
		return nil, fmt.Errorf("could not create policy solver: %v", err)
	}
	criticSolver, err := solver.NewDefaultAdam(3e-4, batchSize)
	if err != nil {
		return nil, fmt.Errorf("could not create critic solver: %v", err)
	}

	config := sac.Config{
		RootLayers:      []int{64, 64},
		RootBiases:      []bool{true, true},
		RootActivations: []*network.Activation{network.ReLU(), network.ReLU()},

		LeafLayers:      [][]int{{}, {}},
		LeafBiases:      [][]bool{{}, {}},
		LeafActivations: [][]*network.Activation{{}, {}},

		CriticLayers:      []int{64, 64},
		CriticBiases:      []bool{true, true},
		CriticActivations: []*network.Activation{network.ReLU(), network.ReLU()},

		InitWFn:      init,
		PolicySolver: policySolver,
		CriticSolver: criticSolver,

		BatchSize:         batchSize,
		ReplayCapacity:    10_000,
		MinReplayCapacity: 1_000,

		Tau:         0.005,
		Temperature: 0.1,
		WarmUpSteps: 1_000,
	}

	sacAgent, err := config.CreateAgent(env, seed)
	if err != nil {
		return nil, fmt.Errorf("could not create agent: %v", err)
	}

	returns := tracker.NewReturn(sacFile)
	exp := experiment.NewOnline(env, sacAgent, totalSteps, returns)
	if err := exp.Run(); err != nil {
		return nil, fmt.Errorf("experiment failed: %v", err)
	}
	exp.Save()

	if closer, ok := sacAgent.(agent.Closer); ok {
		if err := closer.Close(); err != nil {
			return nil, fmt.Errorf("could not close agent: %v", err)
		}
	}
	return returns.Data(), nil
}

// runPPO trains a PPO agent on the discrete-action pendulum and
// returns its episodic returns
func runPPO() ([]float64, error) {
	env, _, err := pendulum.NewDiscrete(swingUpTask(seed), gamma)
	if err != nil {
		return nil, fmt.Errorf("could not create environment: %v", err)
	}

	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return nil, fmt.Errorf("could not create initializer: %v", err)
	}
	const epochLength = 2_000
	policySolver, err := solver.NewDefaultAdam(3e-4, epochLength)
	if err != nil {
		return nil, fmt.Errorf("could not create policy solver: %v", err)
	}
	vSolver, err := solver.NewDefaultAdam(1e-3, epochLength)
	if err != nil {
		return nil, fmt.Errorf("could not create value solver: %v", err)
	}

	config := ppo.Config{
		PolicyLayers:      []int{64, 64},
		PolicyBiases:      []bool{true, true},
		PolicyActivations: []*network.Activation{network.TanH(), network.TanH()},

		ValueFnLayers:      []int{64, 64},
		ValueFnBiases:      []bool{true, true},
		ValueFnActivations: []*network.Activation{network.TanH(), network.TanH()},

		InitWFn:      init,
		PolicySolver: policySolver,
		VSolver:      vSolver,

		EpochLength:    epochLength,
		PolicyIters:    80,
		ValueGradSteps: 80,

		Clip:        0.2,
		EntropyCoef: 0.01,
		TargetKL:    0.01,

		Lambda: 0.97,
		Gamma:  gamma,
	}

	ppoAgent, err := config.CreateAgent(env, seed)
	if err != nil {
		return nil, fmt.Errorf("could not create agent: %v", err)
	}

	returns := tracker.NewReturn(ppoFile)
	exp := experiment.NewOnline(env, ppoAgent, totalSteps, returns)
	if err := exp.Run(); err != nil {
		return nil, fmt.Errorf("experiment failed: %v", err)
	}
	exp.Save()

	if closer, ok := ppoAgent.(agent.Closer); ok {
		if err := closer.Close(); err != nil {
			return nil, fmt.Errorf("could not close agent: %v", err)
		}
	}
	return returns.Data(), nil
}

// finalPerformance returns the mean return over the last episodes of
// a training run
func finalPerformance(returns []float64) float64 {
	last := 10
	if len(returns) < last {
		last = len(returns)
	}
	if last == 0 {
		return math.NaN()
	}
	return stat.Mean(returns[len(returns)-last:], nil)
}

func main() {
	fmt.Printf("Training SAC on continuous pendulum swing-up (%v "+
		"steps)\n", totalSteps)
	sacReturns, err := runSAC()
	if err != nil {
		log.Fatalf("sac: %v", err)
	}
	fmt.Printf("SAC finished: %v episodes, final performance %.2f\n",
		len(sacReturns), finalPerformance(sacReturns))

	fmt.Printf("Training PPO on discrete pendulum swing-up (%v "+
		"steps)\n", totalSteps)
	ppoReturns, err := runPPO()
	if err != nil {
		log.Fatalf("ppo: %v", err)
	}
	fmt.Printf("PPO finished: %v episodes, final performance %.2f\n",
		len(ppoReturns), finalPerformance(ppoReturns))

	err = plot.LearningCurve(figureFile, "Pendulum Swing-Up", 10,
		plot.Series{
			Label:  "SAC (continuous)",
			Values: sacReturns,
			R:      0.122, G: 0.467, B: 0.706,
		},
		plot.Series{
			Label:  "PPO (discrete)",
			Values: ppoReturns,
			R:      1.0, G: 0.498, B: 0.055,
		},
	)
	if err != nil {
		log.Fatalf("plot: %v", err)
	}
	fmt.Printf("Saved learning curves to %v\n", figureFile)
}
