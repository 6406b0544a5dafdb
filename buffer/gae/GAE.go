// Package gae implements a buffer for computing generalized advantage
// estimates over on-policy trajectories
package gae

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/njmarsh/swingup/utils/floatutils"
)

// Buffer implements a forward view generalized advantage estimate -
// GAE(λ) - buffer following https://arxiv.org/abs/1506.02438. Along
// with each timestep's state, action, reward, and value estimate, the
// Buffer records the log probability with which the behaviour policy
// selected the action, so that importance sampling ratios can later
// be computed against the stored behaviour policy.
type Buffer struct {
	obsSize    int // Size of state observations
	actionSize int // Number of action dimensions
	maxSize    int // Max buffer size

	currentPos   int // Current position in the buffer
	pathStartIdx int // Position in the buffer where current trajectory starts

	lambda float64 // λ for GAE(λ) calculation
	gamma  float64 // Discount factor ℽ; overwrites env discount factor

	// Buffers for storing data
	obsBuffer     []float64
	actBuffer     []float64
	advBuffer     []float64
	rewBuffer     []float64
	retBuffer     []float64
	valBuffer     []float64
	logProbBuffer []float64
}

// New creates and returns a new GAE(λ) buffer storing size timesteps
func New(obsDim, actDim, size int, lambda, gamma float64) *Buffer {
	return &Buffer{
		obsSize:       obsDim,
		actionSize:    actDim,
		maxSize:       size,
		currentPos:    0,
		pathStartIdx:  0,
		lambda:        lambda,
		gamma:         gamma,
		obsBuffer:     make([]float64, size*obsDim),
		actBuffer:     make([]float64, size*actDim),
		advBuffer:     make([]float64, size),
		rewBuffer:     make([]float64, size),
		retBuffer:     make([]float64, size),
		valBuffer:     make([]float64, size),
		logProbBuffer: make([]float64, size),
	}
}

// Store stores a single timestep's state, action, reward, value
// estimate, and behaviour policy log probability to the Buffer.
func (v *Buffer) Store(obs, act []float64, rew, val,
	logProb float64) error {
	if v.currentPos >= v.maxSize {
		return fmt.Errorf("store: cannot add new transition, buffer at " +
			"maximum capacity")
	}
	if len(obs) != v.obsSize {
		return fmt.Errorf("store: illegal obs length \n\twant(%v)"+
			"\n\thave(%v)", v.obsSize, len(obs))
	}
	if len(act) != v.actionSize {
		return fmt.Errorf("store: illegal act length \n\twant(%v)"+
			"\n\thave(%v)", v.actionSize, len(act))
	}

	// Add observations
	start := v.currentPos * v.obsSize
	stop := start + v.obsSize
	copy(v.obsBuffer[start:stop], obs)

	// Add actions
	start = v.currentPos * v.actionSize
	stop = start + v.actionSize
	copy(v.actBuffer[start:stop], act)

	v.rewBuffer[v.currentPos] = rew
	v.valBuffer[v.currentPos] = val
	v.logProbBuffer[v.currentPos] = logProb
	v.currentPos++
	return nil
}

// FinishPath computes advantage estimates using GAE(λ) and
// rewards-to-go estimates for each state of the current trajectory.
// This should be called at the end of a trajectory or when one gets
// cut off by an epoch ending.
//
// The lastVal argument should be 0 if the trajectory ended because
// the agent reached a terminal state, and otherwise it should be
// v(s), the value estimate of the last state. This bootstraps the
// rewards-to-go calculation to account for timesteps beyond the
// episode horizon or epoch cutoff.
func (v *Buffer) FinishPath(lastVal float64) {
	start := v.pathStartIdx
	stop := v.currentPos

	// Copy the trajectory's rewards and values into fresh slices with
	// the bootstrap value appended, leaving the buffers untouched
	rews := make([]float64, stop-start+1)
	copy(rews, v.rewBuffer[start:stop])
	rews[len(rews)-1] = lastVal

	vals := make([]float64, stop-start+1)
	copy(vals, v.valBuffer[start:stop])
	vals[len(vals)-1] = lastVal

	// GAE-lambda advantage calculation:
	// δ_t = r_t + ℽ v(s_{t+1}) - v(s_t)
	stateVals := mat.NewVecDense(len(vals)-1, vals[:len(vals)-1])
	nextStateVals := mat.NewVecDense(len(vals)-1, vals[1:])
	rewards := mat.NewVecDense(len(rews)-1, rews[:len(rews)-1])

	deltas := mat.NewVecDense(stateVals.Len(), nil)
	deltas.AddScaledVec(rewards, v.gamma, nextStateVals)
	deltas.SubVec(deltas, stateVals)

	copy(v.advBuffer[start:stop],
		discountCumSum(deltas.RawVector().Data, v.gamma*v.lambda))

	// Rewards-to-go
	rewsToGo := discountCumSum(rews, v.gamma)
	copy(v.retBuffer[start:stop], rewsToGo[:len(rewsToGo)-1])

	v.pathStartIdx = v.currentPos
}

// Get returns the observations, actions, advantages, returns, and
// behaviour policy log probabilities stored in the buffer, and resets
// the buffer. Advantages are first standardized to mean 0 and standard
// deviation 1.
func (v *Buffer) Get() ([]float64, []float64, []float64, []float64,
	[]float64, error) {
	if v.currentPos != v.maxSize {
		err := fmt.Errorf("get: buffer must be full before sampling")
		return nil, nil, nil, nil, nil, err
	}

	v.currentPos = 0
	v.pathStartIdx = 0

	// Advantage normalization
	adv := mat.NewVecDense(len(v.advBuffer), v.advBuffer)
	ones := mat.NewVecDense(adv.Len(), floatutils.Ones(adv.Len()))
	mean := stat.Mean(v.advBuffer, nil)
	std := stat.StdDev(v.advBuffer, nil) + 1e-8

	adv.AddScaledVec(adv, -mean, ones)
	adv.ScaleVec(1/std, adv)

	return v.obsBuffer, v.actBuffer, adv.RawVector().Data, v.retBuffer,
		v.logProbBuffer, nil
}

// discountCumSum computes and returns the discounted cumulative sum
// of all elements of x. Given x = [x0 x1 x2 ... xN] and discount ℽ,
// this function computes and returns:
//
//	[
//		x0 + ℽ x1 + ℽ^2 x2 + ... + ℽ^N xN
//		x1 + ℽ x2 + ... + ℽ^(N-1) xN
//		...
//		xN
//	]
func discountCumSum(x []float64, discount float64) []float64 {
	cumSums := make([]float64, len(x))

	running := 0.0
	for i := len(x) - 1; i >= 0; i-- {
		running = x[i] + discount*running
		cumSums[i] = running
	}

	return cumSums
}
