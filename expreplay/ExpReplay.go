// Package expreplay implements fixed-capacity experience replay
// buffers for off-policy learning
package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/njmarsh/swingup/timestep"
)

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer
	Add(t timestep.Transition) error

	// Sample samples a batch of experience from the buffer, returning
	// the batch of states, actions, rewards, discounts, and next
	// states as flattened []float64
	Sample() ([]float64, []float64, []float64, []float64, []float64,
		error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in the
	// buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int
}

// fifoCache implements a concrete ExperienceReplayer. Transitions are
// stored in insertion order in a circular buffer, so that once the
// buffer is full each new transition overwrites the oldest one.
// Batches are sampled uniformly at random with replacement.
type fifoCache struct {
	stateCache     []float64
	actionCache    []float64
	rewardCache    []float64
	discountCache  []float64
	nextStateCache []float64

	// insert is the index at which the next transition is stored
	insert   int
	currSize int

	minCapacity int
	maxCapacity int
	batchSize   int
	featureSize int
	actionSize  int

	rng *rand.Rand
}

// New creates and returns a new FIFO ExperienceReplayer. The
// featureSize and actionSize parameters define the lengths of the
// state feature and action vectors of stored transitions. Sampling
// is uniformly random, using a generator seeded with seed.
func New(minCapacity, maxCapacity, batchSize, featureSize,
	actionSize int, seed uint64) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minCapacity must be > 0")
	}
	if maxCapacity < 1 {
		return nil, fmt.Errorf("new: maxCapacity must be >= 1")
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("new: cannot have minCapacity(%v) > max "+
			"buffer capacity (%v)", minCapacity, maxCapacity)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batch size must be >= 1")
	}

	return &fifoCache{
		stateCache:     make([]float64, maxCapacity*featureSize),
		actionCache:    make([]float64, maxCapacity*actionSize),
		rewardCache:    make([]float64, maxCapacity),
		discountCache:  make([]float64, maxCapacity),
		nextStateCache: make([]float64, maxCapacity*featureSize),
		minCapacity:    minCapacity,
		maxCapacity:    maxCapacity,
		batchSize:      batchSize,
		featureSize:    featureSize,
		actionSize:     actionSize,
		rng:            rand.New(rand.NewSource(seed)),
	}, nil
}

// Add adds a transition to the buffer, overwriting the oldest stored
// transition when the buffer is at maximum capacity
func (f *fifoCache) Add(t timestep.Transition) error {
	if t.State.Len() != f.featureSize {
		return fmt.Errorf("add: invalid state feature length"+
			"\n\twant(%v)\n\thave(%v)", f.featureSize, t.State.Len())
	}
	if t.Action.Len() != f.actionSize {
		return fmt.Errorf("add: invalid action length"+
			"\n\twant(%v)\n\thave(%v)", f.actionSize, t.Action.Len())
	}
	if t.NextState.Len() != f.featureSize {
		return fmt.Errorf("add: invalid next state feature length"+
			"\n\twant(%v)\n\thave(%v)", f.featureSize, t.NextState.Len())
	}

	copyInto(f.stateCache, f.insert*f.featureSize, t.State)
	copyInto(f.actionCache, f.insert*f.actionSize, t.Action)
	f.rewardCache[f.insert] = t.Reward
	f.discountCache[f.insert] = t.Discount
	copyInto(f.nextStateCache, f.insert*f.featureSize, t.NextState)

	f.insert = (f.insert + 1) % f.maxCapacity
	if f.currSize < f.maxCapacity {
		f.currSize++
	}
	return nil
}

// Sample samples and returns a batch of transitions from the buffer
func (f *fifoCache) Sample() ([]float64, []float64, []float64,
	[]float64, []float64, error) {
	if f.Capacity() == 0 {
		return nil, nil, nil, nil, nil, &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
	}
	if f.Capacity() < f.MinCapacity() {
		return nil, nil, nil, nil, nil, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	states := make([]float64, f.batchSize*f.featureSize)
	actions := make([]float64, f.batchSize*f.actionSize)
	rewards := make([]float64, f.batchSize)
	discounts := make([]float64, f.batchSize)
	nextStates := make([]float64, f.batchSize*f.featureSize)

	for i := 0; i < f.batchSize; i++ {
		j := f.rng.Intn(f.currSize)

		copy(states[i*f.featureSize:(i+1)*f.featureSize],
			f.stateCache[j*f.featureSize:(j+1)*f.featureSize])
		copy(actions[i*f.actionSize:(i+1)*f.actionSize],
			f.actionCache[j*f.actionSize:(j+1)*f.actionSize])
		rewards[i] = f.rewardCache[j]
		discounts[i] = f.discountCache[j]
		copy(nextStates[i*f.featureSize:(i+1)*f.featureSize],
			f.nextStateCache[j*f.featureSize:(j+1)*f.featureSize])
	}

	return states, actions, rewards, discounts, nextStates, nil
}

// Capacity returns the current number of samples in the buffer
func (f *fifoCache) Capacity() int {
	return f.currSize
}

// MaxCapacity returns the maximum allowable samples in the buffer
func (f *fifoCache) MaxCapacity() int {
	return f.maxCapacity
}

// MinCapacity returns the number of samples required to be in the
// buffer before the buffer can be sampled
func (f *fifoCache) MinCapacity() int {
	return f.minCapacity
}

// BatchSize returns the number of samples returned by Sample()
func (f *fifoCache) BatchSize() int {
	return f.batchSize
}

// copyInto copies the elements of a vector into cache starting at
// index start
func copyInto(cache []float64, start int, v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		cache[start+i] = v.AtVec(i)
	}
}
