package tracker

import (
	"encoding/gob"
	"log"
	"os"

	ts "github.com/njmarsh/swingup/timestep"
)

// Return tracks and saves the episodic return in an experiment. When
// an environment returns a TimeStep, this Tracker extracts the reward
// and accumulates the return for each episode in the experiment.
//
// Note: An episode must finish for this Tracker to record its data.
// If the last episode in an experiment does not finish, that episode's
// return is not saved.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker saving its data
// to the argument file
func NewReturn(filename string) *Return {
	return &Return{
		lastTimeStep: -1,
		filename:     filename,
	}
}

// Track tracks the reward seen on a timestep. By calling this method
// on every timestep, the Tracker accumulates all rewards seen in the
// episode, recording the cumulative reward for the episode as the
// episodic return once the episode's last timestep is tracked.
//
// Track panics if it is called on non-sequential timesteps.
func (r *Return) Track(step ts.TimeStep) {
	if r.lastTimeStep+1 != step.Number {
		log.Panicf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v", r.lastTimeStep,
			step.Number)
	}

	r.currentReturn += step.Reward
	if !step.Last() {
		r.lastTimeStep = step.Number
		return
	}

	// Episode has ended; record the return and begin tracking the
	// return of the next episode
	r.episodeReturns = append(r.episodeReturns, r.currentReturn)
	r.currentReturn = 0.0
	r.lastTimeStep = -1
}

// Data returns the episodic returns recorded so far
func (r *Return) Data() []float64 {
	return r.episodeReturns
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() {
	file, err := os.Create(r.filename)
	if err != nil {
		log.Fatalf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err := en.Encode(r.episodeReturns); err != nil {
		log.Fatalf("save: could not encode return data: %v", err)
	}
}
