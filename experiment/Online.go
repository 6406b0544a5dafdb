package experiment

import (
	"fmt"
	"time"

	"github.com/samuelfneumann/progressbar"

	"github.com/njmarsh/swingup/agent"
	env "github.com/njmarsh/swingup/environment"
	"github.com/njmarsh/swingup/experiment/tracker"
	ts "github.com/njmarsh/swingup/timestep"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	env.Environment
	agent.Agent
	maxSteps     uint
	currentSteps uint
	trackers     []tracker.Tracker
	pbar         *progressbar.ProgressBar
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for, and the t parameter is a
// slice of tracker.Tracker which determine what data is saved.
func NewOnline(e env.Environment, a agent.Agent, steps uint,
	t ...tracker.Tracker) *Online {
	return &Online{
		Environment: e,
		Agent:       a,
		maxSteps:    steps,
		trackers:    t,
	}
}

// Register registers a tracker.Tracker with the Experiment so that
// data generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment, returning
// whether the experiment's timestep limit has been reached
func (o *Online) RunEpisode() (bool, error) {
	step := o.Environment.Reset()
	if err := o.Agent.ObserveFirst(step); err != nil {
		return false, fmt.Errorf("runEpisode: %v", err)
	}
	o.track(step)

	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++
		if o.pbar != nil {
			o.pbar.Increment()
		}

		// Select action, step in environment
		action, err := o.Agent.SelectAction(step)
		if err != nil {
			return false, fmt.Errorf("runEpisode: could not select "+
				"action: %v", err)
		}
		step, _, err = o.Environment.Step(action)
		if err != nil {
			return false, fmt.Errorf("runEpisode: could not step "+
				"environment: %v", err)
		}

		// Cache the environment step in each Tracker
		o.track(step)

		// Observe the timestep and step the agent
		if err := o.Agent.Observe(action, step); err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
		if err := o.Agent.Step(); err != nil {
			return false, fmt.Errorf("runEpisode: could not step "+
				"agent: %v", err)
		}
	}

	if err := o.Agent.EndEpisode(); err != nil {
		return false, fmt.Errorf("runEpisode: %v", err)
	}

	// Return whether or not the max timestep limit has been reached
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps, displaying a
// progress bar on the terminal
func (o *Online) Run() error {
	o.pbar = progressbar.New(50, int(o.maxSteps),
		time.Second, false)
	o.pbar.Display()
	defer o.pbar.Close()

	ended := false
	for !ended {
		var err error
		ended, err = o.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() {
	for _, t := range o.trackers {
		t.Save()
	}
}

// track tracks the current timestep by caching its data in each
// Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}
