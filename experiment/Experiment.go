// Package experiment implements functionality for running an
// experiment
package experiment

import (
	"github.com/njmarsh/swingup/experiment/tracker"
	ts "github.com/njmarsh/swingup/timestep"
)

// Experiment outlines structs that can run experiments. Experiments
// track environment TimeSteps, caching data about each TimeStep in
// RAM to later be saved to disk. The Save() function takes all cached
// data and saves it to disk, usually after the experiment has been
// run. The Run() method runs all episodes until the maximum timestep
// limit is reached. The RunEpisode() function runs a single episode.
//
// In order to save data, Experiments use Trackers. Trackers determine
// which data generated during the experiment is saved. Experiments
// send each TimeStep to Trackers using the Tracker's Track() method.
// The Tracker then determines which data from the TimeStep it caches
// and saves. New Trackers can be registered with an Experiment through
// the constructor or through an Experiment's Register() function.
type Experiment interface {
	Run() error

	// RunEpisode runs a single episode, returning whether the
	// experiment's timestep limit has been reached
	RunEpisode() (bool, error)

	// Save all tracked data to disk
	Save()

	// Register adds a new tracker.Tracker to the (possibly already
	// running) experiment. Useful to track data only after a
	// specified event.
	Register(t tracker.Tracker)

	// Track the current timestep by sending it to Trackers
	track(ts.TimeStep)
}
