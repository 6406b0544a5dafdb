package expreplay

import (
	"errors"
	"fmt"
)

var (
	errEmptyCache          = errors.New("cannot sample empty cache")
	errInsufficientSamples = errors.New("insufficient samples in cache")
)

// ExpReplayError describes an error that occurred during an operation
// on an ExperienceReplayer
type ExpReplayError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *ExpReplayError) Error() string {
	return fmt.Sprintf("%v: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// IsEmptyBuffer returns whether err indicates that a buffer was
// sampled while empty
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, errEmptyCache)
}

// IsInsufficientSamples returns whether err indicates that a buffer
// was sampled before holding its minimum number of samples
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, errInsufficientSamples)
}
