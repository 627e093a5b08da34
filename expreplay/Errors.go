package expreplay

import (
	"errors"
	"fmt"
)

// ExpReplayError implements errors unique to an experience replay
// store.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

var errEmptyStore error = errors.New("store empty")

// errInvalidCapacity reports a replay Config whose capacity bounds
// cannot form a usable store.
func errInvalidCapacity(c int) error {
	return fmt.Errorf("invalid capacity %d", c)
}

var errInsufficientSamples = errors.New("minimum capacity not yet reached")

// IsInsufficientSamples returns whether or not an error reports that
// there are too few transitions in the store to build a batch.
//
// A store has too few transitions when its current length is below its
// configured minimum capacity.
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, errInsufficientSamples)
}

// IsEmptyStore returns whether or not an error reports that a replay
// store is empty.
func IsEmptyStore(err error) bool {
	return errors.Is(err, errEmptyStore)
}
