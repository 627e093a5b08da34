// Package agent defines an agent interface
package agent

import (
	"github.com/Oz1231/TobogganGame/environment"
	"github.com/Oz1231/TobogganGame/grid"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Policy, which chooses one compass
// direction per world tick, and a Learner, which consumes the resolved
// outcome of each move to update the Policy. The Policy and Learner of
// an Agent share the same approximator so that learning is reflected
// in the actions the Policy chooses.
type Agent interface {
	Learner
	Policy
}

// A Closer is an agent that must be closed after it is done learning
// so that pending state can be persisted.
type Closer interface {
	Agent
	Close() error
}

// Learner implements a learning algorithm that defines how the
// approximator is updated from resolved moves.
type Learner interface {
	// UpdateAfterMove records how the previously selected action
	// resolved and performs any learning due this tick.
	UpdateAfterMove(state environment.State, outcome environment.Outcome) error

	// Reset discards everything the agent has learned, returning it to
	// a consistent freshly initialized state.
	Reset() error
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. The world hands the
// Policy one snapshot per tick and applies the returned direction.
type Policy interface {
	SelectAction(state environment.State) grid.Direction
}
