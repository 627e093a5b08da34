// Package timestep implements the learning sample exchanged between
// the agent and the experience replay store.
package timestep

import "gonum.org/v1/gonum/mat"

// Transition is one learning sample: the observation the agent acted
// from, the action it took, the reward the move produced, the
// observation that resulted, and whether the move ended the episode.
// A Transition is never mutated after construction; the experience
// replay store relies on this.
type Transition struct {
	State     mat.Vector
	Action    int
	Reward    float64
	NextState mat.Vector
	Done      bool
}

// NewTransition packages a transition from its parts.
func NewTransition(state mat.Vector, action int, reward float64,
	nextState mat.Vector, done bool) Transition {
	return Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: nextState,
		Done:      done,
	}
}
