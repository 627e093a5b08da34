// Package environment outlines the interface between the learning core
// and the world simulation that drives it.
//
// The learning core never manipulates the world directly. Each tick it
// receives a State snapshot, answers with a compass direction, and is
// later told how the move resolved. Anything able to play that
// protocol — the bundled toboggan run, a test fixture, or an external
// renderer-backed game — satisfies World.
package environment

import "github.com/Oz1231/TobogganGame/grid"

// State is the per-tick snapshot of the world that the learning core
// consumes. Body is ordered head-first and includes the head cell as
// its first element. The slices are owned by the world; the core must
// not retain or mutate them past the tick.
type State struct {
	Head      grid.Cell
	Body      []grid.Cell
	Flag      grid.Cell
	Obstacles []grid.Cell
	Width     int
	Height    int
	Over      bool
	Score     int
}

// Trail returns the body segments excluding the head. Perception and
// collision checks use the trail, since a ray from the head always
// starts on the head cell.
func (s State) Trail() []grid.Cell {
	if len(s.Body) == 0 {
		return nil
	}
	return s.Body[1:]
}

// Blocked returns whether moving onto c would end the episode: the
// cell is out of bounds, on the trailing body, or on an obstacle.
func (s State) Blocked(c grid.Cell) bool {
	if !c.In(s.Width, s.Height) {
		return true
	}
	if grid.Contains(s.Trail(), c) {
		return true
	}
	return grid.Contains(s.Obstacles, c)
}

// Outcome reports how a single move resolved. The world hands it back
// to the learning core after applying the core's chosen direction.
type Outcome struct {
	CollectedFlag bool
	GameOver      bool
}

// World is a turn-based simulation the learning core can play.
type World interface {
	// State returns the current snapshot.
	State() State

	// Step applies one move and reports how it resolved.
	Step(d grid.Direction) Outcome

	// Reset starts a fresh episode and returns its first snapshot.
	Reset() State
}
