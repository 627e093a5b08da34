// Package grid implements the discrete geometry shared by every part
// of the learning core: cells, the 8 compass directions, and the
// bijection between directions and the approximator's action indices.
package grid

import "fmt"

// Direction is one of the 8 compass directions the actor can move in.
// The ordering North, NorthEast, ..., NorthWest is the single source of
// truth for action indexing: the approximator's output layer, the
// perception rays, and the policy all use this same ordering. Changing
// it invalidates any persisted weights.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// NumDirections is the number of discrete actions available to the
// actor, and therefore the width of the approximator's output layer.
const NumDirections = 8

// directionDeltas maps each Direction to its cell step. The grid is
// row-major with y increasing downward, so North decreases y.
var directionDeltas = [NumDirections]Cell{
	{0, -1},  // North
	{1, -1},  // NorthEast
	{1, 0},   // East
	{1, 1},   // SouthEast
	{0, 1},   // South
	{-1, 1},  // SouthWest
	{-1, 0},  // West
	{-1, -1}, // NorthWest
}

// Delta returns the per-step cell offset of the direction.
func (d Direction) Delta() Cell {
	return directionDeltas[d]
}

// Apply returns the cell reached by taking one step from c in
// direction d.
func (d Direction) Apply(c Cell) Cell {
	delta := directionDeltas[d]
	return Cell{X: c.X + delta.X, Y: c.Y + delta.Y}
}

// Opposite returns the direction pointing exactly away from d.
func (d Direction) Opposite() Direction {
	return (d + NumDirections/2) % NumDirections
}

// Rotate returns the direction steps compass steps clockwise from d.
// Negative steps rotate counter-clockwise.
func (d Direction) Rotate(steps int) Direction {
	r := (int(d) + steps) % NumDirections
	if r < 0 {
		r += NumDirections
	}
	return Direction(r)
}

// AngularSteps returns the number of 45° compass steps between d and
// o, always in [0, 4]. Adjacent directions are 1 step apart, opposite
// directions 4.
func (d Direction) AngularSteps(o Direction) int {
	diff := int(d) - int(o)
	if diff < 0 {
		diff = -diff
	}
	if diff > NumDirections/2 {
		diff = NumDirections - diff
	}
	return diff
}

func (d Direction) String() string {
	switch d {
	case North:
		return "North"
	case NorthEast:
		return "NorthEast"
	case East:
		return "East"
	case SouthEast:
		return "SouthEast"
	case South:
		return "South"
	case SouthWest:
		return "SouthWest"
	case West:
		return "West"
	case NorthWest:
		return "NorthWest"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Action is the discrete action index in [0, 7] fed to and produced by
// the function approximator. Actions and Directions are in bijection.
type Action = int

// FromAction converts an approximator action index to a Direction.
// FromAction panics on an out-of-range action, since such an action can
// only be produced by a programming error, never by the approximator.
func FromAction(a Action) Direction {
	if a < 0 || a >= NumDirections {
		panic(fmt.Sprintf("fromAction: action %d out of range [0, %d)",
			a, NumDirections))
	}
	return Direction(a)
}

// ToAction converts a Direction to its approximator action index.
func (d Direction) ToAction() Action {
	return int(d)
}
