// Package policy implements action selection over the approximator's
// value estimates: epsilon-greedy exploration with a heuristically
// directed fallback, and temperature-scaled softmax exploitation.
package policy

import (
	"github.com/Oz1231/TobogganGame/environment"
	"github.com/Oz1231/TobogganGame/grid"
)

// dangerRadius is the Chebyshev distance within which obstacles and
// body segments contribute proximity penalties to the danger score.
const dangerRadius = 2

// Directed returns the heuristically best direction toward the flag.
//
// The straight-line optimal compass direction is used when the cell it
// leads to is collision free. Otherwise every direction is searched
// for a collision-free option, preferring minimal angular deviation
// from the optimal direction. When no direction is collision free the
// least dangerous one is returned, so Directed always yields a usable
// direction.
//
// Directed is a pure function of the snapshot. Both the exploration
// fallback and the training-time target alignment call it, which keeps
// exploration behaviour and target shaping from drifting apart.
func Directed(state environment.State) grid.Direction {
	optimal := state.Head.Toward(state.Flag)
	if !state.Blocked(optimal.Apply(state.Head)) {
		return optimal
	}

	best := optimal
	bestDeviation := -1
	for d := 0; d < grid.NumDirections; d++ {
		dir := grid.Direction(d)
		if state.Blocked(dir.Apply(state.Head)) {
			continue
		}
		deviation := optimal.AngularSteps(dir)
		if bestDeviation < 0 || deviation < bestDeviation {
			best = dir
			bestDeviation = deviation
		}
	}
	if bestDeviation >= 0 {
		return best
	}

	// Every direction collides; pick the least dangerous crash course.
	best = optimal
	bestScore := DangerScore(state, optimal)
	for d := 0; d < grid.NumDirections; d++ {
		dir := grid.Direction(d)
		if score := DangerScore(state, dir); score < bestScore {
			best = dir
			bestScore = score
		}
	}
	return best
}

// DangerScore rates how bad one step in direction d is: the distance
// to the flag after the move plus proximity penalties for every
// obstacle and body segment within dangerRadius cells, plus a large
// constant for leaving the grid.
func DangerScore(state environment.State, d grid.Direction) float64 {
	next := d.Apply(state.Head)

	score := next.Euclidean(state.Flag)
	if !next.In(state.Width, state.Height) {
		score += 100
	}
	for _, c := range state.Obstacles {
		if dist := next.Chebyshev(c); dist <= dangerRadius {
			score += float64(dangerRadius + 1 - dist)
		}
	}
	for _, c := range state.Trail() {
		if dist := next.Chebyshev(c); dist <= dangerRadius {
			score += float64(dangerRadius + 1 - dist)
		}
	}
	return score
}
