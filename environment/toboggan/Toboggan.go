// Package toboggan implements the reference world simulation: a
// grid-bound toboggan run in which the actor drags a growing trail
// behind it, chases a relocating flag, and crashes on walls, obstacles,
// and its own trail.
//
// The learning core does not depend on this package; it exists so the
// training driver and end-to-end tests have a world that speaks the
// environment.World protocol.
package toboggan

import (
	"golang.org/x/exp/rand"

	"github.com/Oz1231/TobogganGame/environment"
	"github.com/Oz1231/TobogganGame/grid"
)

// DefaultObstaclesPerFlag controls how quickly the run gets harder:
// one extra obstacle is spawned for every flag collected.
const DefaultObstaclesPerFlag = 1

// Toboggan is a playable toboggan run satisfying environment.World.
type Toboggan struct {
	width  int
	height int

	body      []grid.Cell // head first
	flag      grid.Cell
	obstacles []grid.Cell

	over  bool
	score int

	obstaclesPerFlag int
	rng              *rand.Rand
}

// New creates a run on a width×height grid. The actor starts in the
// centre with no trail, the first flag is placed randomly, and no
// obstacles exist until the first flag is collected.
func New(width, height int, seed uint64) *Toboggan {
	t := &Toboggan{
		width:            width,
		height:           height,
		obstaclesPerFlag: DefaultObstaclesPerFlag,
		rng:              rand.New(rand.NewSource(seed)),
	}
	t.Reset()
	return t
}

// Reset starts a fresh episode, keeping the grid dimensions and RNG.
func (t *Toboggan) Reset() environment.State {
	t.body = []grid.Cell{{X: t.width / 2, Y: t.height / 2}}
	t.obstacles = nil
	t.over = false
	t.score = 0
	t.flag = t.freeCell()
	return t.State()
}

// State returns the current snapshot.
func (t *Toboggan) State() environment.State {
	return environment.State{
		Head:      t.body[0],
		Body:      t.body,
		Flag:      t.flag,
		Obstacles: t.obstacles,
		Width:     t.width,
		Height:    t.height,
		Over:      t.over,
		Score:     t.score,
	}
}

// Step applies one move. The head advances one cell in direction d and
// the trail follows. Walking out of bounds, onto the trail, or onto an
// obstacle ends the episode. Reaching the flag grows the trail by one
// segment, increments the score, relocates the flag, and spawns
// obstacles.
func (t *Toboggan) Step(d grid.Direction) environment.Outcome {
	if t.over {
		return environment.Outcome{GameOver: true}
	}

	next := d.Apply(t.body[0])

	if !next.In(t.width, t.height) ||
		grid.Contains(t.body[:len(t.body)-1], next) ||
		grid.Contains(t.obstacles, next) {
		t.over = true
		return environment.Outcome{GameOver: true}
	}

	collected := next.Equal(t.flag)

	// Advance the trail: every segment takes its predecessor's cell.
	// On collection the tail is duplicated instead of dropped, which
	// grows the trail by one.
	t.body = append([]grid.Cell{next}, t.body...)
	if !collected {
		t.body = t.body[:len(t.body)-1]
	}

	if collected {
		t.score++
		t.spawnObstacles(t.obstaclesPerFlag)
		t.flag = t.freeCell()
	}

	return environment.Outcome{CollectedFlag: collected}
}

// Score returns the number of flags collected this episode.
func (t *Toboggan) Score() int {
	return t.score
}

// spawnObstacles places n obstacles on free cells. On a crowded grid
// placement may silently place fewer.
func (t *Toboggan) spawnObstacles(n int) {
	for i := 0; i < n; i++ {
		c, ok := t.tryFreeCell()
		if !ok {
			return
		}
		t.obstacles = append(t.obstacles, c)
	}
}

// freeCell returns a uniformly random cell not occupied by the body,
// an obstacle, or the flag. It panics if the grid is completely full,
// which cannot happen in a playable configuration.
func (t *Toboggan) freeCell() grid.Cell {
	c, ok := t.tryFreeCell()
	if !ok {
		panic("toboggan: no free cell left on the grid")
	}
	return c
}

func (t *Toboggan) tryFreeCell() (grid.Cell, bool) {
	// Rejection sampling first; fall back to a scan when the grid is
	// nearly full.
	for attempt := 0; attempt < 4*t.width*t.height; attempt++ {
		c := grid.Cell{X: t.rng.Intn(t.width), Y: t.rng.Intn(t.height)}
		if t.occupied(c) {
			continue
		}
		return c, true
	}
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			c := grid.Cell{X: x, Y: y}
			if !t.occupied(c) {
				return c, true
			}
		}
	}
	return grid.Cell{}, false
}

func (t *Toboggan) occupied(c grid.Cell) bool {
	return grid.Contains(t.body, c) || grid.Contains(t.obstacles, c) ||
		c.Equal(t.flag)
}
