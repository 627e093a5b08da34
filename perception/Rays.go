// Package perception implements the 8-ray distance sensing model that
// turns a world snapshot into the fixed-length observation vector the
// function approximator consumes.
//
// One ray is cast per compass direction. Each ray contributes four
// channels: distance to the nearest wall, trailing-body segment, flag,
// and obstacle along that ray. Distances are encoded as 1 - steps/range
// so nearer readings produce larger values and "nothing within range"
// produces 0, uniformly across channels.
package perception

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Oz1231/TobogganGame/environment"
	"github.com/Oz1231/TobogganGame/grid"
)

// ChannelsPerRay is the number of observation channels each ray
// contributes: wall, body, flag, obstacle, in that order.
const ChannelsPerRay = 4

// ObservationSize is the width of the observation vector and therefore
// of the approximator's input layer.
const ObservationSize = grid.NumDirections * ChannelsPerRay

// HitKind identifies what terminated a ray.
type HitKind int

const (
	HitNone HitKind = iota
	HitWall
	HitBody
	HitObstacle
)

func (h HitKind) String() string {
	switch h {
	case HitWall:
		return "Wall"
	case HitBody:
		return "Body"
	case HitObstacle:
		return "Obstacle"
	default:
		return "None"
	}
}

// RayResult is the diagnostic record of a single ray. It exists for
// external visualization and tests; the observation vector is derived
// from it and is what the rest of the core consumes.
type RayResult struct {
	Direction grid.Direction
	Hit       HitKind
	End       grid.Cell

	// Steps to each entity along the ray; 0 means not found.
	WallSteps     int
	BodySteps     int
	ObstacleSteps int
	FlagSteps     int

	FoundFlag bool
}

// Sensor casts rays over world snapshots. The zero value is not
// usable; construct with NewSensor.
type Sensor struct {
	maxRange int
}

// NewSensor returns a Sensor for a width×height grid. The sensing
// range is max(width, height), enough for a ray to reach a wall from
// any in-bounds cell.
func NewSensor(width, height int) *Sensor {
	r := width
	if height > r {
		r = height
	}
	return &Sensor{maxRange: r}
}

// MaxRange returns the sensing range in steps.
func (s *Sensor) MaxRange() int {
	return s.maxRange
}

// Sense casts all 8 rays from the actor's head and returns the
// observation vector together with the per-ray diagnostics. The
// returned vector is freshly allocated each call.
func (s *Sensor) Sense(state environment.State) (*mat.VecDense, []RayResult) {
	obs := mat.NewVecDense(ObservationSize, nil)
	rays := make([]RayResult, grid.NumDirections)

	for d := 0; d < grid.NumDirections; d++ {
		ray := s.cast(state, grid.Direction(d))
		rays[d] = ray

		base := d * ChannelsPerRay
		obs.SetVec(base, s.encode(ray.WallSteps))
		obs.SetVec(base+1, s.encode(ray.BodySteps))
		obs.SetVec(base+2, s.flagChannel(ray))
		obs.SetVec(base+3, s.encode(ray.ObstacleSteps))
	}

	return obs, rays
}

// encode converts a step count to a channel value. Nearer hits map to
// larger values; steps == 0 means nothing was found and maps to 0.
func (s *Sensor) encode(steps int) float64 {
	if steps <= 0 {
		return 0
	}
	return 1 - float64(steps)/float64(s.maxRange)
}

// flagChannel returns the flag-visibility channel of a ray. The flag
// is visible only if the ray found it with no wall, body, or obstacle
// at an equal or shorter distance.
func (s *Sensor) flagChannel(ray RayResult) float64 {
	if !ray.FoundFlag {
		return 0
	}
	for _, occluder := range []int{ray.WallSteps, ray.BodySteps,
		ray.ObstacleSteps} {
		if occluder > 0 && occluder <= ray.FlagSteps {
			return 0
		}
	}
	return s.encode(ray.FlagSteps)
}

// cast walks a single ray outward from the head. Cells are tested in
// priority order wall, body, obstacle, flag. A wall or body terminates
// the ray; an obstacle terminates it too, except that a flag sharing
// the obstacle's cell is still recorded first. The walk is bounded by
// the sensing range.
func (s *Sensor) cast(state environment.State, d grid.Direction) RayResult {
	ray := RayResult{Direction: d, End: state.Head}
	trail := state.Trail()

	pos := state.Head
	for step := 1; step <= s.maxRange; step++ {
		pos = d.Apply(pos)
		ray.End = pos

		if !pos.In(state.Width, state.Height) {
			ray.Hit = HitWall
			ray.WallSteps = step
			return ray
		}

		if pos.Equal(state.Flag) {
			ray.FoundFlag = true
			ray.FlagSteps = step
		}

		if grid.Contains(trail, pos) {
			ray.Hit = HitBody
			ray.BodySteps = step
			return ray
		}

		if grid.Contains(state.Obstacles, pos) {
			ray.Hit = HitObstacle
			ray.ObstacleSteps = step
			return ray
		}
	}

	return ray
}
