package policy

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Oz1231/TobogganGame/environment"
	"github.com/Oz1231/TobogganGame/grid"
)

const (
	// DefaultTemperature scales the softmax over action values during
	// exploitation. Higher temperatures flatten the distribution.
	DefaultTemperature = 2.0

	// DefaultDirectedProbability is the chance that an exploration
	// step uses the directed heuristic instead of a uniformly random
	// action, once the agent counts as stuck.
	DefaultDirectedProbability = 0.8

	// DefaultStuckAfter is the number of ticks without a flag
	// collection after which exploration switches from random to
	// directed.
	DefaultStuckAfter = 60
)

// Mode reports which branch selected an action, for diagnostics.
type Mode int

const (
	Exploit Mode = iota
	ExploreRandom
	ExploreDirected
)

func (m Mode) String() string {
	switch m {
	case Exploit:
		return "Exploit"
	case ExploreRandom:
		return "ExploreRandom"
	default:
		return "ExploreDirected"
	}
}

// EGreedy selects actions by a single Bernoulli draw per tick against
// the current exploration rate: explore via the directed heuristic or
// a random action, exploit by sampling a temperature-scaled softmax
// over the approximator's action values.
type EGreedy struct {
	epsilon     float64
	temperature float64
	directed    float64
	stuckAfter  int

	rng  *rand.Rand
	seed rand.Source
}

// NewEGreedy constructs an EGreedy selector with initial exploration
// rate epsilon.
func NewEGreedy(epsilon float64, seed uint64) *EGreedy {
	source := rand.NewSource(seed)
	return &EGreedy{
		epsilon:     epsilon,
		temperature: DefaultTemperature,
		directed:    DefaultDirectedProbability,
		stuckAfter:  DefaultStuckAfter,
		rng:         rand.New(source),
		seed:        source,
	}
}

// Epsilon returns the current exploration rate.
func (e *EGreedy) Epsilon() float64 {
	return e.epsilon
}

// SetEpsilon replaces the exploration rate, clamped to [0, 1].
func (e *EGreedy) SetEpsilon(epsilon float64) {
	e.epsilon = math.Max(0, math.Min(1, epsilon))
}

// SelectAction picks one direction for the current tick. qValues are
// the online approximator's estimates for the snapshot's observation,
// and framesSinceFlag is the number of ticks since the last flag
// collection.
func (e *EGreedy) SelectAction(state environment.State, qValues []float64,
	framesSinceFlag int) (grid.Direction, Mode) {
	if e.rng.Float64() < e.epsilon {
		return e.explore(state, framesSinceFlag)
	}
	return e.exploit(qValues), Exploit
}

// explore picks an exploration action. An agent stuck for too long
// mostly follows the directed heuristic toward the flag; otherwise the
// action is uniformly random.
func (e *EGreedy) explore(state environment.State,
	framesSinceFlag int) (grid.Direction, Mode) {
	if framesSinceFlag > e.stuckAfter && e.rng.Float64() < e.directed {
		return Directed(state), ExploreDirected
	}
	return grid.Direction(e.rng.Intn(grid.NumDirections)), ExploreRandom
}

// exploit samples a direction from the temperature-scaled softmax over
// the action values instead of taking the strict argmax, keeping
// exploitation stochastic enough to avoid deterministic loops.
func (e *EGreedy) exploit(qValues []float64) grid.Direction {
	probs := Softmax(qValues, e.temperature)
	dist := distuv.NewCategorical(probs, e.seed)
	return grid.Direction(int(dist.Rand()))
}

// Softmax converts action values to a probability distribution at the
// given temperature. The values are shifted by their maximum before
// exponentiation; if normalization underflows anyway the result falls
// back to a uniform distribution.
func Softmax(values []float64, temperature float64) []float64 {
	probs := make([]float64, len(values))

	max := values[0]
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	var sum float64
	for i, v := range values {
		probs[i] = math.Exp((v - max) / temperature)
		sum += probs[i]
	}

	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range probs {
			probs[i] = 1 / float64(len(probs))
		}
		return probs
	}

	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
