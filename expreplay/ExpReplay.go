// Package expreplay implements the experience replay store: a bounded
// collection of transitions with mixed eviction and prioritized batch
// construction.
//
// Eviction protects rare high-signal transitions: an incoming
// reward-bearing or terminal transition displaces a uniformly random
// entry, while routine transitions displace the oldest entry. Sampling
// builds batches biased toward flag collections and crashes while
// keeping enough ordinary transitions for generalization.
package expreplay

import (
	"sort"

	"golang.org/x/exp/rand"

	"github.com/Oz1231/TobogganGame/timestep"
	"github.com/Oz1231/TobogganGame/utils/intutils"
)

// Config implements a specific configuration of a replay Store.
type Config struct {
	// MaxCapacity bounds the number of stored transitions. Once full,
	// every insert evicts exactly one entry.
	MaxCapacity int

	// MinCapacity is the number of transitions required before
	// SampleBatch will produce a batch.
	MinCapacity int

	// HighReward and LowReward classify transitions for eviction and
	// prioritized sampling. Rewards above HighReward mark flag
	// collections, below LowReward mark crashes.
	HighReward float64
	LowReward  float64
}

// DefaultConfig returns the reference replay configuration.
func DefaultConfig() Config {
	return Config{
		MaxCapacity: 20000,
		MinCapacity: 2000,
		HighReward:  50,
		LowReward:   -15,
	}
}

// Create creates the Store described by the Config.
func (c Config) Create(seed uint64) (*Store, error) {
	return New(c, seed)
}

// Store is a bounded, insertion-ordered collection of transitions.
// Index 0 always holds the oldest surviving transition.
type Store struct {
	transitions []timestep.Transition

	maxCapacity int
	minCapacity int
	highReward  float64
	lowReward   float64

	rng *rand.Rand
}

// New creates and returns a new replay Store.
func New(c Config, seed uint64) (*Store, error) {
	if c.MaxCapacity < 1 {
		return nil, &ExpReplayError{Op: "new",
			Err: errInvalidCapacity(c.MaxCapacity)}
	}
	if c.MinCapacity < 1 || c.MinCapacity > c.MaxCapacity {
		return nil, &ExpReplayError{Op: "new",
			Err: errInvalidCapacity(c.MinCapacity)}
	}

	return &Store{
		transitions: make([]timestep.Transition, 0, c.MaxCapacity),
		maxCapacity: c.MaxCapacity,
		minCapacity: c.MinCapacity,
		highReward:  c.HighReward,
		lowReward:   c.LowReward,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Len returns the current number of stored transitions.
func (s *Store) Len() int {
	return len(s.transitions)
}

// MaxCapacity returns the maximum allowable transitions in the store.
func (s *Store) MaxCapacity() int {
	return s.maxCapacity
}

// MinCapacity returns the number of transitions required to be in the
// store before batches can be sampled.
func (s *Store) MinCapacity() int {
	return s.minCapacity
}

// Clear discards every stored transition. Only a full agent reset
// calls this.
func (s *Store) Clear() {
	s.transitions = s.transitions[:0]
}

// Insert adds a transition, evicting one existing entry when the store
// is full. A reward-bearing or terminal incoming transition evicts a
// uniformly random victim so rare events are not flushed purely by
// recency; anything else evicts the oldest entry.
func (s *Store) Insert(t timestep.Transition) {
	if len(s.transitions) >= s.maxCapacity {
		victim := 0
		if s.significant(t) {
			victim = s.rng.Intn(len(s.transitions))
		}
		s.transitions = append(s.transitions[:victim],
			s.transitions[victim+1:]...)
	}
	s.transitions = append(s.transitions, t)
}

// significant reports whether a transition carries a strong learning
// signal: a flag collection, a crash, or an episode end.
func (s *Store) significant(t timestep.Transition) bool {
	return t.Done || t.Reward > s.highReward || t.Reward < s.lowReward
}

// SampleBatch builds a prioritized batch of up to targetSize
// transitions without duplicate entries. Slots are filled in order:
// the most recent transitions, then shuffled flag collections, then
// shuffled crashes, then the largest remaining reward magnitudes, then
// uniform random picks. A store holding fewer candidates than
// targetSize yields a smaller batch rather than an error.
func (s *Store) SampleBatch(targetSize int) ([]timestep.Transition, error) {
	if len(s.transitions) == 0 {
		return nil, &ExpReplayError{Op: "sampleBatch", Err: errEmptyStore}
	}
	if len(s.transitions) < s.minCapacity {
		return nil, &ExpReplayError{Op: "sampleBatch",
			Err: errInsufficientSamples}
	}
	if targetSize < 1 {
		return nil, nil
	}
	if targetSize > len(s.transitions) {
		targetSize = len(s.transitions)
	}

	selected := make(map[int]bool, targetSize)
	batch := make([]timestep.Transition, 0, targetSize)
	take := func(index int) {
		selected[index] = true
		batch = append(batch, s.transitions[index])
	}

	// Most recent transitions first.
	numRecent := intutils.Min(targetSize/4, len(s.transitions)/10)
	for i := 0; i < numRecent; i++ {
		take(len(s.transitions) - 1 - i)
	}

	// Flag collections, shuffled before capping.
	flags := s.indicesWhere(selected, func(t timestep.Transition) bool {
		return t.Reward > s.highReward
	})
	s.shuffle(flags)
	for _, index := range capped(flags, targetSize/3) {
		if len(batch) >= targetSize {
			return batch, nil
		}
		take(index)
	}

	// Crashes, shuffled before capping.
	crashes := s.indicesWhere(selected, func(t timestep.Transition) bool {
		return t.Reward < s.lowReward
	})
	s.shuffle(crashes)
	for _, index := range capped(crashes, targetSize/6) {
		if len(batch) >= targetSize {
			return batch, nil
		}
		take(index)
	}

	// Fill remaining slots: half by descending reward magnitude, half
	// uniformly at random from whatever is left.
	rest := s.indicesWhere(selected, func(timestep.Transition) bool {
		return true
	})
	remaining := targetSize - len(batch)
	byMagnitude := (remaining + 1) / 2

	sort.SliceStable(rest, func(i, j int) bool {
		return abs(s.transitions[rest[i]].Reward) >
			abs(s.transitions[rest[j]].Reward)
	})
	for _, index := range capped(rest, byMagnitude) {
		take(index)
	}

	rest = s.indicesWhere(selected, func(timestep.Transition) bool {
		return true
	})
	s.shuffle(rest)
	for _, index := range rest {
		if len(batch) >= targetSize {
			break
		}
		take(index)
	}

	return batch, nil
}

// indicesWhere returns the unselected indices whose transitions
// satisfy the predicate.
func (s *Store) indicesWhere(selected map[int]bool,
	pred func(timestep.Transition) bool) []int {
	var indices []int
	for i, t := range s.transitions {
		if !selected[i] && pred(t) {
			indices = append(indices, i)
		}
	}
	return indices
}

func (s *Store) shuffle(indices []int) {
	s.rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}

func capped(indices []int, n int) []int {
	if len(indices) > n {
		return indices[:n]
	}
	return indices
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
