package deepq

import (
	"github.com/pkg/errors"

	"github.com/Oz1231/TobogganGame/expreplay"
	"github.com/Oz1231/TobogganGame/policy"
)

// Config implements a configuration for a DeepQ agent.
type Config struct {
	// HiddenSize is the approximator's hidden layer width.
	HiddenSize int

	// Discount is the Double-DQN discount factor.
	Discount float64

	// Learning rate schedule: geometric decay from LearningRate down
	// to LearningRateMin, modulated each tick by the loss trend.
	LearningRate      float64
	LearningRateMin   float64
	LearningRateDecay float64

	// Exploration schedule: geometric decay from Epsilon down to
	// EpsilonMin, with a temporary boost when recent scores regress
	// sharply against the long-run window.
	Epsilon      float64
	EpsilonMin   float64
	EpsilonDecay float64
	EpsilonBoost float64

	// BatchSize is the target size of a prioritized replay batch, and
	// LearnEvery the baseline number of frames between learning
	// passes. The effective frequency is recomputed from long-run
	// statistics at every episode end.
	BatchSize  int
	LearnEvery int

	// Replay configures the experience store.
	Replay expreplay.Config

	// Target network synchronization: a Polyak blend of Tau every
	// SoftUpdateEvery ticks, and a full copy every HardUpdateEvery
	// learning passes.
	Tau             float64
	SoftUpdateEvery int
	HardUpdateEvery int

	// TargetClip bounds the magnitude of the Double-DQN target.
	TargetClip float64

	// Alignment multipliers applied to the training target when the
	// replayed action agrees (within two compass steps) or exactly
	// disagrees with the directed heuristic.
	AlignBoost float64
	AlignDamp  float64

	// StuckAfter is the number of ticks without a flag collection
	// after which the time penalty applies and exploration prefers
	// the directed heuristic.
	StuckAfter int

	// Persistence: file paths for the three artifacts and the episode
	// cadence at which they are saved. Empty paths disable
	// persistence.
	WeightsFile string
	StatsFile   string
	ReplayFile  string
	SaveEvery   int

	Seed uint64
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		HiddenSize: 128,
		Discount:   0.95,

		LearningRate:      0.01,
		LearningRateMin:   0.0001,
		LearningRateDecay: 0.99995,

		Epsilon:      1.0,
		EpsilonMin:   0.02,
		EpsilonDecay: 0.9995,
		EpsilonBoost: 1.05,

		BatchSize:  64,
		LearnEvery: 4,

		Replay: expreplay.DefaultConfig(),

		Tau:             0.05,
		SoftUpdateEvery: 4,
		HardUpdateEvery: 250,

		TargetClip: 100,

		AlignBoost: 1.15,
		AlignDamp:  0.85,

		StuckAfter: policy.DefaultStuckAfter,

		WeightsFile: "toboggan-weights.bin",
		StatsFile:   "toboggan-stats.bin",
		ReplayFile:  "toboggan-replay.bin",
		SaveEvery:   25,

		Seed: 1,
	}
}

// Validate ensures the configuration can construct a working agent.
func (c Config) Validate() error {
	if c.HiddenSize < 1 {
		return errors.Errorf("config: hidden size must be > 0, got %v",
			c.HiddenSize)
	}
	if c.Discount < 0 || c.Discount >= 1 {
		return errors.Errorf("config: discount must be in [0, 1), got %v",
			c.Discount)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("config: learning rate must be > 0, got %v",
			c.LearningRate)
	}
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return errors.Errorf("config: epsilon must be in [0, 1], got %v",
			c.Epsilon)
	}
	if c.BatchSize < 1 {
		return errors.Errorf("config: batch size must be > 0, got %v",
			c.BatchSize)
	}
	if c.LearnEvery < 1 {
		return errors.Errorf("config: learn frequency must be > 0, got %v",
			c.LearnEvery)
	}
	if c.Tau <= 0 || c.Tau > 1 {
		return errors.Errorf("config: tau must be in (0, 1], got %v", c.Tau)
	}
	if c.SoftUpdateEvery < 1 || c.HardUpdateEvery < 1 {
		return errors.Errorf("config: target sync cadences must be > 0")
	}
	if c.TargetClip <= 0 {
		return errors.Errorf("config: target clip must be > 0, got %v",
			c.TargetClip)
	}
	return nil
}
