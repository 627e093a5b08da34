package stats

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// tailCap bounds the history tails written to disk. Full histories
// only matter in RAM; persisted statistics need just enough recent
// signal to resume the adaptive schedules.
const tailCap = 100

// snapshot is the on-disk form of a Tracker: scalar counters and
// aggregates first, then capped history tails, then the timestamp
// marking when training started.
type snapshot struct {
	TrainingSteps int
	GamesPlayed   int
	MaxScore      int

	MinLoss float64
	MaxLoss float64
	HaveMin bool
	Epsilon float64

	Rewards []float64
	Losses  []float64
	Scores  []float64

	TrainingStart time.Time
}

// Save writes the tracker to filename using write-then-replace
// semantics.
func (t *Tracker) Save(filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".stats-*")
	if err != nil {
		return errors.Wrap(err, "save: could not create temp file")
	}
	defer os.Remove(tmp.Name())

	snap := snapshot{
		TrainingSteps: t.trainingSteps,
		GamesPlayed:   t.gamesPlayed,
		MaxScore:      t.maxScore,
		MinLoss:       t.minLoss,
		MaxLoss:       t.maxLoss,
		HaveMin:       t.haveMin,
		Epsilon:       t.epsilon,
		Rewards:       lastN(t.rewards, tailCap),
		Losses:        lastN(t.losses, tailCap),
		Scores:        lastN(t.scores, tailCap),
		TrainingStart: t.trainingStart,
	}

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return errors.Wrap(err, "save: could not encode statistics")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "save: could not close temp file")
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrap(err, "save: could not replace stats file")
	}
	return nil
}

// Load replaces the tracker's state with the snapshot read from
// filename.
func (t *Tracker) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "load: could not open stats file")
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return errors.Wrap(err, "load: could not decode statistics")
	}

	t.trainingSteps = snap.TrainingSteps
	t.gamesPlayed = snap.GamesPlayed
	t.maxScore = snap.MaxScore
	t.minLoss = snap.MinLoss
	t.maxLoss = snap.MaxLoss
	t.haveMin = snap.HaveMin
	t.epsilon = snap.Epsilon
	t.rewards = snap.Rewards
	t.losses = snap.Losses
	t.scores = snap.Scores
	t.trainingStart = snap.TrainingStart
	if t.trainingStart.IsZero() {
		t.trainingStart = time.Now()
	}
	return nil
}

func lastN(history []float64, n int) []float64 {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return append([]float64(nil), history...)
}
