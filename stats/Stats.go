// Package stats implements the statistics and stability tracker: it
// aggregates episode scores and training losses, smooths noisy
// training signals, and exposes the trends the training loop reads to
// adapt its hyperparameter schedules.
//
// The tracker never influences gradients directly. It only shapes the
// reported training-health signals.
package stats

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Oz1231/TobogganGame/utils/floatutils"
	"github.com/Oz1231/TobogganGame/utils/intutils"
)

const (
	// historyCap bounds every history; the oldest entry is trimmed
	// first.
	historyCap = 1000

	// lossSmoothing is the base weight of the adaptive exponential
	// smoothing applied to incoming losses. The effective weight
	// shrinks as the relative jump from the previous value grows, so a
	// single outlier batch cannot whip the trend around.
	lossSmoothing = 0.3
)

// Tracker aggregates learning statistics across episodes and training
// steps.
type Tracker struct {
	trainingSteps int
	gamesPlayed   int
	maxScore      int

	scores  []float64
	losses  []float64
	rewards []float64

	minLoss float64
	maxLoss float64
	haveMin bool

	// epsilon mirrors the policy's exploration rate so it survives in
	// the statistics artifact; the tracker itself never reads it.
	epsilon float64

	trainingStart time.Time
}

// NewTracker returns an empty Tracker with the training-start
// timestamp set to now.
func NewTracker() *Tracker {
	return &Tracker{trainingStart: time.Now()}
}

// TrainingSteps returns the number of learning passes recorded.
func (t *Tracker) TrainingSteps() int { return t.trainingSteps }

// GamesPlayed returns the number of episodes recorded.
func (t *Tracker) GamesPlayed() int { return t.gamesPlayed }

// MaxScore returns the highest episode score seen.
func (t *Tracker) MaxScore() int { return t.maxScore }

// TrainingStart returns when this tracker first started recording.
func (t *Tracker) TrainingStart() time.Time { return t.trainingStart }

// Epsilon returns the last recorded exploration rate.
func (t *Tracker) Epsilon() float64 { return t.epsilon }

// SetEpsilon records the current exploration rate for persistence.
func (t *Tracker) SetEpsilon(epsilon float64) { t.epsilon = epsilon }

// AddTrainingStep records that one learning pass ran.
func (t *Tracker) AddTrainingStep() {
	t.trainingSteps++
}

// RecordEpisode records a finished episode's score and cumulative
// reward.
func (t *Tracker) RecordEpisode(score int, episodeReward float64) {
	t.gamesPlayed++
	if score > t.maxScore {
		t.maxScore = score
	}
	t.scores = push(t.scores, float64(score))
	if floatutils.Finite(episodeReward) {
		t.rewards = push(t.rewards, episodeReward)
	}
}

// AddLoss ingests one batch loss. Non-finite values are rejected
// outright and the return value reports whether the loss was accepted.
// Accepted values are blended against the previous smoothed loss with
// a weight that shrinks as the relative jump grows.
func (t *Tracker) AddLoss(loss float64) bool {
	if !floatutils.Finite(loss) {
		return false
	}

	smoothed := loss
	if len(t.losses) > 0 {
		prev := t.losses[len(t.losses)-1]
		jump := abs(loss-prev) / floatutils.Max(abs(prev), 1e-8)
		weight := lossSmoothing / (1 + jump)
		smoothed = prev + weight*(loss-prev)
	}
	t.losses = push(t.losses, smoothed)

	if !t.haveMin || smoothed < t.minLoss {
		t.minLoss = smoothed
		t.haveMin = true
	}
	if smoothed > t.maxLoss {
		t.maxLoss = smoothed
	}
	return true
}

// MeanScore returns the arithmetic mean of the last n scores, or 0
// with ok == false when no score exists yet.
func (t *Tracker) MeanScore(n int) (mean float64, ok bool) {
	if len(t.scores) == 0 {
		return 0, false
	}
	return stat.Mean(tail(t.scores, n), nil), true
}

// TrimmedMeanLoss returns the mean of the last n smoothed losses with
// the most extreme tenth at each end discarded, guarding the reported
// trend against residual outliers. ok is false when no loss exists.
func (t *Tracker) TrimmedMeanLoss(n int) (mean float64, ok bool) {
	if len(t.losses) == 0 {
		return 0, false
	}

	window := append([]float64(nil), tail(t.losses, n)...)
	sort.Float64s(window)

	trim := len(window) / 10
	window = window[trim : len(window)-trim]
	return stat.Mean(window, nil), true
}

// LossBounds returns the minimum and maximum smoothed loss seen, for
// external normalization. ok is false before any loss was accepted.
func (t *Tracker) LossBounds() (min, max float64, ok bool) {
	return t.minLoss, t.maxLoss, t.haveMin
}

// LossCount returns the number of smoothed losses held.
func (t *Tracker) LossCount() int { return len(t.losses) }

// Reset discards all histories and counters and restarts the
// training-start timestamp. Only a full agent reset calls this.
func (t *Tracker) Reset() {
	*t = *NewTracker()
}

// push appends v and trims oldest-first to the history cap.
func push(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	return history
}

// tail returns the last n entries of history without copying.
func tail(history []float64, n int) []float64 {
	n = intutils.Clamp(n, 1, len(history))
	return history[len(history)-n:]
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
