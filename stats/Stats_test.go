package stats

import (
	"math"
	"path/filepath"
	"testing"
)

func TestRecordEpisode(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordEpisode(3, 12.5)
	tracker.RecordEpisode(7, -4)
	tracker.RecordEpisode(5, math.NaN())

	if tracker.GamesPlayed() != 3 {
		t.Errorf("games played = %d, want 3", tracker.GamesPlayed())
	}
	if tracker.MaxScore() != 7 {
		t.Errorf("max score = %d, want 7", tracker.MaxScore())
	}
	if mean, ok := tracker.MeanScore(3); !ok || mean != 5 {
		t.Errorf("mean score = %v (ok %v), want 5", mean, ok)
	}
	// The NaN cumulative reward is dropped while the score still counts.
	if mean, ok := tracker.MeanScore(1); !ok || mean != 5 {
		t.Errorf("last score mean = %v (ok %v), want 5", mean, ok)
	}
}

func TestMeanScoreEmpty(t *testing.T) {
	tracker := NewTracker()
	if _, ok := tracker.MeanScore(10); ok {
		t.Error("mean of an empty tracker reported ok")
	}
	if _, ok := tracker.TrimmedMeanLoss(10); ok {
		t.Error("trimmed mean of an empty tracker reported ok")
	}
}

func TestAddLossRejectsNonFinite(t *testing.T) {
	tracker := NewTracker()

	if tracker.AddLoss(math.NaN()) {
		t.Error("NaN loss accepted")
	}
	if tracker.AddLoss(math.Inf(1)) {
		t.Error("+Inf loss accepted")
	}
	if tracker.LossCount() != 0 {
		t.Errorf("loss count = %d after rejected values, want 0",
			tracker.LossCount())
	}
	if !tracker.AddLoss(1.5) {
		t.Error("finite loss rejected")
	}
}

func TestAddLossSmoothsOutliers(t *testing.T) {
	tracker := NewTracker()

	for i := 0; i < 20; i++ {
		tracker.AddLoss(1.0)
	}
	tracker.AddLoss(100)

	// A single huge batch loss must barely move the smoothed trend: its
	// blend weight shrinks with the size of the jump.
	mean, ok := tracker.TrimmedMeanLoss(1)
	if !ok {
		t.Fatal("no loss recorded")
	}
	if mean > 2 {
		t.Errorf("smoothed loss after outlier = %v, want near 1", mean)
	}
}

func TestAddLossConvergesToStableInput(t *testing.T) {
	tracker := NewTracker()

	tracker.AddLoss(10)
	for i := 0; i < 200; i++ {
		tracker.AddLoss(2)
	}

	mean, ok := tracker.TrimmedMeanLoss(1)
	if !ok {
		t.Fatal("no loss recorded")
	}
	if math.Abs(mean-2) > 0.01 {
		t.Errorf("smoothed loss = %v, want convergence to 2", mean)
	}
}

func TestLossBounds(t *testing.T) {
	tracker := NewTracker()

	if _, _, ok := tracker.LossBounds(); ok {
		t.Error("bounds reported before any loss")
	}

	tracker.AddLoss(5)
	tracker.AddLoss(1)
	tracker.AddLoss(9)

	min, max, ok := tracker.LossBounds()
	if !ok {
		t.Fatal("bounds missing after accepted losses")
	}
	if min >= max {
		t.Errorf("min %v not below max %v", min, max)
	}
	if min > 5 || max > 9 {
		t.Errorf("bounds [%v, %v] outside the smoothed range", min, max)
	}
}

func TestHistoryCap(t *testing.T) {
	tracker := NewTracker()

	for i := 0; i < historyCap+500; i++ {
		tracker.AddLoss(float64(i))
	}
	if tracker.LossCount() != historyCap {
		t.Errorf("loss history holds %d entries, want cap %d",
			tracker.LossCount(), historyCap)
	}
	if tracker.TrainingSteps() != 0 {
		t.Errorf("losses must not count as training steps")
	}
}

func TestTrimmedMeanLossDiscardsExtremes(t *testing.T) {
	tracker := NewTracker()

	// Identical values keep the smoothing inert; the final spike leaves
	// a smoothed residue the trimming should drop.
	for i := 0; i < 19; i++ {
		tracker.AddLoss(4)
	}
	tracker.AddLoss(400)

	trimmed, ok := tracker.TrimmedMeanLoss(20)
	if !ok {
		t.Fatal("no loss recorded")
	}
	if math.Abs(trimmed-4) > 1e-9 {
		t.Errorf("trimmed mean = %v, want the spike discarded", trimmed)
	}
}

func TestReset(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordEpisode(9, 40)
	tracker.AddLoss(1)
	tracker.AddTrainingStep()
	tracker.SetEpsilon(0.7)

	tracker.Reset()

	if tracker.GamesPlayed() != 0 || tracker.TrainingSteps() != 0 ||
		tracker.MaxScore() != 0 || tracker.LossCount() != 0 {
		t.Error("reset left counters behind")
	}
	if tracker.Epsilon() != 0 {
		t.Errorf("epsilon = %v after reset, want 0", tracker.Epsilon())
	}
	if _, _, ok := tracker.LossBounds(); ok {
		t.Error("reset left loss bounds behind")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "stats.bin")

	tracker := NewTracker()
	for i := 0; i < 10; i++ {
		tracker.RecordEpisode(i, float64(i)*2)
		tracker.AddLoss(float64(i) + 0.5)
		tracker.AddTrainingStep()
	}
	tracker.SetEpsilon(0.35)

	if err := tracker.Save(filename); err != nil {
		t.Fatal(err)
	}

	restored := NewTracker()
	if err := restored.Load(filename); err != nil {
		t.Fatal(err)
	}

	if restored.GamesPlayed() != tracker.GamesPlayed() {
		t.Errorf("games played = %d, want %d", restored.GamesPlayed(),
			tracker.GamesPlayed())
	}
	if restored.TrainingSteps() != tracker.TrainingSteps() {
		t.Errorf("training steps = %d, want %d",
			restored.TrainingSteps(), tracker.TrainingSteps())
	}
	if restored.MaxScore() != tracker.MaxScore() {
		t.Errorf("max score = %d, want %d", restored.MaxScore(),
			tracker.MaxScore())
	}
	if restored.Epsilon() != 0.35 {
		t.Errorf("epsilon = %v, want 0.35", restored.Epsilon())
	}
	if restored.TrainingStart().IsZero() {
		t.Error("training start lost across reload")
	}

	want, _ := tracker.TrimmedMeanLoss(10)
	got, ok := restored.TrimmedMeanLoss(10)
	if !ok || got != want {
		t.Errorf("trimmed mean loss = %v (ok %v), want %v", got, ok, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Load(filepath.Join(t.TempDir(), "absent.bin")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
