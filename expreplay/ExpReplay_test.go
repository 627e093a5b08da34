package expreplay

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/Oz1231/TobogganGame/timestep"
)

func testConfig() Config {
	return Config{
		MaxCapacity: 50,
		MinCapacity: 10,
		HighReward:  50,
		LowReward:   -15,
	}
}

func transition(id int, reward float64, done bool) timestep.Transition {
	obs := mat.NewVecDense(2, []float64{float64(id), reward})
	next := mat.NewVecDense(2, []float64{float64(id) + 0.5, reward})
	return timestep.Transition{
		State:     obs,
		Action:    id,
		Reward:    reward,
		NextState: next,
		Done:      done,
	}
}

func TestNewRejectsInvalidCapacities(t *testing.T) {
	if _, err := New(Config{MaxCapacity: 0, MinCapacity: 1}, 1); err == nil {
		t.Error("expected error for zero max capacity")
	}
	if _, err := New(Config{MaxCapacity: 10, MinCapacity: 0}, 1); err == nil {
		t.Error("expected error for zero min capacity")
	}
	if _, err := New(Config{MaxCapacity: 10, MinCapacity: 20}, 1); err == nil {
		t.Error("expected error for min capacity above max")
	}
}

func TestInsertNeverExceedsCapacity(t *testing.T) {
	store, err := New(testConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 200; i++ {
		reward := -0.3
		if i%7 == 0 {
			reward = 75
		}
		store.Insert(transition(i, reward, i%13 == 0))
		if store.Len() > store.MaxCapacity() {
			t.Fatalf("store grew to %d, capacity %d", store.Len(),
				store.MaxCapacity())
		}
	}
	if store.Len() != store.MaxCapacity() {
		t.Errorf("store holds %d transitions, want full %d", store.Len(),
			store.MaxCapacity())
	}
}

func TestRoutineInsertEvictsOldest(t *testing.T) {
	c := testConfig()
	c.MaxCapacity = 3
	c.MinCapacity = 1
	store, err := New(c, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		store.Insert(transition(i, -0.3, false))
	}

	batch, err := store.SampleBatch(3)
	if err != nil {
		t.Fatal(err)
	}
	for _, tr := range batch {
		if tr.Action == 0 {
			t.Error("oldest transition survived a routine eviction")
		}
	}
}

func TestSignificantInsertAlwaysRetained(t *testing.T) {
	c := testConfig()
	c.MaxCapacity = 5
	c.MinCapacity = 1
	store, err := New(c, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		store.Insert(transition(i, -0.3, false))
	}
	store.Insert(transition(99, 75, false))

	batch, err := store.SampleBatch(5)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, tr := range batch {
		if tr.Action == 99 {
			found = true
		}
	}
	if !found {
		t.Error("newly inserted flag transition missing from full sample")
	}
}

func TestSampleBatchErrors(t *testing.T) {
	store, err := New(testConfig(), 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.SampleBatch(8); !IsEmptyStore(err) {
		t.Errorf("empty store: got %v, want empty store error", err)
	}

	store.Insert(transition(0, -0.3, false))
	if _, err := store.SampleBatch(8); !IsInsufficientSamples(err) {
		t.Errorf("below minimum: got %v, want insufficient samples", err)
	}
}

func TestSampleBatchHasNoDuplicates(t *testing.T) {
	store, err := New(testConfig(), 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		reward := float64(i%5) - 2
		switch i % 10 {
		case 0:
			reward = 75
		case 1:
			reward = -50
		}
		store.Insert(transition(i, reward, false))
	}

	for trial := 0; trial < 20; trial++ {
		batch, err := store.SampleBatch(16)
		if err != nil {
			t.Fatal(err)
		}
		if len(batch) != 16 {
			t.Fatalf("batch length = %d, want 16", len(batch))
		}
		seen := make(map[int]bool, len(batch))
		for _, tr := range batch {
			if seen[tr.Action] {
				t.Fatalf("transition %d sampled twice in one batch",
					tr.Action)
			}
			seen[tr.Action] = true
		}
	}
}

func TestSampleBatchPrefersRecents(t *testing.T) {
	store, err := New(testConfig(), 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		store.Insert(transition(i, -0.3, false))
	}

	batch, err := store.SampleBatch(16)
	if err != nil {
		t.Fatal(err)
	}

	// With 40 stored and a batch of 16 the first min(16/4, 40/10) = 4
	// slots hold the newest transitions.
	want := map[int]bool{39: true, 38: true, 37: true, 36: true}
	for i := 0; i < 4; i++ {
		if !want[batch[i].Action] {
			t.Errorf("slot %d holds transition %d, want one of the 4 "+
				"newest", i, batch[i].Action)
		}
	}
}

func TestSampleBatchSmallerThanStore(t *testing.T) {
	c := testConfig()
	c.MinCapacity = 5
	store, err := New(c, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		store.Insert(transition(i, -0.3, false))
	}

	batch, err := store.SampleBatch(16)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 6 {
		t.Errorf("batch length = %d, want every stored transition",
			len(batch))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "replay.bin")

	store, err := New(testConfig(), 5)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		store.Insert(transition(i, float64(i), i%4 == 0))
	}
	if err := store.Save(filename); err != nil {
		t.Fatal(err)
	}

	restored, err := New(testConfig(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Load(filename); err != nil {
		t.Fatal(err)
	}

	if restored.Len() != store.Len() {
		t.Fatalf("restored %d transitions, want %d", restored.Len(),
			store.Len())
	}
	for i := range store.transitions {
		a, b := store.transitions[i], restored.transitions[i]
		if a.Action != b.Action || a.Reward != b.Reward || a.Done != b.Done {
			t.Errorf("transition %d changed across reload: %+v vs %+v",
				i, a, b)
		}
		if !mat.EqualApprox(a.State, b.State, 0) {
			t.Errorf("transition %d state changed across reload", i)
		}
	}
}

func TestLoadTruncatesToCapacity(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "replay.bin")

	big, err := New(testConfig(), 5)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		big.Insert(transition(i, -0.3, false))
	}
	if err := big.Save(filename); err != nil {
		t.Fatal(err)
	}

	c := testConfig()
	c.MaxCapacity = 10
	small, err := New(c, 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := small.Load(filename); err != nil {
		t.Fatal(err)
	}

	if small.Len() != 10 {
		t.Fatalf("loaded %d transitions, want capacity 10", small.Len())
	}
	// Oldest-first truncation keeps the newest entries.
	if got := small.transitions[0].Action; got != 30 {
		t.Errorf("oldest surviving transition is %d, want 30", got)
	}
}
