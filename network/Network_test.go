package network

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func testInput(n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, float64(i%4)*0.25)
	}
	return v
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New(0, 8, 4, 0.01, 1); err == nil {
		t.Error("expected error for zero input width")
	}
	if _, err := New(8, 8, 4, 0, 1); err == nil {
		t.Error("expected error for zero learning rate")
	}
	if _, err := New(8, 8, 4, -1, 1); err == nil {
		t.Error("expected error for negative learning rate")
	}
}

func TestForwardShape(t *testing.T) {
	n, err := New(32, 16, 8, 0.01, 7)
	if err != nil {
		t.Fatal(err)
	}

	out, err := n.Forward(testInput(32))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 8 {
		t.Fatalf("output length = %d, want 8", len(out))
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("output[%d] = %v, want finite", i, v)
		}
	}

	if _, err := n.Forward(testInput(16)); err == nil {
		t.Error("expected error for mismatched observation length")
	}
}

func TestTrainReducesError(t *testing.T) {
	n, err := New(8, 12, 4, 0.01, 42)
	if err != nil {
		t.Fatal(err)
	}
	obs := testInput(8)
	targets := []float64{1, -1, 0.5, 0}

	sqError := func() float64 {
		out, err := n.Forward(obs)
		if err != nil {
			t.Fatal(err)
		}
		var sum float64
		for k, v := range out {
			d := targets[k] - v
			sum += d * d
		}
		return sum
	}

	before := sqError()
	for i := 0; i < 500; i++ {
		if err := n.Train(obs, targets); err != nil {
			t.Fatal(err)
		}
	}
	after := sqError()

	if after >= before {
		t.Errorf("squared error %v did not decrease from %v", after,
			before)
	}
	if after > 0.05 {
		t.Errorf("squared error after training = %v, want near 0", after)
	}
}

func TestTrainSingleActionLeavesOthersUntouched(t *testing.T) {
	n, err := New(8, 12, 4, 0.001, 3)
	if err != nil {
		t.Fatal(err)
	}
	obs := testInput(8)

	before, err := n.Forward(obs)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.TrainSingleAction(obs, 2, before[2]+1); err != nil {
		t.Fatal(err)
	}
	after, err := n.Forward(obs)
	if err != nil {
		t.Fatal(err)
	}

	// With a single small step the trained action must move toward its
	// target while the remaining estimates move far less.
	moved := after[2] - before[2]
	if moved <= 0 {
		t.Errorf("trained action moved by %v, want > 0", moved)
	}
	for k := range after {
		if k == 2 {
			continue
		}
		if drift := math.Abs(after[k] - before[k]); drift >= moved {
			t.Errorf("action %d drifted by %v, trained action moved %v",
				k, drift, moved)
		}
	}

	if err := n.TrainSingleAction(obs, 7, 0); err == nil {
		t.Error("expected error for out of range action")
	}
}

func TestSoftUpdateConverges(t *testing.T) {
	online, err := New(8, 12, 4, 0.01, 11)
	if err != nil {
		t.Fatal(err)
	}
	target, err := New(8, 12, 4, 0.01, 99)
	if err != nil {
		t.Fatal(err)
	}

	prev := target.ParamDistance(online)
	if prev == 0 {
		t.Fatal("independently seeded networks should differ")
	}
	for i := 0; i < 50; i++ {
		if err := target.SoftUpdate(online, 0.05); err != nil {
			t.Fatal(err)
		}
		d := target.ParamDistance(online)
		if d >= prev {
			t.Fatalf("distance %v did not shrink from %v at step %d", d,
				prev, i)
		}
		prev = d
	}
}

func TestSoftUpdateRejectsMismatch(t *testing.T) {
	a, _ := New(8, 12, 4, 0.01, 1)
	b, _ := New(8, 16, 4, 0.01, 1)
	if err := a.SoftUpdate(b, 0.05); err == nil {
		t.Error("expected architecture mismatch error")
	}
}

func TestHardUpdateCopiesEverything(t *testing.T) {
	online, err := New(8, 12, 4, 0.01, 11)
	if err != nil {
		t.Fatal(err)
	}
	target, err := New(8, 12, 4, 0.01, 99)
	if err != nil {
		t.Fatal(err)
	}

	target.HardUpdate(online)
	if d := target.ParamDistance(online); d != 0 {
		t.Fatalf("distance after hard update = %v, want 0", d)
	}

	// The copy must be deep: training the online network must not move
	// the target.
	obs := testInput(8)
	want, err := target.Forward(obs)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if err := online.Train(obs, []float64{5, 5, 5, 5}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := target.Forward(obs)
	if err != nil {
		t.Fatal(err)
	}
	for k := range got {
		if got[k] != want[k] {
			t.Fatalf("target output changed after training the online "+
				"network: %v != %v", got[k], want[k])
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "weights.bin")

	n, err := New(32, 24, 8, 0.005, 17)
	if err != nil {
		t.Fatal(err)
	}
	obs := testInput(32)
	for i := 0; i < 10; i++ {
		if err := n.Train(obs, make([]float64, 8)); err != nil {
			t.Fatal(err)
		}
	}

	if err := n.Save(filename); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(filename, 32, 8, 0.01)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Hidden() != 24 {
		t.Errorf("loaded hidden width = %d, want 24", loaded.Hidden())
	}
	if loaded.LearningRate() != 0.005 {
		t.Errorf("loaded learning rate = %v, want 0.005",
			loaded.LearningRate())
	}

	want, err := n.Forward(obs)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loaded.Forward(obs)
	if err != nil {
		t.Fatal(err)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Errorf("output[%d] = %v after reload, want %v", k, got[k],
				want[k])
		}
	}
}

func TestLoadRejectsIncompatibleStructure(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "weights.bin")

	n, err := New(32, 24, 8, 0.01, 17)
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Save(filename); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(filename, 16, 8, 0.01); !IsIncompatible(err) {
		t.Errorf("input mismatch: got %v, want incompatible", err)
	}
	if _, err := Load(filename, 32, 4, 0.01); !IsIncompatible(err) {
		t.Errorf("output mismatch: got %v, want incompatible", err)
	}

	// A different hidden width is tolerated by adopting the saved one.
	loaded, err := Load(filename, 32, 8, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Hidden() != 24 {
		t.Errorf("hidden width = %d, want saved 24", loaded.Hidden())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.bin"), 32, 8, 0.01)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if IsIncompatible(err) {
		t.Error("missing file must not report incompatibility")
	}
	if !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}
