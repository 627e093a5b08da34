package expreplay

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/Oz1231/TobogganGame/timestep"
)

// record is the on-disk form of one transition. Observations are
// stored as raw float64 slices so the file does not depend on gonum's
// internal representation.
type record struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
	Done      bool
}

// Save writes the full transition list to filename using
// write-then-replace semantics.
func (s *Store) Save(filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".replay-*")
	if err != nil {
		return errors.Wrap(err, "save: could not create temp file")
	}
	defer os.Remove(tmp.Name())

	records := make([]record, len(s.transitions))
	for i, t := range s.transitions {
		records[i] = record{
			State:     rawVector(t.State),
			Action:    t.Action,
			Reward:    t.Reward,
			NextState: rawVector(t.NextState),
			Done:      t.Done,
		}
	}

	if err := gob.NewEncoder(tmp).Encode(records); err != nil {
		tmp.Close()
		return errors.Wrap(err, "save: could not encode transitions")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "save: could not close temp file")
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrap(err, "save: could not replace replay file")
	}
	return nil
}

// Load replaces the store's contents with the transition list read
// from filename. Transitions beyond the store's capacity are dropped
// oldest-first.
func (s *Store) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "load: could not open replay file")
	}
	defer file.Close()

	var records []record
	if err := gob.NewDecoder(file).Decode(&records); err != nil {
		return errors.Wrap(err, "load: could not decode transitions")
	}

	if len(records) > s.maxCapacity {
		records = records[len(records)-s.maxCapacity:]
	}

	s.transitions = s.transitions[:0]
	for _, r := range records {
		s.transitions = append(s.transitions, timestep.Transition{
			State:     mat.NewVecDense(len(r.State), r.State),
			Action:    r.Action,
			Reward:    r.Reward,
			NextState: mat.NewVecDense(len(r.NextState), r.NextState),
			Done:      r.Done,
		})
	}
	return nil
}

func rawVector(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
