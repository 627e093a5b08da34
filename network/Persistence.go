package network

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrIncompatible reports that a saved network cannot serve the
// current configuration because its input or output width differs.
var ErrIncompatible = errors.New("saved network structure incompatible")

// IsIncompatible returns whether an error reports a structural
// mismatch between a saved network and the current configuration.
func IsIncompatible(err error) bool {
	return errors.Is(err, ErrIncompatible)
}

// snapshot is the on-disk form of a network. Structure sizes come
// first so a load can reject an incompatible file before touching the
// parameter data. Momentum buffers and the learning rate are auxiliary:
// files missing them still load, falling back to defaults.
type snapshot struct {
	Inputs  int
	Hidden  int
	Outputs int

	LearningRate float64
	Momentum     float64

	WeightsHidden []float64
	BiasHidden    []float64
	WeightsOut    []float64
	BiasOut       []float64

	MomentumHidden []float64
	MomentumBiasH  []float64
	MomentumOut    []float64
	MomentumBiasO  []float64
}

// Save writes the network to filename. The write goes to a temporary
// file in the same directory which is then renamed over the target, so
// a crash mid-write leaves any previous save intact.
func (n *Network) Save(filename string) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".weights-*")
	if err != nil {
		return errors.Wrap(err, "save: could not create temp file")
	}
	defer os.Remove(tmp.Name())

	snap := snapshot{
		Inputs:         n.inputs,
		Hidden:         n.hidden,
		Outputs:        n.outputs,
		LearningRate:   n.learningRate,
		Momentum:       n.momentum,
		WeightsHidden:  n.weightsHidden.RawMatrix().Data,
		BiasHidden:     n.biasHidden.RawVector().Data,
		WeightsOut:     n.weightsOut.RawMatrix().Data,
		BiasOut:        n.biasOut.RawVector().Data,
		MomentumHidden: n.momentumHidden.RawMatrix().Data,
		MomentumBiasH:  n.momentumBiasH.RawVector().Data,
		MomentumOut:    n.momentumOut.RawMatrix().Data,
		MomentumBiasO:  n.momentumBiasO.RawVector().Data,
	}

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return errors.Wrap(err, "save: could not encode network")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "save: could not close temp file")
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return errors.Wrap(err, "save: could not replace weights file")
	}
	return nil
}

// Load reads a network from filename. The file's input and output
// widths must match the requested configuration or ErrIncompatible is
// returned; a differing hidden width is tolerated by adopting the
// saved width. A missing learning rate falls back to defaultLR and
// missing momentum buffers to zeroed accumulators.
func Load(filename string, inputs, outputs int,
	defaultLR float64) (*Network, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "load: could not open weights file")
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, errors.Wrap(err, "load: could not decode network")
	}

	if snap.Inputs != inputs || snap.Outputs != outputs {
		return nil, errors.Wrapf(ErrIncompatible,
			"load: saved %v-%v-%v, want inputs %v outputs %v",
			snap.Inputs, snap.Hidden, snap.Outputs, inputs, outputs)
	}
	if snap.Hidden < 1 {
		return nil, errors.Wrapf(ErrIncompatible,
			"load: saved hidden width %v", snap.Hidden)
	}

	n := &Network{
		inputs:       snap.Inputs,
		hidden:       snap.Hidden,
		outputs:      snap.Outputs,
		learningRate: snap.LearningRate,
		momentum:     snap.Momentum,
	}
	if n.learningRate <= 0 {
		n.learningRate = defaultLR
	}
	if n.momentum <= 0 {
		n.momentum = DefaultMomentum
	}
	n.allocate()

	if err := fillDense(n.weightsHidden, snap.WeightsHidden); err != nil {
		return nil, errors.Wrap(err, "load: hidden weights")
	}
	if err := fillDense(n.weightsOut, snap.WeightsOut); err != nil {
		return nil, errors.Wrap(err, "load: output weights")
	}
	if err := fillVec(n.biasHidden, snap.BiasHidden); err != nil {
		return nil, errors.Wrap(err, "load: hidden biases")
	}
	if err := fillVec(n.biasOut, snap.BiasOut); err != nil {
		return nil, errors.Wrap(err, "load: output biases")
	}

	// Momentum buffers are optional; absent or mis-sized buffers stay
	// zeroed rather than failing the load.
	fillDense(n.momentumHidden, snap.MomentumHidden)
	fillDense(n.momentumOut, snap.MomentumOut)
	fillVec(n.momentumBiasH, snap.MomentumBiasH)
	fillVec(n.momentumBiasO, snap.MomentumBiasO)

	return n, nil
}

func fillDense(dst *mat.Dense, data []float64) error {
	raw := dst.RawMatrix().Data
	if len(data) != len(raw) {
		return errors.Wrapf(ErrIncompatible, "have %v values, want %v",
			len(data), len(raw))
	}
	copy(raw, data)
	return nil
}

func fillVec(dst *mat.VecDense, data []float64) error {
	raw := dst.RawVector().Data
	if len(data) != len(raw) {
		return errors.Wrapf(ErrIncompatible, "have %v values, want %v",
			len(data), len(raw))
	}
	copy(raw, data)
	return nil
}
