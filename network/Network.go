// Package network implements the function approximator: a single
// hidden layer feed-forward network with ReLU activations and a linear
// output layer, trained online by backpropagation with momentum.
//
// The implementation is deliberately minimal and self-contained: plain
// gonum matrices and hand-written gradients, no autodiff. Two instances
// of the same architecture cooperate during learning — an online
// network trained by gradient descent and a target network updated only
// by blending from the online copy.
package network

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/Oz1231/TobogganGame/utils/floatutils"
)

const (
	// DefaultMomentum is the momentum coefficient applied to every
	// weight and bias update.
	DefaultMomentum = 0.9

	// hiddenBiasScale bounds the random initialization of hidden
	// biases. Output biases start at zero.
	hiddenBiasScale = 0.01
)

// inputBounds clamps observations before the input→hidden transform so
// unbounded upstream values cannot saturate the hidden layer.
var inputBounds = r1.Interval{Min: -10, Max: 10}

// errorBounds clips the output-layer error before it is propagated,
// bounding the gradient magnitude of any single update.
var errorBounds = r1.Interval{Min: -2, Max: 2}

// Network is a single hidden layer MLP mapping observations to one
// value estimate per action.
type Network struct {
	inputs  int
	hidden  int
	outputs int

	learningRate float64
	momentum     float64

	// weightsHidden is hidden×inputs, weightsOut is outputs×hidden.
	// The momentum accumulators mirror their shapes.
	weightsHidden  *mat.Dense
	biasHidden     *mat.VecDense
	weightsOut     *mat.Dense
	biasOut        *mat.VecDense
	momentumHidden *mat.Dense
	momentumBiasH  *mat.VecDense
	momentumOut    *mat.Dense
	momentumBiasO  *mat.VecDense
}

// New creates a network with He-style scaled uniform random weights
// (scale sqrt(2/fanIn)), small random hidden biases, and zero output
// biases.
func New(inputs, hidden, outputs int, learningRate float64,
	seed uint64) (*Network, error) {
	if inputs < 1 || hidden < 1 || outputs < 1 {
		return nil, errors.Errorf("new: invalid architecture %v-%v-%v",
			inputs, hidden, outputs)
	}
	if learningRate <= 0 {
		return nil, errors.Errorf("new: learning rate must be > 0, "+
			"got %v", learningRate)
	}

	rng := rand.New(rand.NewSource(seed))

	n := &Network{
		inputs:       inputs,
		hidden:       hidden,
		outputs:      outputs,
		learningRate: learningRate,
		momentum:     DefaultMomentum,
	}
	n.allocate()

	heInit(n.weightsHidden, rng)
	heInit(n.weightsOut, rng)
	for i := 0; i < hidden; i++ {
		n.biasHidden.SetVec(i, hiddenBiasScale*(2*rng.Float64()-1))
	}

	return n, nil
}

// allocate creates zeroed parameter and momentum storage matching the
// network's architecture sizes.
func (n *Network) allocate() {
	n.weightsHidden = mat.NewDense(n.hidden, n.inputs, nil)
	n.biasHidden = mat.NewVecDense(n.hidden, nil)
	n.weightsOut = mat.NewDense(n.outputs, n.hidden, nil)
	n.biasOut = mat.NewVecDense(n.outputs, nil)
	n.momentumHidden = mat.NewDense(n.hidden, n.inputs, nil)
	n.momentumBiasH = mat.NewVecDense(n.hidden, nil)
	n.momentumOut = mat.NewDense(n.outputs, n.hidden, nil)
	n.momentumBiasO = mat.NewVecDense(n.outputs, nil)
}

// heInit fills w with uniform values in [-s, s] where s = sqrt(2/fanIn)
// and fanIn is the number of columns of w.
func heInit(w *mat.Dense, rng *rand.Rand) {
	_, fanIn := w.Dims()
	scale := math.Sqrt(2 / float64(fanIn))
	raw := w.RawMatrix().Data
	for i := range raw {
		raw[i] = scale * (2*rng.Float64() - 1)
	}
}

// Inputs returns the input layer width.
func (n *Network) Inputs() int { return n.inputs }

// Hidden returns the hidden layer width.
func (n *Network) Hidden() int { return n.hidden }

// Outputs returns the output layer width.
func (n *Network) Outputs() int { return n.outputs }

// LearningRate returns the current learning rate.
func (n *Network) LearningRate() float64 { return n.learningRate }

// SetLearningRate replaces the learning rate. Values <= 0 are ignored.
func (n *Network) SetLearningRate(lr float64) {
	if lr > 0 {
		n.learningRate = lr
	}
}

// Forward runs a forward pass and returns one value estimate per
// action. The input is clamped to inputBounds before the affine
// transform. The returned slice is freshly allocated.
func (n *Network) Forward(obs mat.Vector) ([]float64, error) {
	if obs.Len() != n.inputs {
		return nil, errors.Errorf("forward: observation length %v, "+
			"want %v", obs.Len(), n.inputs)
	}
	_, _, out := n.forward(obs)
	return out, nil
}

// forward is the full forward pass, returning the clamped input, the
// hidden pre-activations, and the output values. Train reuses the
// intermediate values for backpropagation.
func (n *Network) forward(obs mat.Vector) (x, zHidden, out []float64) {
	x = make([]float64, n.inputs)
	for i := 0; i < n.inputs; i++ {
		x[i] = floatutils.ClipInterval(obs.AtVec(i), inputBounds)
	}

	zHidden = make([]float64, n.hidden)
	for j := 0; j < n.hidden; j++ {
		sum := n.biasHidden.AtVec(j)
		row := n.weightsHidden.RawRowView(j)
		for i, xi := range x {
			sum += row[i] * xi
		}
		zHidden[j] = sum
	}

	out = make([]float64, n.outputs)
	for k := 0; k < n.outputs; k++ {
		sum := n.biasOut.AtVec(k)
		row := n.weightsOut.RawRowView(k)
		for j, z := range zHidden {
			sum += row[j] * relu(z)
		}
		out[k] = sum
	}
	return x, zHidden, out
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Train performs one backpropagation step toward the given target
// vector, using per-unit squared error. The output-layer error is
// clipped to errorBounds before propagating, and every update passes
// through the momentum accumulators.
func (n *Network) Train(obs mat.Vector, targets []float64) error {
	if obs.Len() != n.inputs {
		return errors.Errorf("train: observation length %v, want %v",
			obs.Len(), n.inputs)
	}
	if len(targets) != n.outputs {
		return errors.Errorf("train: target length %v, want %v",
			len(targets), n.outputs)
	}

	x, zHidden, out := n.forward(obs)

	errOut := make([]float64, n.outputs)
	for k := range errOut {
		errOut[k] = floatutils.ClipInterval(targets[k]-out[k], errorBounds)
	}

	// Hidden error uses the pre-update output weights.
	errHidden := make([]float64, n.hidden)
	for j := 0; j < n.hidden; j++ {
		if zHidden[j] <= 0 {
			continue
		}
		var sum float64
		for k := 0; k < n.outputs; k++ {
			sum += errOut[k] * n.weightsOut.At(k, j)
		}
		errHidden[j] = sum
	}

	// Output layer update.
	for k := 0; k < n.outputs; k++ {
		row := n.weightsOut.RawRowView(k)
		mRow := n.momentumOut.RawRowView(k)
		for j := 0; j < n.hidden; j++ {
			mRow[j] = n.momentum*mRow[j] +
				n.learningRate*errOut[k]*relu(zHidden[j])
			row[j] += mRow[j]
		}
		m := n.momentum*n.momentumBiasO.AtVec(k) + n.learningRate*errOut[k]
		n.momentumBiasO.SetVec(k, m)
		n.biasOut.SetVec(k, n.biasOut.AtVec(k)+m)
	}

	// Hidden layer update.
	for j := 0; j < n.hidden; j++ {
		if errHidden[j] == 0 {
			continue
		}
		row := n.weightsHidden.RawRowView(j)
		mRow := n.momentumHidden.RawRowView(j)
		for i := 0; i < n.inputs; i++ {
			mRow[i] = n.momentum*mRow[i] +
				n.learningRate*errHidden[j]*x[i]
			row[i] += mRow[i]
		}
		m := n.momentum*n.momentumBiasH.AtVec(j) +
			n.learningRate*errHidden[j]
		n.momentumBiasH.SetVec(j, m)
		n.biasHidden.SetVec(j, n.biasHidden.AtVec(j)+m)
	}

	return nil
}

// TrainSingleAction performs a sparse Q-learning update: the target
// vector is the network's own current output with only the given
// action's entry replaced, so the estimates of unselected actions stay
// untouched.
func (n *Network) TrainSingleAction(obs mat.Vector, action int,
	targetQ float64) error {
	if action < 0 || action >= n.outputs {
		return errors.Errorf("trainSingleAction: action %v out of "+
			"range [0, %v)", action, n.outputs)
	}

	targets, err := n.Forward(obs)
	if err != nil {
		return errors.Wrap(err, "trainSingleAction")
	}
	targets[action] = targetQ

	return n.Train(obs, targets)
}

// Clone returns a deep copy of the network including weights, biases,
// momentum state, and learning rate.
func (n *Network) Clone() *Network {
	c := &Network{
		inputs:       n.inputs,
		hidden:       n.hidden,
		outputs:      n.outputs,
		learningRate: n.learningRate,
		momentum:     n.momentum,
	}
	c.weightsHidden = mat.DenseCopyOf(n.weightsHidden)
	c.biasHidden = mat.VecDenseCopyOf(n.biasHidden)
	c.weightsOut = mat.DenseCopyOf(n.weightsOut)
	c.biasOut = mat.VecDenseCopyOf(n.biasOut)
	c.momentumHidden = mat.DenseCopyOf(n.momentumHidden)
	c.momentumBiasH = mat.VecDenseCopyOf(n.momentumBiasH)
	c.momentumOut = mat.DenseCopyOf(n.momentumOut)
	c.momentumBiasO = mat.VecDenseCopyOf(n.momentumBiasO)
	return c
}

// SoftUpdate blends the receiver's parameters toward the source by
// tau: param = tau*source + (1-tau)*param. Both networks must share an
// architecture.
func (n *Network) SoftUpdate(source *Network, tau float64) error {
	if n.inputs != source.inputs || n.hidden != source.hidden ||
		n.outputs != source.outputs {
		return errors.Errorf("softUpdate: architecture mismatch "+
			"%v-%v-%v vs %v-%v-%v", n.inputs, n.hidden, n.outputs,
			source.inputs, source.hidden, source.outputs)
	}

	blendDense(n.weightsHidden, source.weightsHidden, tau)
	blendVec(n.biasHidden, source.biasHidden, tau)
	blendDense(n.weightsOut, source.weightsOut, tau)
	blendVec(n.biasOut, source.biasOut, tau)
	return nil
}

// HardUpdate replaces the receiver's full state with a copy of the
// source's, resetting any drift accumulated between the two.
func (n *Network) HardUpdate(source *Network) {
	*n = *source.Clone()
}

func blendDense(dst, src *mat.Dense, tau float64) {
	d := dst.RawMatrix().Data
	s := src.RawMatrix().Data
	for i := range d {
		d[i] = tau*s[i] + (1-tau)*d[i]
	}
}

func blendVec(dst, src *mat.VecDense, tau float64) {
	for i := 0; i < dst.Len(); i++ {
		dst.SetVec(i, tau*src.AtVec(i)+(1-tau)*dst.AtVec(i))
	}
}

// ParamDistance returns the L2 distance between the weights and biases
// of two same-architecture networks. Used to monitor target-network
// drift.
func (n *Network) ParamDistance(o *Network) float64 {
	var sum float64
	sum += sqDiff(n.weightsHidden.RawMatrix().Data, o.weightsHidden.RawMatrix().Data)
	sum += sqDiff(n.weightsOut.RawMatrix().Data, o.weightsOut.RawMatrix().Data)
	sum += sqDiff(n.biasHidden.RawVector().Data, o.biasHidden.RawVector().Data)
	sum += sqDiff(n.biasOut.RawVector().Data, o.biasOut.RawVector().Data)
	return math.Sqrt(sum)
}

func sqDiff(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
