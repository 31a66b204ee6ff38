package nn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrShapeMismatch is returned when input does not match (samples, lookBack, 1).
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDiverged is returned when the training loss stops being finite.
	ErrDiverged = errors.New("training diverged")
)

const (
	DefaultUnits        = 50
	DefaultBatchSize    = 32
	DefaultLearningRate = 0.001
)

// Sequential stacks layers and trains them end to end on a scalar target.
type Sequential struct {
	layers   []Layer
	lookBack int
	opt      *Adam
	rng      *rand.Rand
	logger   *zap.Logger
}

type options struct {
	seed   uint64
	units  int
	lr     float64
	logger *zap.Logger
}

// Option customizes Build.
type Option func(*options)

// WithSeed fixes weight initialization and shuffling.
func WithSeed(seed uint64) Option { return func(o *options) { o.seed = seed } }

// WithUnits sets the hidden size of both recurrent layers.
func WithUnits(units int) Option { return func(o *options) { o.units = units } }

// WithLearningRate overrides the Adam learning rate.
func WithLearningRate(lr float64) Option { return func(o *options) { o.lr = lr } }

// WithLogger reports per-epoch progress.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// Build creates the next-price regressor for windows of lookBack prices:
// LSTM(units, sequences) -> LSTM(units) -> Dense(1).
func Build(lookBack int, opts ...Option) (*Sequential, error) {
	o := options{seed: 42, units: DefaultUnits, lr: DefaultLearningRate}
	for _, fn := range opts {
		fn(&o)
	}
	if lookBack <= 0 {
		return nil, fmt.Errorf("%w: look-back must be positive, got %d", ErrShapeMismatch, lookBack)
	}
	if o.units <= 0 {
		return nil, fmt.Errorf("units must be positive, got %d", o.units)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))
	return &Sequential{
		layers: []Layer{
			NewLSTM(o.units, 1, true, rng),
			NewLSTM(o.units, o.units, false, rng),
			NewDense(1, o.units, rng),
		},
		lookBack: lookBack,
		opt:      NewAdam(o.lr),
		rng:      rng,
		logger:   o.logger,
	}, nil
}

// Layers returns the model layers in order.
func (m *Sequential) Layers() []Layer { return m.layers }

// InputShape returns (batch, lookBack, features). -1 marks the unbounded batch dimension.
func (m *Sequential) InputShape() []int { return []int{-1, m.lookBack, 1} }

// ParamCount returns the number of trainable scalars.
func (m *Sequential) ParamCount() int {
	n := 0
	for _, l := range m.layers {
		n += paramCount(l)
	}
	return n
}

// Summary lists layers and parameter counts, one per line.
func (m *Sequential) Summary() string {
	var b strings.Builder
	for _, l := range m.layers {
		fmt.Fprintf(&b, "%-20s %d -> %d  params=%d\n", l.Name(), l.InputDim(), l.OutputDim(), paramCount(l))
	}
	fmt.Fprintf(&b, "total params=%d", m.ParamCount())
	return b.String()
}

func (m *Sequential) params() []*Param {
	var ps []*Param
	for _, l := range m.layers {
		ps = append(ps, l.Params()...)
	}
	return ps
}

func (m *Sequential) checkInput(x [][][]float64) error {
	for i, sample := range x {
		if len(sample) != m.lookBack {
			return fmt.Errorf("%w: sample %d has %d steps, model expects %d", ErrShapeMismatch, i, len(sample), m.lookBack)
		}
		for t, step := range sample {
			if len(step) != 1 {
				return fmt.Errorf("%w: sample %d step %d has %d features, model expects 1", ErrShapeMismatch, i, t, len(step))
			}
		}
	}
	return nil
}

func (m *Sequential) forward(sample [][]float64) float64 {
	out := sample
	for _, l := range m.layers {
		out = l.Forward(out)
	}
	return out[len(out)-1][0]
}

func (m *Sequential) backward(grad float64) {
	d := [][]float64{{grad}}
	for i := len(m.layers) - 1; i >= 0; i-- {
		d = m.layers[i].Backward(d)
	}
}

// Fit trains on mean squared error for exactly epochs passes, shuffling every
// epoch, and returns the mean loss of each epoch. The context is checked
// between mini-batches.
func (m *Sequential) Fit(ctx context.Context, x [][][]float64, y []float64, epochs, batchSize int) ([]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: no training samples", ErrShapeMismatch)
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d samples but %d targets", ErrShapeMismatch, len(x), len(y))
	}
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	if epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", epochs)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	params := m.params()
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	losses := make([]float64, 0, epochs)

	for epoch := 0; epoch < epochs; epoch++ {
		m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var total float64
		for start := 0; start < len(order); start += batchSize {
			if err := ctx.Err(); err != nil {
				return losses, err
			}
			end := min(start+batchSize, len(order))
			n := float64(end - start)
			for _, idx := range order[start:end] {
				diff := m.forward(x[idx]) - y[idx]
				total += diff * diff
				m.backward(2 * diff / n)
			}
			m.opt.Step(params)
		}

		loss := total / float64(len(order))
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return losses, fmt.Errorf("%w at epoch %d", ErrDiverged, epoch+1)
		}
		losses = append(losses, loss)
		m.logger.Info("epoch complete",
			zap.Int("epoch", epoch+1),
			zap.Int("epochs", epochs),
			zap.Float64("loss", loss))
	}
	return losses, nil
}

// Predict returns one normalized prediction per sample, in input order.
func (m *Sequential) Predict(x [][][]float64) ([]float64, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, sample := range x {
		out[i] = m.forward(sample)
	}
	return out, nil
}
