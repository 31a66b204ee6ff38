// Package nn implements the small recurrent regressor used for next-price
// prediction: LSTM(50, sequences) -> LSTM(50) -> Dense(1), trained on mean
// squared error with Adam.
//
// Layers process one sample at a time. Forward caches what Backward needs, so
// a Backward call always refers to the most recent Forward. Gradients
// accumulate in each Param until the optimizer consumes them.
package nn

import (
	"math"
	"math/rand/v2"
)

// Param is a trainable tensor flattened row-major, with its gradient.
type Param struct {
	Name  string
	Value []float64
	Grad  []float64
}

func newParam(name string, size int) *Param {
	return &Param{Name: name, Value: make([]float64, size), Grad: make([]float64, size)}
}

// Layer maps a sequence of row vectors to another sequence of row vectors.
type Layer interface {
	Name() string
	InputDim() int
	OutputDim() int
	Forward(in [][]float64) [][]float64
	Backward(dOut [][]float64) [][]float64
	Params() []*Param
}

// glorotUniform fills p with U(-l, l), l = sqrt(6 / (fanIn + fanOut)).
func glorotUniform(rng *rand.Rand, p []float64, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p {
		p[i] = (rng.Float64()*2 - 1) * limit
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func paramCount(l Layer) int {
	n := 0
	for _, p := range l.Params() {
		n += len(p.Value)
	}
	return n
}
