package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Dense is a fully-connected layer with linear activation, applied row by row.
type Dense struct {
	Units int

	inputDim int
	kernel   *Param // Units x inputDim
	bias     *Param // Units

	in [][]float64
}

// NewDense creates a Dense layer with Glorot-uniform weights and zero bias.
func NewDense(units, inputDim int, rng *rand.Rand) *Dense {
	d := &Dense{
		Units:    units,
		inputDim: inputDim,
		kernel:   newParam("kernel", units*inputDim),
		bias:     newParam("bias", units),
	}
	glorotUniform(rng, d.kernel.Value, inputDim, units)
	return d
}

func (d *Dense) Name() string    { return fmt.Sprintf("dense(%d)", d.Units) }
func (d *Dense) InputDim() int   { return d.inputDim }
func (d *Dense) OutputDim() int  { return d.Units }
func (d *Dense) Params() []*Param { return []*Param{d.kernel, d.bias} }

func (d *Dense) row(u int) []float64 {
	return d.kernel.Value[u*d.inputDim : (u+1)*d.inputDim]
}

func (d *Dense) Forward(in [][]float64) [][]float64 {
	d.in = in
	out := make([][]float64, len(in))
	for r, x := range in {
		y := make([]float64, d.Units)
		for u := range y {
			y[u] = floats.Dot(d.row(u), x) + d.bias.Value[u]
		}
		out[r] = y
	}
	return out
}

func (d *Dense) Backward(dOut [][]float64) [][]float64 {
	dIn := make([][]float64, len(d.in))
	for r, x := range d.in {
		dx := make([]float64, d.inputDim)
		for u := 0; u < d.Units; u++ {
			g := dOut[r][u]
			floats.AddScaled(d.kernel.Grad[u*d.inputDim:(u+1)*d.inputDim], g, x)
			d.bias.Grad[u] += g
			floats.AddScaled(dx, g, d.row(u))
		}
		dIn[r] = dx
	}
	return dIn
}
