package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// LSTM is a long short-term memory layer. Gate rows are ordered input, forget,
// cell, output, each Units wide.
type LSTM struct {
	Units           int
	ReturnSequences bool

	inputDim  int
	kernel    *Param // 4*Units x inputDim
	recurrent *Param // 4*Units x Units
	bias      *Param // 4*Units

	steps []lstmStep
}

type lstmStep struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	tanhC           []float64
}

// NewLSTM creates an LSTM with Glorot-uniform weights and a forget-gate bias of 1.
func NewLSTM(units, inputDim int, returnSequences bool, rng *rand.Rand) *LSTM {
	l := &LSTM{
		Units:           units,
		ReturnSequences: returnSequences,
		inputDim:        inputDim,
		kernel:          newParam("kernel", 4*units*inputDim),
		recurrent:       newParam("recurrent_kernel", 4*units*units),
		bias:            newParam("bias", 4*units),
	}
	glorotUniform(rng, l.kernel.Value, inputDim, 4*units)
	glorotUniform(rng, l.recurrent.Value, units, 4*units)
	for j := units; j < 2*units; j++ {
		l.bias.Value[j] = 1
	}
	return l
}

func (l *LSTM) Name() string {
	if l.ReturnSequences {
		return fmt.Sprintf("lstm(%d, sequences)", l.Units)
	}
	return fmt.Sprintf("lstm(%d)", l.Units)
}

func (l *LSTM) InputDim() int  { return l.inputDim }
func (l *LSTM) OutputDim() int { return l.Units }

func (l *LSTM) Params() []*Param { return []*Param{l.kernel, l.recurrent, l.bias} }

func (l *LSTM) Forward(in [][]float64) [][]float64 {
	h := l.Units
	l.steps = l.steps[:0]
	hPrev := make([]float64, h)
	cPrev := make([]float64, h)
	z := make([]float64, 4*h)

	var out [][]float64
	if l.ReturnSequences {
		out = make([][]float64, 0, len(in))
	}
	for _, x := range in {
		for r := 0; r < 4*h; r++ {
			z[r] = l.bias.Value[r] +
				floats.Dot(l.kernel.Value[r*l.inputDim:(r+1)*l.inputDim], x) +
				floats.Dot(l.recurrent.Value[r*h:(r+1)*h], hPrev)
		}
		st := lstmStep{
			x:     x,
			hPrev: hPrev,
			cPrev: cPrev,
			i:     make([]float64, h),
			f:     make([]float64, h),
			g:     make([]float64, h),
			o:     make([]float64, h),
			tanhC: make([]float64, h),
		}
		c := make([]float64, h)
		hNext := make([]float64, h)
		for j := 0; j < h; j++ {
			st.i[j] = sigmoid(z[j])
			st.f[j] = sigmoid(z[h+j])
			st.g[j] = math.Tanh(z[2*h+j])
			st.o[j] = sigmoid(z[3*h+j])
			c[j] = st.f[j]*cPrev[j] + st.i[j]*st.g[j]
			st.tanhC[j] = math.Tanh(c[j])
			hNext[j] = st.o[j] * st.tanhC[j]
		}
		l.steps = append(l.steps, st)
		if l.ReturnSequences {
			out = append(out, hNext)
		}
		hPrev, cPrev = hNext, c
	}
	if !l.ReturnSequences {
		out = [][]float64{hPrev}
	}
	return out
}

// Backward runs backpropagation through time over the cached sequence.
// dOut has one row per step when ReturnSequences is set, otherwise one row
// for the final step.
func (l *LSTM) Backward(dOut [][]float64) [][]float64 {
	h := l.Units
	T := len(l.steps)
	dx := make([][]float64, T)
	dhNext := make([]float64, h)
	dcNext := make([]float64, h)
	dz := make([]float64, 4*h)

	for t := T - 1; t >= 0; t-- {
		st := l.steps[t]
		for j := 0; j < h; j++ {
			dh := dhNext[j]
			if l.ReturnSequences {
				dh += dOut[t][j]
			} else if t == T-1 {
				dh += dOut[0][j]
			}
			do := dh * st.tanhC[j]
			dc := dh*st.o[j]*(1-st.tanhC[j]*st.tanhC[j]) + dcNext[j]
			di := dc * st.g[j]
			dg := dc * st.i[j]
			df := dc * st.cPrev[j]

			dz[j] = di * st.i[j] * (1 - st.i[j])
			dz[h+j] = df * st.f[j] * (1 - st.f[j])
			dz[2*h+j] = dg * (1 - st.g[j]*st.g[j])
			dz[3*h+j] = do * st.o[j] * (1 - st.o[j])
			dcNext[j] = dc * st.f[j]
		}

		dxt := make([]float64, l.inputDim)
		dhPrev := make([]float64, h)
		for r := 0; r < 4*h; r++ {
			d := dz[r]
			if d == 0 {
				continue
			}
			kRow := l.kernel.Value[r*l.inputDim : (r+1)*l.inputDim]
			rRow := l.recurrent.Value[r*h : (r+1)*h]
			floats.AddScaled(l.kernel.Grad[r*l.inputDim:(r+1)*l.inputDim], d, st.x)
			floats.AddScaled(l.recurrent.Grad[r*h:(r+1)*h], d, st.hPrev)
			l.bias.Grad[r] += d
			floats.AddScaled(dxt, d, kRow)
			floats.AddScaled(dhPrev, d, rRow)
		}
		dx[t] = dxt
		dhNext = dhPrev
	}
	return dx
}
