package nn

import "math"

// Adam is the adaptive moment estimation optimizer, with Keras defaults.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t int
	m map[*Param][]float64
	v map[*Param][]float64
}

// NewAdam returns Adam with lr, β1 0.9, β2 0.999 and ε 1e-7.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		m:            make(map[*Param][]float64),
		v:            make(map[*Param][]float64),
	}
}

// Step applies one update from the accumulated gradients, then clears them.
func (a *Adam) Step(params []*Param) {
	a.t++
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, float64(a.t))) / (1 - math.Pow(a.Beta1, float64(a.t)))
	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(p.Value))
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float64, len(p.Value))
			a.v[p] = v
		}
		for i, g := range p.Grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			p.Value[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
		clear(p.Grad)
	}
}
