package calculator

import (
	"errors"
	"math"
)

// ErrNonFinite is returned when a series contains NaN or ±Inf.
var ErrNonFinite = errors.New("series contains non-finite values")

// Range scans values and returns the lowest and highest entry.
func Range(values []float64) (low, high float64, err error) {
	if len(values) == 0 {
		return 0, 0, errors.New("no values provided")
	}
	low = math.Inf(1)
	high = math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, ErrNonFinite
		}
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high, nil
}

// Position returns where v sits within [low, high] (0.0~1.0).
// A flat range maps every value to 0.
func Position(v, low, high float64) float64 {
	if high == low {
		return 0
	}
	return (v - low) / (high - low)
}
