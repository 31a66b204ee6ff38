package preprocess

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLookBack is returned for a look-back length below 1.
	ErrInvalidLookBack = errors.New("look-back must be positive")
	// ErrInsufficientData is returned when the series is not longer than the look-back.
	ErrInsufficientData = errors.New("insufficient data")
)

// Windows slices scaled into overlapping look-back windows. Pair i has window
// scaled[i:i+lookBack] and target scaled[i+lookBack], giving len-lookBack pairs.
func Windows(scaled []float64, lookBack int) ([][]float64, []float64, error) {
	if lookBack <= 0 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidLookBack, lookBack)
	}
	n := len(scaled)
	if n <= lookBack {
		return nil, nil, fmt.Errorf("%w: %d prices for look-back %d", ErrInsufficientData, n, lookBack)
	}

	x := make([][]float64, 0, n-lookBack)
	y := make([]float64, 0, n-lookBack)
	for i := lookBack; i < n; i++ {
		w := make([]float64, lookBack)
		copy(w, scaled[i-lookBack:i])
		x = append(x, w)
		y = append(y, scaled[i])
	}
	return x, y, nil
}

// Prepare fits a scaler over the whole series, normalizes it and slices it into
// window/target pairs.
func Prepare(closes []float64, lookBack int) ([][]float64, []float64, MinMaxScaler, error) {
	if lookBack <= 0 {
		return nil, nil, MinMaxScaler{}, fmt.Errorf("%w: got %d", ErrInvalidLookBack, lookBack)
	}
	if len(closes) <= lookBack {
		return nil, nil, MinMaxScaler{}, fmt.Errorf("%w: %d prices for look-back %d", ErrInsufficientData, len(closes), lookBack)
	}
	scaler, err := Fit(closes)
	if err != nil {
		return nil, nil, MinMaxScaler{}, err
	}
	x, y, err := Windows(scaler.TransformAll(closes), lookBack)
	if err != nil {
		return nil, nil, MinMaxScaler{}, err
	}
	return x, y, scaler, nil
}

// Reshape turns a (samples, lookBack) matrix into the (samples, lookBack, 1)
// tensor the recurrent model consumes.
func Reshape(x [][]float64) [][][]float64 {
	out := make([][][]float64, len(x))
	for i, row := range x {
		steps := make([][]float64, len(row))
		for t, v := range row {
			steps[t] = []float64{v}
		}
		out[i] = steps
	}
	return out
}

// LastWindow returns the final lookBack scaled values as a single sample,
// the input for a forecast one step past the series.
func LastWindow(scaled []float64, lookBack int) ([]float64, error) {
	if lookBack <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLookBack, lookBack)
	}
	if len(scaled) < lookBack {
		return nil, fmt.Errorf("%w: %d prices for look-back %d", ErrInsufficientData, len(scaled), lookBack)
	}
	w := make([]float64, lookBack)
	copy(w, scaled[len(scaled)-lookBack:])
	return w, nil
}
