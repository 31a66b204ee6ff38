// Package preprocess turns a price series into normalized look-back windows
// and maps model outputs back to price units.
package preprocess

import (
	"fmt"

	"StockPredictor/internal/calculator"
)

// MinMaxScaler maps values linearly into [0, 1] using the minimum and maximum
// observed at fit time.
//
// A flat series (Min == Max) normalizes every value to 0 and Inverse returns
// Min, so a constant series never feeds NaN into training.
type MinMaxScaler struct {
	Min float64
	Max float64
}

// Fit records the range of values.
func Fit(values []float64) (MinMaxScaler, error) {
	low, high, err := calculator.Range(values)
	if err != nil {
		return MinMaxScaler{}, fmt.Errorf("fit scaler: %w", err)
	}
	return MinMaxScaler{Min: low, Max: high}, nil
}

func (s MinMaxScaler) span() float64 { return s.Max - s.Min }

// Transform maps a price to the normalized range.
func (s MinMaxScaler) Transform(v float64) float64 {
	return calculator.Position(v, s.Min, s.Max)
}

// Inverse maps a normalized value back to price units.
func (s MinMaxScaler) Inverse(n float64) float64 {
	return n*s.span() + s.Min
}

// TransformAll returns a normalized copy of values.
func (s MinMaxScaler) TransformAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Transform(v)
	}
	return out
}

// InverseAll returns values mapped back to price units.
func (s MinMaxScaler) InverseAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.Inverse(v)
	}
	return out
}
