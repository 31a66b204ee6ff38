package model

import "time"

// PriceSeries holds the daily closing prices of one symbol in chronological order.
// Days the provider reports without a close are absent, not filled.
type PriceSeries struct {
	Symbol string
	Dates  []time.Time
	Closes []float64
}

// Len returns the number of trading days in the series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Closes)
}
