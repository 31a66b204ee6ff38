package model

import "time"

// Metrics summarizes how far predictions are from the actual prices.
type Metrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"` // percent
}

// Prediction is the output of one pipeline run. Actual and Predicted are in
// price units and aligned index-for-index with Dates.
type Prediction struct {
	RunID     string // set once the run is recorded
	Ticker    string
	Dates     []time.Time
	Actual    []float64
	Predicted []float64
	NextClose float64 // forecast for the trading day after the series
	Losses    []float64
	Metrics   Metrics
}

// FinalLoss returns the mean training loss of the last epoch.
func (p *Prediction) FinalLoss() float64 {
	if len(p.Losses) == 0 {
		return 0
	}
	return p.Losses[len(p.Losses)-1]
}
