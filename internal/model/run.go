package model

import "time"

// Point is one aligned actual/predicted pair of a recorded run.
type Point struct {
	Date      time.Time `json:"date"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
}

// RunSummary is the header of a recorded run.
type RunSummary struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	LookBack  int       `json:"look_back"`
	Epochs    int       `json:"epochs"`
	Samples   int       `json:"samples"`
	FinalLoss float64   `json:"final_loss"`
	NextClose float64   `json:"next_close"`
	Metrics   Metrics   `json:"metrics"`
	PlotPath  string    `json:"plot_path"`
	CreatedAt time.Time `json:"created_at"`
}

// RunRecord is a run summary plus all of its points.
type RunRecord struct {
	RunSummary
	Points []Point `json:"points"`
}
