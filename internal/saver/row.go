package saver

import (
	"github.com/shopspring/decimal"

	"StockPredictor/internal/model"
)

// DateLayout is the on-disk date format for every exporter.
const DateLayout = "2006-01-02"

// Row is one exported point of an actual-versus-predicted run.
type Row struct {
	Date      string  `json:"date" parquet:"date"`
	Actual    float64 `json:"actual" parquet:"actual"`
	Predicted float64 `json:"predicted" parquet:"predicted"`
}

// RowsFromPrediction flattens p into rows, prices rounded to 4 decimals.
// Dates are left empty when the prediction carries none.
func RowsFromPrediction(p *model.Prediction) []Row {
	if p == nil {
		return nil
	}
	n := min(len(p.Actual), len(p.Predicted))
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		r := Row{
			Actual:    round4(p.Actual[i]),
			Predicted: round4(p.Predicted[i]),
		}
		if i < len(p.Dates) {
			r.Date = p.Dates[i].Format(DateLayout)
		}
		rows[i] = r
	}
	return rows
}

func round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}
