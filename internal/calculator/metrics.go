package calculator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"StockPredictor/internal/model"
)

// Evaluate compares predictions with actual prices.
// MAPE ignores points whose actual price is zero.
func Evaluate(actual, predicted []float64) (model.Metrics, error) {
	if len(actual) == 0 {
		return model.Metrics{}, errors.New("no values provided")
	}
	if len(actual) != len(predicted) {
		return model.Metrics{}, errors.New("actual and predicted lengths differ")
	}

	sq := make([]float64, len(actual))
	abs := make([]float64, len(actual))
	var pct []float64
	for i := range actual {
		d := predicted[i] - actual[i]
		sq[i] = d * d
		abs[i] = math.Abs(d)
		if actual[i] != 0 {
			pct = append(pct, math.Abs(d/actual[i])*100)
		}
	}

	m := model.Metrics{
		RMSE: math.Sqrt(stat.Mean(sq, nil)),
		MAE:  stat.Mean(abs, nil),
	}
	if len(pct) > 0 {
		m.MAPE = stat.Mean(pct, nil)
	}
	return m, nil
}
