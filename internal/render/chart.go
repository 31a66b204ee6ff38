// Package render draws actual-versus-predicted price charts.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultPath is where charts go when nothing else is configured.
const DefaultPath = "docs/prediction.png"

var ErrEmptySeries = errors.New("nothing to plot")

var (
	actualColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	predictedColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Comparison overlays actual and predicted prices and saves the chart to
// path. The image format follows the file extension (png, svg, pdf, ...).
// When dates has the same length as the series the x axis shows calendar
// dates, otherwise the sample index.
func Comparison(path, ticker string, dates []time.Time, actual, predicted []float64) error {
	if len(actual) == 0 {
		return ErrEmptySeries
	}
	if len(actual) != len(predicted) {
		return fmt.Errorf("series length mismatch: %d actual, %d predicted", len(actual), len(predicted))
	}
	if path == "" {
		path = DefaultPath
	}

	useDates := len(dates) == len(actual)
	xAt := func(i int) float64 {
		if useDates {
			return float64(dates[i].Unix())
		}
		return float64(i)
	}

	actualXY := make(plotter.XYs, len(actual))
	predictedXY := make(plotter.XYs, len(predicted))
	for i := range actual {
		actualXY[i] = plotter.XY{X: xAt(i), Y: actual[i]}
		predictedXY[i] = plotter.XY{X: xAt(i), Y: predicted[i]}
	}

	p := plot.New()
	p.Title.Text = ticker + " Stock Price Prediction"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Price"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())
	if useDates {
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	}

	actualLine, err := plotter.NewLine(actualXY)
	if err != nil {
		return fmt.Errorf("actual line: %w", err)
	}
	actualLine.Color = actualColor
	actualLine.Width = vg.Points(1.5)

	predictedLine, err := plotter.NewLine(predictedXY)
	if err != nil {
		return fmt.Errorf("predicted line: %w", err)
	}
	predictedLine.Color = predictedColor
	predictedLine.Width = vg.Points(1.5)

	p.Add(actualLine, predictedLine)
	p.Legend.Add("Actual Prices", actualLine)
	p.Legend.Add("Predicted Prices", predictedLine)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot dir: %w", err)
		}
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
