// Package predictor runs the fetch, scale, train, predict and render pipeline
// for one ticker.
package predictor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"StockPredictor/internal/calculator"
	"StockPredictor/internal/collector"
	"StockPredictor/internal/model"
	"StockPredictor/internal/nn"
	"StockPredictor/internal/notifier"
	"StockPredictor/internal/preprocess"
	"StockPredictor/internal/recorder"
	"StockPredictor/internal/render"
	"StockPredictor/internal/saver"
)

// NotifyRetries is how many times a run report is resent before giving up.
const NotifyRetries = 3

// Notifier delivers run reports. *notifier.TelegramNotifier satisfies it.
type Notifier interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Pipeline wires the stages of a prediction run. Fetcher is required; the
// export, record and notify steps run only when their fields are set.
type Pipeline struct {
	Fetcher  collector.Fetcher
	Logger   *zap.Logger
	PlotPath string
	Seed     uint64
	Units    int // recurrent units per layer, nn.DefaultUnits when zero

	Exporter   saver.Exporter
	ExportPath string
	Recorder   recorder.Recorder
	Notifier   Notifier
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) plotPath(params Params) string {
	switch {
	case params.PlotPath != "":
		return params.PlotPath
	case p.PlotPath != "":
		return p.PlotPath
	}
	return render.DefaultPath
}

func (p *Pipeline) exportPath(params Params) string {
	if params.ExportPath != "" {
		return params.ExportPath
	}
	return p.ExportPath
}

// Run executes one prediction for params. Any stage failure aborts the run
// and is returned wrapped; recording and notification failures are only logged.
func (p *Pipeline) Run(ctx context.Context, params Params) (*model.Prediction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ticker := strings.TrimSpace(params.Ticker)
	log := p.logger().With(zap.String("ticker", ticker))
	started := time.Now()

	series, err := p.Fetcher.FetchCloses(ctx, ticker, params.Start, params.End)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	log.Info("prices fetched",
		zap.String("source", p.Fetcher.Name()),
		zap.Int("prices", series.Len()))

	x, y, scaler, err := preprocess.Prepare(series.Closes, params.LookBack)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	tensor := preprocess.Reshape(x)
	log.Info("windows prepared",
		zap.Int("samples", len(x)),
		zap.Int("look_back", params.LookBack),
		zap.Float64("min", scaler.Min),
		zap.Float64("max", scaler.Max))

	opts := []nn.Option{nn.WithSeed(p.Seed), nn.WithLogger(log)}
	if p.Units > 0 {
		opts = append(opts, nn.WithUnits(p.Units))
	}
	net, err := nn.Build(params.LookBack, opts...)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	losses, err := net.Fit(ctx, tensor, y, params.Epochs, params.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	normalized, err := net.Predict(tensor)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	pred := &model.Prediction{
		Ticker:    ticker,
		Actual:    scaler.InverseAll(y),
		Predicted: scaler.InverseAll(normalized),
		Losses:    losses,
	}
	if len(series.Dates) == len(series.Closes) {
		pred.Dates = append([]time.Time(nil), series.Dates[params.LookBack:]...)
	}

	last, err := preprocess.LastWindow(scaler.TransformAll(series.Closes), params.LookBack)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	next, err := net.Predict(preprocess.Reshape([][]float64{last}))
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	pred.NextClose = scaler.Inverse(next[0])

	plotPath := p.plotPath(params)
	if err := render.Comparison(plotPath, ticker, pred.Dates, pred.Actual, pred.Predicted); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	log.Info("plot saved", zap.String("path", plotPath))

	if pred.Metrics, err = calculator.Evaluate(pred.Actual, pred.Predicted); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	log.Info("prediction complete",
		zap.Float64("loss", pred.FinalLoss()),
		zap.Float64("rmse", pred.Metrics.RMSE),
		zap.Float64("mae", pred.Metrics.MAE),
		zap.Float64("mape", pred.Metrics.MAPE),
		zap.Float64("next_close", pred.NextClose),
		zap.Duration("elapsed", time.Since(started)))

	if exportPath := p.exportPath(params); p.Exporter != nil && exportPath != "" {
		path := saver.PathFor(p.Exporter, exportPath)
		if err := p.Exporter.Save(saver.RowsFromPrediction(pred), path); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		log.Info("results exported", zap.String("path", path))
	}

	if p.Recorder != nil {
		rec := newRunRecord(params, pred, plotPath)
		if err := p.Recorder.RecordRun(rec); err != nil {
			log.Warn("record run failed", zap.Error(err))
		} else {
			pred.RunID = rec.ID
		}
	}

	if p.Notifier != nil && p.Notifier.Enabled() {
		if err := p.Notifier.SendWithRetry(ctx, notifier.FormatRunReport(pred, plotPath), NotifyRetries); err != nil {
			log.Warn("notify failed", zap.Error(err))
		}
	}

	return pred, nil
}

func newRunRecord(params Params, pred *model.Prediction, plotPath string) *model.RunRecord {
	points := make([]model.Point, len(pred.Actual))
	for i := range pred.Actual {
		points[i] = model.Point{Actual: pred.Actual[i], Predicted: pred.Predicted[i]}
		if i < len(pred.Dates) {
			points[i].Date = pred.Dates[i]
		}
	}
	return &model.RunRecord{
		RunSummary: model.RunSummary{
			Ticker:    pred.Ticker,
			Start:     params.Start,
			End:       params.End,
			LookBack:  params.LookBack,
			Epochs:    params.Epochs,
			Samples:   len(pred.Actual),
			FinalLoss: pred.FinalLoss(),
			NextClose: pred.NextClose,
			Metrics:   pred.Metrics,
			PlotPath:  plotPath,
		},
		Points: points,
	}
}
