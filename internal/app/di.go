// Package app assembles the prediction pipeline and its collaborators from config.
package app

import (
	"fmt"

	"github.com/google/wire"
	"go.uber.org/zap"

	"StockPredictor/internal/collector"
	"StockPredictor/internal/config"
	"StockPredictor/internal/logging"
	"StockPredictor/internal/notifier"
	"StockPredictor/internal/predictor"
	"StockPredictor/internal/recorder"
	"StockPredictor/internal/saver"
)

// App holds application dependencies built by Wire.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Fetcher  collector.Fetcher
	Recorder recorder.Recorder
	Notifier *notifier.TelegramNotifier
	Exporter saver.Exporter
	Pipeline *predictor.Pipeline
}

// ProviderSet builds an App from a validated *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideFetcher,
	ProvideRecorder,
	ProvideNotifier,
	ProvideExporter,
	ProvidePipeline,
	wire.Struct(new(App), "*"),
)

// ProvideLogger builds the zap logger from the log section (for Wire).
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideFetcher picks the price source named by data_source.provider (for Wire).
func ProvideFetcher(cfg *config.Config, logger *zap.Logger) collector.Fetcher {
	ds := cfg.DataSource
	var f collector.Fetcher
	switch ds.Provider {
	case "vstrader":
		f = collector.NewVsTraderFetcher(ds.BaseURL, ds.APIKey, ds.Proxy, ds.Timeout)
	default:
		f = collector.NewYahooFetcher(ds.BaseURL, ds.Proxy, ds.Timeout)
	}
	logger.Info("data source", zap.String("name", f.Name()))
	return f
}

// ProvideRecorder opens the SQLite run history, falling back to a no-op
// recorder when no path is set or the open fails (for Wire).
func ProvideRecorder(cfg *config.Config, logger *zap.Logger) (recorder.Recorder, func()) {
	path := cfg.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder(), func() {}
	}
	sr, err := recorder.NewSQLiteRecorder(path, logger)
	if err != nil {
		logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder(), func() {}
	}
	return sr, func() {
		if err := sr.Close(); err != nil {
			logger.Warn("close sqlite recorder", zap.Error(err))
		}
	}
}

// ProvideNotifier creates the Telegram notifier; it stays silent without credentials (for Wire).
func ProvideNotifier(cfg *config.Config, logger *zap.Logger) *notifier.TelegramNotifier {
	return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, logger)
}

// ProvideExporter creates the exporter for output.export_format (for Wire).
// Returns error if the format is not supported.
func ProvideExporter(cfg *config.Config) (saver.Exporter, error) {
	e := saver.NewExporter(cfg.Output.ExportFormat)
	if e == nil {
		return nil, fmt.Errorf("unsupported export format %q (use: csv, json, parquet, xlsx)", cfg.Output.ExportFormat)
	}
	return e, nil
}

// ProvidePipeline wires the prediction pipeline (for Wire).
func ProvidePipeline(cfg *config.Config, f collector.Fetcher, rec recorder.Recorder, n *notifier.TelegramNotifier, e saver.Exporter, logger *zap.Logger) *predictor.Pipeline {
	return &predictor.Pipeline{
		Fetcher:    f,
		Logger:     logger,
		PlotPath:   cfg.Output.PlotPath,
		Seed:       cfg.Prediction.Seed,
		Units:      cfg.Prediction.Units,
		Exporter:   e,
		ExportPath: cfg.Output.ExportPath,
		Recorder:   rec,
		Notifier:   n,
	}
}
