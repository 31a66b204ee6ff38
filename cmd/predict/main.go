package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"StockPredictor/internal/config"
	"StockPredictor/internal/predictor"
	"StockPredictor/internal/scheduler"
	"StockPredictor/internal/server"
)

const defaultConfigPath = "configs/config.yaml"

// flagValues mirrors the CLI flags; only flags the user set override config.
type flagValues struct {
	configPath string
	logLevel   string
	ticker     string
	start      string
	end        string
	lookBack   int
	epochs     int
	batchSize  int
	plot       string
	export     string
	format     string
	seed       uint64
}

func newRootCmd() *cobra.Command {
	var fv flagValues

	root := &cobra.Command{
		Use:   "predict",
		Short: "Train an LSTM on daily closes and chart its predictions",
		Long: `predict downloads daily closing prices for a ticker, trains a two-layer
LSTM to predict the next close from a sliding window of past closes, and
saves a chart comparing actual and predicted prices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &fv)
			if err != nil {
				return err
			}
			return runPredict(cmd, cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "path to config YAML (default $CONFIG_PATH or "+defaultConfigPath+")")
	pf.StringVar(&fv.logLevel, "log-level", "", "log level: debug, info, warn, error")

	f := root.Flags()
	f.StringVar(&fv.ticker, "ticker", predictor.DefaultTicker, "stock ticker symbol")
	f.StringVar(&fv.start, "start", predictor.DefaultStart.Format(config.DateLayout), "start date (YYYY-MM-DD)")
	f.StringVar(&fv.end, "end", predictor.DefaultEnd.Format(config.DateLayout), "end date (YYYY-MM-DD), exclusive")
	f.IntVar(&fv.lookBack, "look-back", predictor.DefaultLookBack, "look-back period in trading days")
	f.IntVar(&fv.epochs, "epochs", predictor.DefaultEpochs, "number of training epochs")
	f.IntVar(&fv.batchSize, "batch-size", 32, "mini-batch size")
	f.StringVar(&fv.plot, "plot", "", "chart output path (format follows the extension)")
	f.StringVar(&fv.export, "export", "", "write actual/predicted rows to this path")
	f.StringVar(&fv.format, "format", "", "export format: csv, json, parquet, xlsx")
	f.Uint64Var(&fv.seed, "seed", 42, "random seed for weight init and shuffling")

	root.AddCommand(newScheduleCmd(&fv), newServeCmd(&fv))
	return root
}

// loadConfig reads .env and the config file, then applies explicitly set flags.
func loadConfig(cmd *cobra.Command, fv *flagValues) (*config.Config, error) {
	_ = godotenv.Load()

	path := fv.configPath
	if path == "" {
		path = defaultConfigPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, fv, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, fv *flagValues, cfg *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("log-level") {
		cfg.Log.Level = fv.logLevel
	}
	if changed("ticker") {
		cfg.Prediction.Ticker = fv.ticker
	}
	if changed("start") {
		cfg.Prediction.Start = fv.start
	}
	if changed("end") {
		cfg.Prediction.End = fv.end
	}
	if changed("look-back") {
		cfg.Prediction.LookBack = fv.lookBack
	}
	if changed("epochs") {
		cfg.Prediction.Epochs = fv.epochs
	}
	if changed("batch-size") {
		cfg.Prediction.BatchSize = fv.batchSize
	}
	if changed("plot") {
		cfg.Output.PlotPath = fv.plot
	}
	if changed("export") {
		cfg.Output.ExportPath = fv.export
	}
	if changed("format") {
		cfg.Output.ExportFormat = fv.format
	}
	if changed("seed") {
		cfg.Prediction.Seed = fv.seed
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runPredict(cmd *cobra.Command, cfg *config.Config) error {
	a, cleanup, err := initializeApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()
	params := predictor.Params{
		Ticker:    cfg.Prediction.Ticker,
		Start:     start,
		End:       end,
		LookBack:  cfg.Prediction.LookBack,
		Epochs:    cfg.Prediction.Epochs,
		BatchSize: cfg.Prediction.BatchSize,
	}
	if _, err := a.Pipeline.Run(ctx, params); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Prediction completed for %s. Check %s for visualization.\n",
		params.Ticker, cfg.Output.PlotPath)
	return nil
}

func newScheduleCmd(fv *flagValues) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run predictions for the configured tickers on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, fv)
			if err != nil {
				return err
			}
			if err := cfg.ValidateSchedule(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			a, cleanup, err := initializeApp(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			sched := scheduler.NewScheduler(ctx, a.Pipeline, a.Notifier, a.Recorder,
				scheduler.SettingsFromConfig(cfg), a.Logger)
			if err := sched.Register(cfg.Schedule.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if a.Notifier.Enabled() {
				go a.Notifier.StartPolling(ctx, sched.HandleCommand)
				a.Logger.Info("telegram polling started")
			}
			if runNow {
				sched.TriggerNow()
			}

			a.Logger.Info("scheduler running, press Ctrl+C to stop", zap.String("cron", cfg.Schedule.Cron))
			<-ctx.Done()
			a.Logger.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "run all tickers once at startup")
	return cmd
}

func newServeCmd(fv *flagValues) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, fv)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			a, cleanup, err := initializeApp(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return server.Serve(ctx, cfg.Server.Addr, server.NewRouter(a.Recorder, a.Logger), a.Logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
