package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StockPredictor/internal/config"
	"StockPredictor/internal/model"
	"StockPredictor/internal/notifier"
	"StockPredictor/internal/predictor"
	"StockPredictor/internal/recorder"
	"StockPredictor/internal/render"
)

// Runner executes one prediction run.
type Runner interface {
	Run(ctx context.Context, params predictor.Params) (*model.Prediction, error)
}

// Sender delivers chat messages. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	Enabled() bool
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Settings fixes what every scheduled run predicts.
type Settings struct {
	Tickers     []string
	HistoryDays int
	LookBack    int
	Epochs      int
	BatchSize   int
	Concurrency int

	// Each ticker writes its own chart and export next to these paths.
	PlotPath   string
	ExportPath string
}

// SettingsFromConfig extracts Settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Tickers:     cfg.Schedule.Tickers,
		HistoryDays: cfg.Schedule.HistoryDays,
		LookBack:    cfg.Prediction.LookBack,
		Epochs:      cfg.Prediction.Epochs,
		BatchSize:   cfg.Prediction.BatchSize,
		Concurrency: cfg.Schedule.Concurrency,
		PlotPath:    cfg.Output.PlotPath,
		ExportPath:  cfg.Output.ExportPath,
	}
}

// Scheduler runs the prediction pipeline for a fixed ticker list on a cron spec.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Sender
	Recorder recorder.Recorder
	Settings Settings
	Logger   *zap.Logger
	Ctx      context.Context

	now     func() time.Time
	running atomic.Bool

	mu       sync.Mutex // guards stopping and wg.Add
	stopping bool
	wg       sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, rec recorder.Recorder, settings Settings, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.Concurrency < 1 {
		settings.Concurrency = 1
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Recorder: rec,
		Settings: settings,
		Logger:   logger,
		Ctx:      ctx,
		now:      time.Now,
	}
}

// Register schedules the prediction task on spec (six fields, with seconds).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.predictTask); err != nil {
		return fmt.Errorf("register prediction task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Strings("tickers", s.Settings.Tickers))
}

// Stop stops the cron scheduler and waits for in-flight runs. Runs
// requested after Stop are refused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.Logger.Info("scheduler stopped")
}

// RunNow executes the prediction task immediately and waits for it.
func (s *Scheduler) RunNow() error {
	return s.runAll(s.Ctx)
}

// TriggerNow starts the prediction task in the background (for --run-now).
// Stop waits for it. It reports false when the scheduler is stopping.
func (s *Scheduler) TriggerNow() bool {
	return s.spawn(s.predictTask)
}

// spawn runs fn on a goroutine tracked by Stop.
func (s *Scheduler) spawn(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
	return true
}

func (s *Scheduler) predictTask() {
	if err := s.runAll(s.Ctx); err != nil {
		s.Logger.Error("scheduled run finished with failures", zap.Error(err))
	}
}

var errBusy = errors.New("previous run still in progress")

// window returns [today-HistoryDays, today) in UTC.
func (s *Scheduler) window() (time.Time, time.Time) {
	now := s.now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, 0, -s.Settings.HistoryDays), end
}

func (s *Scheduler) params(ticker string) predictor.Params {
	start, end := s.window()
	plot := s.Settings.PlotPath
	if plot == "" {
		plot = render.DefaultPath
	}
	return predictor.Params{
		Ticker:     ticker,
		Start:      start,
		End:        end,
		LookBack:   s.Settings.LookBack,
		Epochs:     s.Settings.Epochs,
		BatchSize:  s.Settings.BatchSize,
		PlotPath:   predictor.TickerPath(plot, ticker),
		ExportPath: predictor.TickerPath(s.Settings.ExportPath, ticker),
	}
}

// runAll predicts every configured ticker unless another run is in progress.
func (s *Scheduler) runAll(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Warn("skipping scheduled run", zap.Error(errBusy))
		return errBusy
	}
	defer s.running.Store(false)
	return s.runTickers(ctx, s.Settings.Tickers)
}

// runTickers predicts tickers with bounded parallelism. A failed ticker does
// not stop the others; all failures are returned joined. The caller holds
// the running flag.
func (s *Scheduler) runTickers(ctx context.Context, tickers []string) error {
	s.Logger.Info("running predictions", zap.Strings("tickers", tickers))

	var (
		mu       sync.Mutex
		failures []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Settings.Concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			if err := s.runTicker(gctx, ticker); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(failures...)
}

func (s *Scheduler) runTicker(ctx context.Context, ticker string) error {
	pred, err := s.Runner.Run(ctx, s.params(ticker))
	if err != nil {
		err = fmt.Errorf("%s: %w", ticker, err)
		s.Logger.Error("prediction failed", zap.String("ticker", ticker), zap.Error(err))
		s.trySend(ctx, notifier.FormatFailure(ticker, err))
		return err
	}
	s.Logger.Info("prediction finished",
		zap.String("ticker", ticker),
		zap.String("run_id", pred.RunID),
		zap.Float64("next_close", pred.NextClose))
	return nil
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch strings.ToLower(fields[0]) {
	case "/runs":
		if s.Recorder == nil {
			return "Run history is not configured."
		}
		runs, err := s.Recorder.ListRuns(5)
		if err != nil {
			return fmt.Sprintf("Could not load runs: %v", err)
		}
		return notifier.FormatRunList(runs)
	case "/predict":
		tickers := s.Settings.Tickers
		if len(fields) > 1 {
			tickers = config.SplitTickers(strings.Join(fields[1:], ","))
		}
		if len(tickers) == 0 {
			return "No tickers to predict."
		}
		if !s.running.CompareAndSwap(false, true) {
			return "A run is already in progress, try again later."
		}
		started := s.spawn(func() {
			defer s.running.Store(false)
			if err := s.runTickers(s.Ctx, tickers); err != nil {
				s.Logger.Error("requested run finished with failures", zap.Error(err))
			}
		})
		if !started {
			s.running.Store(false)
			return "Scheduler is shutting down."
		}
		return fmt.Sprintf("Started predictions for %s.", strings.Join(tickers, ", "))
	case "/status":
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Tickers: %s\n", strings.Join(s.Settings.Tickers, ", ")))
		for _, e := range s.Cron.Entries() {
			b.WriteString(fmt.Sprintf("Next run: %s\n", e.Next.Format("2006-01-02 15:04:05 MST")))
		}
		if s.running.Load() {
			b.WriteString("A scheduled run is in progress.\n")
		}
		return strings.TrimSpace(b.String())
	default:
		return "Commands:\n• /predict [TICKER...]\n• /runs\n• /status"
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil || !s.Notifier.Enabled() {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, predictor.NotifyRetries); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}
