package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"StockPredictor/internal/saver"
)

// DateLayout is the format of prediction.start and prediction.end.
const DateLayout = "2006-01-02"

// CronParser accepts the six-field (with seconds) specs the scheduler runs.
var CronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider string        `yaml:"provider"` // yahoo or vstrader
		BaseURL  string        `yaml:"base_url"`
		APIKey   string        `yaml:"api_key"`
		Proxy    string        `yaml:"proxy"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Prediction struct {
		Ticker    string `yaml:"ticker"`
		Start     string `yaml:"start"`
		End       string `yaml:"end"`
		LookBack  int    `yaml:"look_back"`
		Epochs    int    `yaml:"epochs"`
		BatchSize int    `yaml:"batch_size"`
		Units     int    `yaml:"units"`
		Seed      uint64 `yaml:"seed"`
	} `yaml:"prediction"`
	Output struct {
		PlotPath     string `yaml:"plot_path"`
		ExportPath   string `yaml:"export_path"`
		ExportFormat string `yaml:"export_format"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron        string   `yaml:"cron"`
		Tickers     []string `yaml:"tickers"`
		HistoryDays int      `yaml:"history_days"`
		Concurrency int      `yaml:"concurrency"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyEnv() error {
	envString("DATA_PROVIDER", &c.DataSource.Provider)
	envString("YAHOO_BASE_URL", &c.DataSource.BaseURL)
	envString("VSTRADER_API_KEY", &c.DataSource.APIKey)
	envString("HTTPS_PROXY", &c.DataSource.Proxy)
	envString("PREDICT_TICKER", &c.Prediction.Ticker)
	envString("PLOT_PATH", &c.Output.PlotPath)
	envString("EXPORT_PATH", &c.Output.ExportPath)
	envString("EXPORT_FORMAT", &c.Output.ExportFormat)
	envString("SQLITE_PATH", &c.Database.SQLitePath)
	envString("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	envString("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	envString("CRON_SCHEDULE", &c.Schedule.Cron)
	envString("SERVER_ADDR", &c.Server.Addr)
	envString("LOG_LEVEL", &c.Log.Level)
	if v := os.Getenv("SCHEDULE_TICKERS"); v != "" {
		c.Schedule.Tickers = SplitTickers(v)
	}

	return errors.Join(
		envInt("PREDICT_EPOCHS", &c.Prediction.Epochs),
		envInt("PREDICT_LOOK_BACK", &c.Prediction.LookBack),
	)
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.Prediction.Ticker == "" {
		c.Prediction.Ticker = "AAPL"
	}
	if c.Prediction.Start == "" {
		c.Prediction.Start = "2023-01-01"
	}
	if c.Prediction.End == "" {
		c.Prediction.End = "2025-02-28"
	}
	if c.Prediction.LookBack == 0 {
		c.Prediction.LookBack = 60
	}
	if c.Prediction.Epochs == 0 {
		c.Prediction.Epochs = 10
	}
	if c.Prediction.BatchSize == 0 {
		c.Prediction.BatchSize = 32
	}
	if c.Prediction.Units == 0 {
		c.Prediction.Units = 50
	}
	if c.Prediction.Seed == 0 {
		c.Prediction.Seed = 42
	}
	if c.Output.PlotPath == "" {
		c.Output.PlotPath = "docs/prediction.png"
	}
	if c.Output.ExportFormat == "" {
		c.Output.ExportFormat = "csv"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 22 * * 1-5"
	}
	if len(c.Schedule.Tickers) == 0 {
		c.Schedule.Tickers = []string{c.Prediction.Ticker}
	}
	if c.Schedule.HistoryDays == 0 {
		c.Schedule.HistoryDays = 730
	}
	if c.Schedule.Concurrency == 0 {
		c.Schedule.Concurrency = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// StartDate parses prediction.start.
func (c *Config) StartDate() (time.Time, error) {
	return time.Parse(DateLayout, c.Prediction.Start)
}

// EndDate parses prediction.end.
func (c *Config) EndDate() (time.Time, error) {
	return time.Parse(DateLayout, c.Prediction.End)
}

// SplitTickers parses a comma separated ticker list, dropping blanks.
func SplitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, strings.ToUpper(t))
		}
	}
	return out
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	var errs []error
	switch c.DataSource.Provider {
	case "yahoo":
	case "vstrader":
		if c.DataSource.BaseURL == "" {
			errs = append(errs, errors.New("data_source.base_url is required for vstrader"))
		}
	default:
		errs = append(errs, fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider))
	}
	start, startErr := c.StartDate()
	if startErr != nil {
		errs = append(errs, fmt.Errorf("prediction.start: %w", startErr))
	}
	end, endErr := c.EndDate()
	if endErr != nil {
		errs = append(errs, fmt.Errorf("prediction.end: %w", endErr))
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		errs = append(errs, errors.New("prediction.end must be after prediction.start"))
	}
	if c.Prediction.LookBack < 1 {
		errs = append(errs, errors.New("prediction.look_back must be positive"))
	}
	if c.Prediction.Epochs < 1 {
		errs = append(errs, errors.New("prediction.epochs must be positive"))
	}
	if c.Prediction.BatchSize < 1 {
		errs = append(errs, errors.New("prediction.batch_size must be positive"))
	}
	if c.Prediction.Units < 1 {
		errs = append(errs, errors.New("prediction.units must be positive"))
	}
	if saver.NewExporter(c.Output.ExportFormat) == nil {
		errs = append(errs, fmt.Errorf("output.export_format %q is not supported (use %s)",
			c.Output.ExportFormat, strings.Join(saver.Formats, ", ")))
	}
	if _, err := CronParser.Parse(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("schedule.cron: %w", err))
	}
	if c.Schedule.HistoryDays < 1 {
		errs = append(errs, errors.New("schedule.history_days must be positive"))
	}
	if c.Schedule.Concurrency < 1 {
		errs = append(errs, errors.New("schedule.concurrency must be positive"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not supported", c.Log.Format))
	}
	return errors.Join(errs...)
}

// TradingDays estimates the weekday count in a span of calendar days.
func TradingDays(calendarDays int) int {
	return calendarDays * 5 / 7
}

// ValidateSchedule checks that the scheduled window yields at least one
// training sample. Only the schedule command needs it.
func (c *Config) ValidateSchedule() error {
	if days := TradingDays(c.Schedule.HistoryDays); days <= c.Prediction.LookBack {
		return fmt.Errorf("schedule.history_days %d gives about %d trading days, need more than prediction.look_back %d",
			c.Schedule.HistoryDays, days, c.Prediction.LookBack)
	}
	return nil
}
