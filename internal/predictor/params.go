package predictor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidParams is returned by Run when Params fail validation.
var ErrInvalidParams = errors.New("invalid parameters")

const (
	DefaultTicker   = "AAPL"
	DefaultLookBack = 60
	DefaultEpochs   = 10
	DateLayout      = "2006-01-02"
)

var (
	DefaultStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
)

// Params describes one prediction run. End is exclusive.
type Params struct {
	Ticker    string
	Start     time.Time
	End       time.Time
	LookBack  int
	Epochs    int
	BatchSize int

	// PlotPath and ExportPath replace the Pipeline's paths when set.
	PlotPath   string
	ExportPath string
}

// Validate checks Params for obvious errors.
func (p Params) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Ticker) == "" {
		errs = append(errs, errors.New("ticker is required"))
	}
	if !p.End.After(p.Start) {
		errs = append(errs, fmt.Errorf("end %s must be after start %s",
			p.End.Format(DateLayout), p.Start.Format(DateLayout)))
	}
	if p.LookBack < 1 {
		errs = append(errs, fmt.Errorf("look-back must be >= 1, got %d", p.LookBack))
	}
	if p.Epochs < 1 {
		errs = append(errs, fmt.Errorf("epochs must be >= 1, got %d", p.Epochs))
	}
	if p.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be >= 1, got %d", p.BatchSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
	}
	return nil
}

// TickerPath inserts the ticker before the extension of path, so that
// "docs/prediction.png" becomes "docs/prediction_AAPL.png". Characters
// outside [A-Za-z0-9.-] in the ticker are replaced by '_'.
func TickerPath(path, ticker string) string {
	if path == "" {
		return ""
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, strings.TrimSpace(ticker))
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + safe + ext
}
