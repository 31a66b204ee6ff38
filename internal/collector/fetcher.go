package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StockPredictor/internal/model"
)

// ErrDataUnavailable is returned when the provider has no rows for the
// requested symbol and range (unknown ticker, range without trading days).
var ErrDataUnavailable = errors.New("no data found")

// FetchError wraps every other provider failure: transport, status, decoding.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("error fetching data for %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher defines the interface for fetching daily closing prices.
// end is exclusive.
type Fetcher interface {
	FetchCloses(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error)
	Name() string
}

func dataUnavailable(symbol string) error {
	return fmt.Errorf("%w for ticker %s", ErrDataUnavailable, symbol)
}
