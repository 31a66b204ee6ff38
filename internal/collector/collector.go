package collector

import (
	"context"
	"sync"
	"time"

	"StockPredictor/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Series *model.PriceSeries
	Err    error
	Calls  int

	mu sync.Mutex
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCloses(_ context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Series.Len() == 0 {
		return nil, dataUnavailable(symbol)
	}
	s := *m.Series
	s.Symbol = symbol
	return &s, nil
}

// GenerateSeries builds a deterministic synthetic daily series starting at
// start, skipping weekends. Prices follow a gentle trend plus a periodic swing.
func GenerateSeries(symbol string, start time.Time, basePrice float64, count int) *model.PriceSeries {
	s := &model.PriceSeries{
		Symbol: symbol,
		Dates:  make([]time.Time, 0, count),
		Closes: make([]float64, 0, count),
	}
	d := start
	for len(s.Closes) < count {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n := float64(len(s.Closes))
			swing := float64(len(s.Closes)%10) - 5
			s.Dates = append(s.Dates, d)
			s.Closes = append(s.Closes, basePrice*(1+n*0.002)+swing*0.5)
		}
		d = d.AddDate(0, 0, 1)
	}
	return s
}
