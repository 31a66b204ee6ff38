package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"StockPredictor/internal/model"
)

// VsTraderFetcher implements Fetcher using a vstrader-compatible REST bars API.
type VsTraderFetcher struct {
	APIKey string
	Client *resty.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *VsTraderFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().SetBaseURL(baseURL).SetTimeout(timeout)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &VsTraderFetcher{APIKey: apiKey, Client: client}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64    `json:"timestamp"`
	Close     *float64 `json:"close"`
}

func (f *VsTraderFetcher) FetchCloses(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   start.Format("2006-01-02"),
			"to":     end.Format("2006-01-02"),
		}).
		Get("/api/v1/bars/daily")
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, dataUnavailable(symbol)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("status %d, body: %s", resp.StatusCode(), resp.String())}
	}
	var bars []vsBar
	if err := json.Unmarshal(resp.Body(), &bars); err != nil {
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("decode bars: %w", err)}
	}

	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })

	series := &model.PriceSeries{Symbol: symbol}
	for _, b := range bars {
		if b.Close == nil {
			continue
		}
		t := time.Unix(b.Timestamp, 0).UTC()
		if t.Before(start) || !t.Before(end) {
			continue
		}
		series.Dates = append(series.Dates, t)
		series.Closes = append(series.Closes, *b.Close)
	}
	if series.Len() == 0 {
		return nil, dataUnavailable(symbol)
	}
	return series, nil
}
