package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"StockPredictor/internal/model"
)

// DefaultYahooBaseURL is the public Yahoo Finance host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	Client    *resty.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(baseURL, proxyURL string, timeout time.Duration) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &YahooFetcher{
		Client: client,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
// Null entries decode to nil pointers.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchCloses downloads daily closes in [start, end). Adjusted closes are used
// when the provider returns them.
func (f *YahooFetcher) FetchCloses(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	resp, err := f.Client.R().
		SetContext(ctx).
		SetPathParam("symbol", f.yahooSymbol(symbol)).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(end.Unix(), 10),
			"interval": "1d",
			"events":   "history",
		}).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}

	var chart yahooChart
	decodeErr := json.Unmarshal(resp.Body(), &chart)
	if decodeErr == nil && chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, dataUnavailable(symbol)
		}
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode(), resp.String())}
	}
	if decodeErr != nil {
		return nil, &FetchError{Symbol: symbol, Err: fmt.Errorf("yahoo decode: %w", decodeErr)}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, dataUnavailable(symbol)
	}

	result := chart.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	type row struct {
		date  time.Time
		close float64
	}
	rows := make([]row, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // skip null bars (holidays, halts)
		}
		local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		rows = append(rows, row{
			date:  time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			close: *closes[i],
		})
	}
	if len(rows) == 0 {
		return nil, dataUnavailable(symbol)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	series := &model.PriceSeries{
		Symbol: symbol,
		Dates:  make([]time.Time, len(rows)),
		Closes: make([]float64, len(rows)),
	}
	for i, r := range rows {
		series.Dates[i] = r.date
		series.Closes[i] = r.close
	}
	return series, nil
}
