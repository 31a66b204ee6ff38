package predictor

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StockPredictor/internal/collector"
	"StockPredictor/internal/model"
	"StockPredictor/internal/preprocess"
	"StockPredictor/internal/saver"
)

type memRecorder struct {
	mu   sync.Mutex
	runs []*model.RunRecord
	err  error
}

func (m *memRecorder) RecordRun(rec *model.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = "run-1"
	m.runs = append(m.runs, rec)
	return nil
}
func (m *memRecorder) ListRuns(int) ([]model.RunSummary, error) { return nil, nil }
func (m *memRecorder) GetRun(string) (*model.RunRecord, error)  { return nil, nil }
func (m *memRecorder) Close() error                             { return nil }

type stubNotifier struct {
	enabled bool
	err     error
	sent    []string
}

func (s *stubNotifier) Enabled() bool { return s.enabled }
func (s *stubNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	s.sent = append(s.sent, text)
	return s.err
}

type failingExporter struct{}

func (failingExporter) Extension() string              { return "csv" }
func (failingExporter) Save([]saver.Row, string) error { return errors.New("disk full") }

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testParams() Params {
	return Params{
		Ticker:    "AAPL",
		Start:     start,
		End:       start.AddDate(0, 6, 0),
		LookBack:  10,
		Epochs:    2,
		BatchSize: 16,
	}
}

func testPipeline(t *testing.T, f collector.Fetcher) *Pipeline {
	t.Helper()
	return &Pipeline{
		Fetcher:  f,
		Logger:   zaptest.NewLogger(t),
		PlotPath: filepath.Join(t.TempDir(), "prediction.png"),
		Seed:     42,
		Units:    4,
	}
}

func TestRun_SyntheticSeries(t *testing.T) {
	f := &collector.MockFetcher{Series: collector.GenerateSeries("AAPL", start, 150, 80)}
	p := testPipeline(t, f)

	pred, err := p.Run(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, 1, f.Calls)

	assert.Equal(t, "AAPL", pred.Ticker)
	require.Len(t, pred.Actual, 70)
	require.Len(t, pred.Predicted, 70)
	require.Len(t, pred.Dates, 70)
	require.Len(t, pred.Losses, 2)
	for i := range pred.Actual {
		assert.False(t, math.IsNaN(pred.Actual[i]), "actual[%d]", i)
		assert.False(t, math.IsNaN(pred.Predicted[i]), "predicted[%d]", i)
	}
	assert.False(t, math.IsNaN(pred.NextClose))

	// targets map back to the fetched closes
	series := f.Series
	assert.InDelta(t, series.Closes[10], pred.Actual[0], 1e-9)
	assert.InDelta(t, series.Closes[79], pred.Actual[69], 1e-9)
	assert.Equal(t, series.Dates[10], pred.Dates[0])

	assert.FileExists(t, p.PlotPath)
	assert.Greater(t, pred.Metrics.RMSE, 0.0)
	assert.Empty(t, pred.RunID)
}

func TestRun_FlatSeries(t *testing.T) {
	s := collector.GenerateSeries("FLAT", start, 100, 30)
	for i := range s.Closes {
		s.Closes[i] = 100
	}
	p := testPipeline(t, &collector.MockFetcher{Series: s})

	params := testParams()
	params.LookBack = 5
	pred, err := p.Run(context.Background(), params)
	require.NoError(t, err)
	for _, v := range pred.Actual {
		assert.Equal(t, 100.0, v)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *collector.MockFetcher
		params  func(Params) Params
		target  error
	}{
		{
			name:    "data unavailable",
			fetcher: &collector.MockFetcher{},
			target:  collector.ErrDataUnavailable,
		},
		{
			name:    "insufficient data",
			fetcher: &collector.MockFetcher{Series: collector.GenerateSeries("AAPL", start, 150, 10)},
			target:  preprocess.ErrInsufficientData,
		},
		{
			name:    "empty ticker",
			fetcher: &collector.MockFetcher{Series: collector.GenerateSeries("AAPL", start, 150, 80)},
			params:  func(p Params) Params { p.Ticker = " "; return p },
			target:  ErrInvalidParams,
		},
		{
			name:    "end before start",
			fetcher: &collector.MockFetcher{Series: collector.GenerateSeries("AAPL", start, 150, 80)},
			params:  func(p Params) Params { p.End = p.Start; return p },
			target:  ErrInvalidParams,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams()
			if tt.params != nil {
				params = tt.params(params)
			}
			p := testPipeline(t, tt.fetcher)
			pred, err := p.Run(context.Background(), params)
			assert.Nil(t, pred)
			assert.ErrorIs(t, err, tt.target)
			assert.NoFileExists(t, p.PlotPath)
		})
	}
}

func TestRun_FetchErrorKeepsType(t *testing.T) {
	cause := errors.New("connection reset")
	p := testPipeline(t, &collector.MockFetcher{Err: &collector.FetchError{Symbol: "AAPL", Err: cause}})

	_, err := p.Run(context.Background(), testParams())
	var fe *collector.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "AAPL", fe.Symbol)
	assert.ErrorIs(t, err, cause)
}

func TestRun_Canceled(t *testing.T) {
	p := testPipeline(t, &collector.MockFetcher{Series: collector.GenerateSeries("AAPL", start, 150, 80)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PostSteps(t *testing.T) {
	rec := &memRecorder{}
	n := &stubNotifier{enabled: true}
	p := testPipeline(t, &collector.MockFetcher{Series: collector.GenerateSeries("AAPL", start, 150, 40)})
	p.Recorder = rec
	p.Notifier = n
	p.Exporter = saver.NewExporter("json")
	p.ExportPath = filepath.Join(t.TempDir(), "out", "aapl.csv")

	pred, err := p.Run(context.Background(), testParams())
	require.NoError(t, err)

	assert.Equal(t, "run-1", pred.RunID)
	require.Len(t, rec.runs, 1)
	got := rec.runs[0]
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, 30, got.Samples)
	assert.Len(t, got.Points, 30)
	assert.Equal(t, p.PlotPath, got.PlotPath)
	assert.Equal(t, pred.NextClose, got.NextClose)

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "AAPL prediction")

	_, err = os.Stat(filepath.Join(filepath.Dir(p.ExportPath), "aapl.json"))
	assert.NoError(t, err)
}

func TestRun_ParamsOverridePaths(t *testing.T) {
	rec := &memRecorder{}
	n := &stubNotifier{enabled: true}
	p := testPipeline(t, &collector.MockFetcher{Series: collector.GenerateSeries("MSFT", start, 300, 40)})
	p.Recorder = rec
	p.Notifier = n
	p.Exporter = saver.NewExporter("csv")
	p.ExportPath = filepath.Join(t.TempDir(), "shared.csv")

	dir := t.TempDir()
	params := testParams()
	params.Ticker = "MSFT"
	params.PlotPath = filepath.Join(dir, "prediction_MSFT.png")
	params.ExportPath = filepath.Join(dir, "results_MSFT.csv")

	_, err := p.Run(context.Background(), params)
	require.NoError(t, err)

	assert.FileExists(t, params.PlotPath)
	assert.FileExists(t, params.ExportPath)
	assert.NoFileExists(t, p.PlotPath)
	assert.NoFileExists(t, p.ExportPath)
	require.Len(t, rec.runs, 1)
	assert.Equal(t, params.PlotPath, rec.runs[0].PlotPath)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], params.PlotPath)
}

func TestTickerPath(t *testing.T) {
	tests := []struct {
		path, ticker, want string
	}{
		{"docs/prediction.png", "AAPL", "docs/prediction_AAPL.png"},
		{"out/results", "MSFT", "out/results_MSFT"},
		{"docs/prediction.svg", "^GSPC", "docs/prediction__GSPC.svg"},
		{"docs/prediction.png", "BRK.B", "docs/prediction_BRK.B.png"},
		{"docs/prediction.png", "a/b", "docs/prediction_a_b.png"},
		{"", "AAPL", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TickerPath(tt.path, tt.ticker), "%s %s", tt.path, tt.ticker)
	}
}

func TestRun_PostStepFailures(t *testing.T) {
	series := collector.GenerateSeries("AAPL", start, 150, 40)

	t.Run("record and notify are best effort", func(t *testing.T) {
		p := testPipeline(t, &collector.MockFetcher{Series: series})
		p.Recorder = &memRecorder{err: errors.New("db locked")}
		p.Notifier = &stubNotifier{enabled: true, err: errors.New("telegram down")}

		pred, err := p.Run(context.Background(), testParams())
		require.NoError(t, err)
		assert.Empty(t, pred.RunID)
	})

	t.Run("disabled notifier is skipped", func(t *testing.T) {
		n := &stubNotifier{}
		p := testPipeline(t, &collector.MockFetcher{Series: series})
		p.Notifier = n

		_, err := p.Run(context.Background(), testParams())
		require.NoError(t, err)
		assert.Empty(t, n.sent)
	})

	t.Run("export failure fails the run", func(t *testing.T) {
		p := testPipeline(t, &collector.MockFetcher{Series: series})
		p.Exporter = failingExporter{}
		p.ExportPath = filepath.Join(t.TempDir(), "x.csv")

		_, err := p.Run(context.Background(), testParams())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestParamsValidate(t *testing.T) {
	ok := testParams()
	assert.NoError(t, ok.Validate())

	bad := Params{}
	err := bad.Validate()
	require.ErrorIs(t, err, ErrInvalidParams)
	for _, msg := range []string{"ticker is required", "end", "look-back", "epochs", "batch size"} {
		assert.Contains(t, err.Error(), msg)
	}
}
