package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StockPredictor/internal/model"
	"StockPredictor/internal/recorder"
)

func seededRecorder(t *testing.T, n int) *recorder.SQLiteRecorder {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		require.NoError(t, rec.RecordRun(&model.RunRecord{
			RunSummary: model.RunSummary{
				ID:        "run-" + string(rune('a'+i)),
				Ticker:    "AAPL",
				Start:     base.AddDate(-1, 0, 0),
				End:       base,
				LookBack:  60,
				Epochs:    10,
				Samples:   1,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			},
			Points: []model.Point{{Date: base, Actual: 240.1, Predicted: 238.7}},
		}))
	}
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := NewRouter(recorder.NewNoopRecorder(), zaptest.NewLogger(t))
	w := get(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListRuns(t *testing.T) {
	r := NewRouter(seededRecorder(t, 3), zaptest.NewLogger(t))

	w := get(t, r, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int                `json:"count"`
		Runs  []model.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "run-c", body.Runs[0].ID)

	w = get(t, r, "/api/v1/runs?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = get(t, r, "/api/v1/runs?limit=100000")
	assert.Equal(t, http.StatusOK, w.Code)

	for _, bad := range []string{"0", "-3", "abc"} {
		w = get(t, r, "/api/v1/runs?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", bad)
	}
}

func TestListRuns_Empty(t *testing.T) {
	r := NewRouter(recorder.NewNoopRecorder(), zaptest.NewLogger(t))
	w := get(t, r, "/api/v1/runs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"runs":[]}`, w.Body.String())
}

func TestGetRun(t *testing.T) {
	r := NewRouter(seededRecorder(t, 1), zaptest.NewLogger(t))

	w := get(t, r, "/api/v1/runs/run-a")
	require.Equal(t, http.StatusOK, w.Code)
	var run model.RunRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "run-a", run.ID)
	require.Len(t, run.Points, 1)
	assert.Equal(t, 238.7, run.Points[0].Predicted)

	w = get(t, r, "/api/v1/runs/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "run not found")
}

type brokenRecorder struct{ recorder.NoopRecorder }

func (brokenRecorder) ListRuns(int) ([]model.RunSummary, error) { return nil, errors.New("disk I/O error") }
func (brokenRecorder) GetRun(string) (*model.RunRecord, error)  { return nil, errors.New("disk I/O error") }

func TestRecorderFailure(t *testing.T) {
	r := NewRouter(&brokenRecorder{}, zaptest.NewLogger(t))
	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/api/v1/runs").Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/api/v1/runs/x").Code)
}

func TestServe_Shutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, NewRouter(recorder.NewNoopRecorder(), nil), zaptest.NewLogger(t)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
