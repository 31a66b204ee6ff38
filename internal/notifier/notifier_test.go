package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StockPredictor/internal/model"
)

func newStub(t *testing.T, h http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", zaptest.NewLogger(t)).SetBaseURL(srv.URL)
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	n := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, n.Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, map[string]string{"chat_id": "42", "text": "<b>hi</b>", "parse_mode": "HTML"}, got)
}

func TestSend_APIError(t *testing.T) {
	n := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	})
	err := n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSend_Disabled(t *testing.T) {
	var calls int32
	n := newStub(t, func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&calls, 1) })
	n.BotToken = ""

	assert.False(t, n.Enabled())
	assert.NoError(t, n.Send(context.Background(), "x"))
	assert.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.Zero(t, atomic.LoadInt32(&calls))

	var nilNotifier *TelegramNotifier
	assert.False(t, nilNotifier.Enabled())
}

func TestSendWithRetry(t *testing.T) {
	var calls int32
	n := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"ok":false}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls int32
	n := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := n.SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSendWithRetry_Canceled(t *testing.T) {
	n := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	n.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	err := n.SendWithRetry(ctx, "x", 2)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPollOnce(t *testing.T) {
	var replies []map[string]string
	n := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /runs ","chat":{"id":42}}},
				{"update_id":8,"message":{"text":"/runs","chat":{"id":99}}},
				{"update_id":9}
			]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			replies = append(replies, body)
			w.Write([]byte(`{"ok":true}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	var commands []string
	next, err := n.pollOnce(context.Background(), 7, func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		return "ok"
	})
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/runs"}, commands)
	require.Len(t, replies, 1)
	assert.Equal(t, "42", replies[0]["chat_id"])
}

func TestFormatRunReport(t *testing.T) {
	d := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	p := &model.Prediction{
		Ticker:    "AAPL",
		Dates:     []time.Time{d.AddDate(0, 0, -1), d},
		Actual:    []float64{240.36, 237.3},
		Predicted: []float64{238.9, 239.444},
		NextClose: 238.125,
		Losses:    []float64{0.01, 0.002},
		Metrics:   model.Metrics{RMSE: 1.85, MAE: 1.75, MAPE: 0.737},
	}

	msg := FormatRunReport(p, "out/aapl.png")
	assert.Contains(t, msg, "<b>AAPL prediction</b>")
	assert.Contains(t, msg, "Samples: 2")
	assert.Contains(t, msg, "Actual (2025-02-27): 237.30")
	assert.Contains(t, msg, "Predicted (2025-02-27): 239.44")
	assert.Contains(t, msg, "Next close:</b> 238.13")
	assert.Contains(t, msg, "MAPE: 0.74%")
	assert.Contains(t, msg, "Final loss: 0.002000 (2 epochs)")
	assert.Contains(t, msg, "<code>out/aapl.png</code>")
}

func TestFormatRunList(t *testing.T) {
	assert.Equal(t, "No runs recorded yet.", FormatRunList(nil))

	msg := FormatRunList([]model.RunSummary{{
		ID:        "abc",
		Ticker:    "MSFT",
		NextClose: 410.5,
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}})
	assert.Contains(t, msg, "2025-03-01 09:00 MSFT next=410.50")
	assert.Contains(t, msg, "<code>abc</code>")
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure("X<Y", errors.New("no data found for ticker X<Y"))
	assert.Contains(t, msg, "X&lt;Y prediction failed")
}
