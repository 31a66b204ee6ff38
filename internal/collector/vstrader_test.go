package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVsTraderFetcher_FetchCloses(t *testing.T) {
	var auth, query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"timestamp":1672842600,"close":126.36},
			{"timestamp":1672756200,"close":125.07},
			{"timestamp":1672929000,"close":null},
			{"timestamp":1700000000,"close":190.0}
		]`))
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "secret", "", 0)
	s, err := f.FetchCloses(context.Background(), "AAPL", day("2023-01-01"), day("2023-01-10"))
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Contains(t, query, "symbol=AAPL")
	assert.Equal(t, []float64{125.07, 126.36}, s.Closes)
}

func TestVsTraderFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "", "", 0)
	_, err := f.FetchCloses(context.Background(), "NOPE", day("2023-01-01"), day("2023-01-10"))
	assert.ErrorIs(t, err, ErrDataUnavailable)
}
