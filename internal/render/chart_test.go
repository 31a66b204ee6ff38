package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparison_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "aapl.png")
	actual := []float64{150, 151.2, 149.8, 152.4}
	predicted := []float64{149.5, 150.9, 150.3, 151.8}

	require.NoError(t, Comparison(path, "AAPL", nil, actual, predicted))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestComparison_DateAxis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msft.svg")
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)}

	require.NoError(t, Comparison(path, "MSFT", dates, []float64{1, 2, 3}, []float64{1.1, 2.1, 2.9}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestComparison_InvalidSeries(t *testing.T) {
	dir := t.TempDir()

	err := Comparison(filepath.Join(dir, "a.png"), "AAPL", nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmptySeries)

	err = Comparison(filepath.Join(dir, "b.png"), "AAPL", nil, []float64{1, 2}, []float64{1})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "b.png"))
}
