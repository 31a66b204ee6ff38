package saver

import (
	"encoding/csv"
	"os"
	"strconv"
)

// CSVExporter writes a header row followed by one line per point.
type CSVExporter struct{}

func (CSVExporter) Extension() string { return "csv" }

func (CSVExporter) Save(rows []Row, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "actual", "predicted"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date,
			strconv.FormatFloat(r.Actual, 'f', -1, 64),
			strconv.FormatFloat(r.Predicted, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
