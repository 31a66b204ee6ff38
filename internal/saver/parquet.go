package saver

import (
	"github.com/parquet-go/parquet-go"
)

// ParquetExporter writes rows as a Parquet file.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string { return "parquet" }

func (ParquetExporter) Save(rows []Row, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return parquet.WriteFile(path, rows)
}
