// Package saver writes prediction results to disk in tabular formats.
package saver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Exporter persists prediction rows to a single file.
type Exporter interface {
	Save(rows []Row, path string) error
	Extension() string
}

// Formats lists the accepted NewExporter formats.
var Formats = []string{"csv", "json", "parquet", "xlsx"}

// NewExporter returns the implementation for format, or nil if it is not supported.
func NewExporter(format string) Exporter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVExporter{}
	case "json":
		return JSONExporter{}
	case "parquet":
		return ParquetExporter{}
	case "xlsx", "excel":
		return XLSXExporter{}
	default:
		return nil
	}
}

// PathFor swaps the extension of path for the exporter's.
func PathFor(e Exporter, path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "." + e.Extension()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	return nil
}
