package saver

import (
	"encoding/json"
	"os"
)

// JSONExporter writes rows as an indented JSON array.
type JSONExporter struct{}

func (JSONExporter) Extension() string { return "json" }

func (JSONExporter) Save(rows []Row, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
