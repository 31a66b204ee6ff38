package recorder

import (
	"errors"

	"StockPredictor/internal/model"
)

// ErrNotFound is returned by GetRun for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Recorder persists prediction runs for later inspection.
type Recorder interface {
	// RecordRun stores rec and its points. An empty ID is filled in.
	RecordRun(rec *model.RunRecord) error
	// ListRuns returns the newest runs first. limit <= 0 means no limit.
	ListRuns(limit int) ([]model.RunSummary, error)
	GetRun(id string) (*model.RunRecord, error)
	Close() error
}
