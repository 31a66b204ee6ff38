package recorder

import "StockPredictor/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.RunRecord) error         { return nil }
func (n *NoopRecorder) ListRuns(_ int) ([]model.RunSummary, error) { return []model.RunSummary{}, nil }
func (n *NoopRecorder) GetRun(_ string) (*model.RunRecord, error)  { return nil, ErrNotFound }
func (n *NoopRecorder) Close() error                               { return nil }
