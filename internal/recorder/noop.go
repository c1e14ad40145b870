package recorder

import (
	"TradingGuide/internal/capm"
	"TradingGuide/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.ForecastReport) error { return nil }
func (n *NoopRecorder) RecordFailure(_ *FailureEvent) error     { return nil }
func (n *NoopRecorder) RecordCAPM(_ []capm.Result, _ int) error { return nil }
func (n *NoopRecorder) Close() error                            { return nil }
