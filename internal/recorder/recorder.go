package recorder

import (
	"time"

	"TradingGuide/internal/capm"
	"TradingGuide/internal/model"
)

// FailureEvent records a forecast run that ended in an error.
type FailureEvent struct {
	Ticker  string
	Stage   string
	Kind    string // model.Kind of the error
	Message string
	At      time.Time
}

// Recorder persists run history for later analysis. Nothing it stores is
// read back by the forecasting pipeline.
type Recorder interface {
	RecordRun(report *model.ForecastReport) error
	RecordFailure(evt *FailureEvent) error
	RecordCAPM(results []capm.Result, years int) error
	Close() error
}
