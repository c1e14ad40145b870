package model

import (
	"errors"
	"fmt"
)

// Error kinds raised by the forecasting pipeline. Match them with errors.Is.
var (
	ErrNoData           = errors.New("no data returned by provider")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerateSeries = errors.New("degenerate series")
	ErrModelFit         = errors.New("model fit failed")
)

// Stage names a pipeline step.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StageSmooth     Stage = "smooth"
	StageStationary Stage = "stationarity"
	StageScale      Stage = "scale"
	StageEvaluate   Stage = "evaluate"
	StageForecast   Stage = "forecast"
	StageAssemble   Stage = "assemble"
)

// PipelineError records which stage failed for which ticker.
type PipelineError struct {
	Stage  Stage
	Ticker string
	Err    error
}

func (e *PipelineError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Ticker, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError wraps err with stage and ticker context.
func NewPipelineError(stage Stage, ticker string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Ticker: ticker, Err: err}
}

// IsTransient reports whether err is a fetch failure that is not a
// definitive empty answer from the provider, i.e. worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Stage != StageFetch {
		return false
	}
	return !errors.Is(err, ErrNoData) &&
		!errors.Is(err, ErrInsufficientData) &&
		!errors.Is(err, ErrDegenerateSeries) &&
		!errors.Is(err, ErrModelFit)
}

// Kind returns a short label for the error kind, used by recorders and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrDegenerateSeries):
		return "degenerate_series"
	case errors.Is(err, ErrModelFit):
		return "model_fit"
	default:
		return "transient"
	}
}
