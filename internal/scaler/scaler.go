// Package scaler standardises series to zero mean and unit variance and
// maps model output back to price units.
package scaler

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"TradingGuide/internal/model"
)

// relTol guards against float noise on series that are constant in practice.
const relTol = 1e-12

// FitTransform computes the population mean and standard deviation of
// values and returns the standardised series with those parameters.
func FitTransform(values []float64) (model.ScaledSeries, error) {
	if len(values) == 0 {
		return model.ScaledSeries{}, fmt.Errorf("scale empty series: %w", model.ErrInsufficientData)
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if math.IsNaN(std) || std <= relTol*math.Max(1, math.Abs(mean)) {
		return model.ScaledSeries{}, fmt.Errorf("standard deviation is zero: %w", model.ErrDegenerateSeries)
	}

	params := model.ScaleParams{ID: uuid.NewString(), Mean: mean, Std: std}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return model.ScaledSeries{Values: out, Params: params}, nil
}

// InverseTransform maps standardised values back to original units.
// params must come from FitTransform; unfitted params are a programming error.
func InverseTransform(params model.ScaleParams, values []float64) []float64 {
	if !params.Fitted() {
		panic("scaler: inverse transform with unfitted params")
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*params.Std + params.Mean
	}
	return out
}
