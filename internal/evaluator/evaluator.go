// Package evaluator measures forecast accuracy on a held-out tail.
package evaluator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"TradingGuide/internal/arima"
	"TradingGuide/internal/model"
)

// DefaultHorizon is the number of held-out observations.
const DefaultHorizon = 30

// Evaluate fits forecaster on all but the last horizon values with
// differencing order d, forecasts horizon steps and returns the RMSE
// against the held-out tail, rounded to 2 decimal places.
func Evaluate(forecaster arima.SeriesForecaster, values []float64, d, horizon int) (float64, error) {
	if horizon < 1 {
		return 0, fmt.Errorf("horizon must be at least 1, got %d", horizon)
	}
	if len(values) <= horizon {
		return 0, fmt.Errorf("evaluation needs more than %d points, have %d: %w",
			horizon, len(values), model.ErrInsufficientData)
	}
	split := len(values) - horizon
	train, test := values[:split], values[split:]

	fitted, err := forecaster.Fit(train, d)
	if err != nil {
		return 0, fmt.Errorf("fit training split: %w", err)
	}
	pred, err := fitted.Forecast(horizon)
	if err != nil {
		return 0, fmt.Errorf("forecast test split: %w", err)
	}
	rmse, err := RMSE(test, pred)
	if err != nil {
		return 0, err
	}
	return Round2(rmse), nil
}

// RMSE returns the root-mean-squared error between actual and predicted.
func RMSE(actual, predicted []float64) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("rmse length mismatch: %d actual, %d predicted", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return 0, fmt.Errorf("rmse of empty series: %w", model.ErrInsufficientData)
	}
	sum := 0.0
	for i := range actual {
		e := actual[i] - predicted[i]
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(actual))), nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
