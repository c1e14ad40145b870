// Package assembler turns scaled model output into dated price forecasts.
package assembler

import (
	"time"

	"TradingGuide/internal/model"
	"TradingGuide/internal/scaler"
)

// Assemble inverse-scales raw forecasts with params and dates them on
// consecutive calendar days beginning at start's calendar day.
func Assemble(raw []float64, params model.ScaleParams, start time.Time) model.ForecastSeries {
	prices := scaler.InverseTransform(params, raw)
	if len(prices) != len(raw) {
		panic("assembler: inverse transform changed forecast length")
	}
	first := CalendarDay(start)
	out := make(model.ForecastSeries, len(prices))
	for i, p := range prices {
		out[i] = model.PricePoint{Date: first.AddDate(0, 0, i), Price: p}
	}
	return out
}

// AssembleN is Assemble with a length precondition; a mismatch is a
// programming error in the caller.
func AssembleN(raw []float64, params model.ScaleParams, start time.Time, horizon int) model.ForecastSeries {
	if len(raw) != horizon {
		panic("assembler: forecast length does not match horizon")
	}
	return Assemble(raw, params, start)
}

// CalendarDay truncates t to midnight in its own location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
