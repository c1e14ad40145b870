package calculator

import (
	"fmt"

	"TradingGuide/internal/model"
)

// DefaultWindow is the rolling window used to denoise closing prices.
const DefaultWindow = 7

// RollingMean returns the full-window simple moving averages of series.
// Each output point is dated at the last day of its window, so the result
// is window-1 points shorter than the input.
func RollingMean(series model.PriceSeries, window int) (model.PriceSeries, error) {
	if window <= 0 {
		return model.PriceSeries{}, fmt.Errorf("window must be positive, got %d", window)
	}
	if series.Len() < window {
		return model.PriceSeries{}, fmt.Errorf("rolling mean needs %d points, have %d: %w",
			window, series.Len(), model.ErrInsufficientData)
	}

	closes := series.Values()
	points := make([]model.PricePoint, 0, len(closes)-window+1)
	for end := window; end <= len(closes); end++ {
		sma, err := CalculateSMA(closes[:end], window)
		if err != nil {
			return model.PriceSeries{}, err
		}
		points = append(points, model.PricePoint{Date: series.Points[end-1].Date, Price: sma})
	}
	return model.PriceSeries{Symbol: series.Symbol, Points: points, FetchedAt: series.FetchedAt}, nil
}

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(prices) < period {
		return 0, fmt.Errorf("SMA needs %d prices, have %d: %w", period, len(prices), model.ErrInsufficientData)
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}
