package stats

import (
	"fmt"

	"TradingGuide/internal/model"
)

// Defaults for the differencing-order search.
const (
	DefaultThreshold = 0.05
	DefaultMaxOrder  = 5
)

// StationarityTester is a unit-root test returning a p-value in [0,1];
// lower values mean stronger evidence of stationarity.
type StationarityTester interface {
	PValue(values []float64) (float64, error)
	MinObservations() int
}

// OrderResult reports the chosen differencing order.
type OrderResult struct {
	Order      int
	PValue     float64 // p-value of the last series actually tested
	Stationary bool    // PValue <= threshold
	Exhausted  bool    // differencing ran out of observations before the threshold or ceiling
}

// SelectOrder finds the smallest number of first differences that makes
// values stationary at threshold, capped at maxOrder. If differencing
// leaves too few observations to test, the search stops and returns the
// order reached so far with Exhausted set.
func SelectOrder(tester StationarityTester, values []float64, threshold float64, maxOrder int) (OrderResult, error) {
	if len(values) == 0 {
		return OrderResult{}, fmt.Errorf("order selection on empty series: %w", model.ErrInsufficientData)
	}
	if maxOrder < 0 {
		return OrderResult{}, fmt.Errorf("max order must be non-negative, got %d", maxOrder)
	}
	minObs := tester.MinObservations()
	if minObs < 1 {
		minObs = 1
	}

	p, err := tester.PValue(values)
	if err != nil {
		return OrderResult{}, fmt.Errorf("stationarity test at d=0: %w", err)
	}

	res := OrderResult{PValue: p}
	current := values
	for res.PValue > threshold && res.Order < maxOrder {
		res.Order++
		current = Diff(current)
		if len(current) < minObs {
			res.Exhausted = true
			break
		}
		p, err := tester.PValue(current)
		if err != nil {
			return OrderResult{}, fmt.Errorf("stationarity test at d=%d: %w", res.Order, err)
		}
		res.PValue = p
	}
	res.Stationary = res.PValue <= threshold
	return res, nil
}
