package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single daily bar as returned by a market-data provider.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PricePoint is one (date, price) observation.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// PriceSeries is an ordered run of daily prices for one symbol.
// Dates are strictly increasing and prices positive.
type PriceSeries struct {
	Symbol    string
	Points    []PricePoint
	FetchedAt time.Time
}

// Len returns the number of observations.
func (s PriceSeries) Len() int { return len(s.Points) }

// Values returns a copy of the prices in date order.
func (s PriceSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Dates returns a copy of the dates in order.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Date
	}
	return out
}

// Last returns the final observation. It panics on an empty series.
func (s PriceSeries) Last() PricePoint { return s.Points[len(s.Points)-1] }

// Validate checks the increasing-date and positive-price invariants.
func (s PriceSeries) Validate() error {
	for i, p := range s.Points {
		if !(p.Price > 0) {
			return fmt.Errorf("%s: non-positive price %v at %s", s.Symbol, p.Price, p.Date.Format("2006-01-02"))
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("%s: dates not strictly increasing at %s", s.Symbol, p.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// SeriesFromBars builds a close-price series from provider bars.
// Bars must already be sorted and de-duplicated.
func SeriesFromBars(symbol string, bars []OHLCV, fetchedAt time.Time) PriceSeries {
	points := make([]PricePoint, len(bars))
	for i, b := range bars {
		points[i] = PricePoint{Date: b.Time, Price: b.Close}
	}
	return PriceSeries{Symbol: symbol, Points: points, FetchedAt: fetchedAt}
}
