// Package capm compares stocks against a market index with the capital
// asset pricing model.
package capm

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"TradingGuide/internal/model"
)

// TradingDays annualises mean daily returns.
const TradingDays = 252

// Row is one date present in both the stock and the index series.
type Row struct {
	Date   time.Time
	Stock  float64
	Market float64
}

// Merge inner-joins stock and index on calendar date.
func Merge(stock, index model.PriceSeries) []Row {
	market := make(map[time.Time]float64, index.Len())
	for _, p := range index.Points {
		market[dateKey(p.Date)] = p.Price
	}
	rows := make([]Row, 0, stock.Len())
	for _, p := range stock.Points {
		if m, ok := market[dateKey(p.Date)]; ok {
			rows = append(rows, Row{Date: dateKey(p.Date), Stock: p.Price, Market: m})
		}
	}
	return rows
}

func dateKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DailyReturns returns the simple period-over-period returns of prices.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}

// Beta is the covariance of stock and market returns over the market variance.
func Beta(stockReturns, marketReturns []float64) (float64, error) {
	if len(stockReturns) != len(marketReturns) {
		return 0, fmt.Errorf("beta: length mismatch %d vs %d", len(stockReturns), len(marketReturns))
	}
	if len(stockReturns) < 2 {
		return 0, fmt.Errorf("beta needs at least 2 returns: %w", model.ErrInsufficientData)
	}
	v := stat.Variance(marketReturns, nil)
	if v == 0 || math.IsNaN(v) {
		return 0, fmt.Errorf("market returns have zero variance: %w", model.ErrDegenerateSeries)
	}
	return stat.Covariance(stockReturns, marketReturns, nil) / v, nil
}

// AnnualReturn annualises the mean of daily returns.
func AnnualReturn(daily []float64) float64 {
	if len(daily) == 0 {
		return 0
	}
	return stat.Mean(daily, nil) * TradingDays
}

// ExpectedReturn is rf + beta*(marketAnnual - rf).
func ExpectedReturn(beta, rf, marketAnnual float64) float64 {
	return rf + beta*(marketAnnual-rf)
}

// Result is the CAPM summary for one stock.
type Result struct {
	Ticker         string
	Beta           float64
	ExpectedReturn float64 // annual, as a fraction
	Observations   int
}

// Compute joins stock with index and derives beta and the expected return.
func Compute(stock, index model.PriceSeries, rf float64) (Result, error) {
	rows := Merge(stock, index)
	s := make([]float64, len(rows))
	m := make([]float64, len(rows))
	for i, r := range rows {
		s[i], m[i] = r.Stock, r.Market
	}
	sr, mr := DailyReturns(s), DailyReturns(m)
	beta, err := Beta(sr, mr)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", stock.Symbol, err)
	}
	return Result{
		Ticker:         stock.Symbol,
		Beta:           beta,
		ExpectedReturn: ExpectedReturn(beta, rf, AnnualReturn(mr)),
		Observations:   len(rows),
	}, nil
}
