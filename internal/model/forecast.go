package model

import "time"

// ScaleParams are the fitted standardisation parameters. ID ties them to
// the fit that produced them; a zero ID means the params were never fitted.
type ScaleParams struct {
	ID   string
	Mean float64
	Std  float64
}

// Fitted reports whether the params came from a fit.
func (p ScaleParams) Fitted() bool { return p.ID != "" && p.Std > 0 }

// ScaledSeries is a standardised run of values together with the
// parameters needed to map them back to price units.
type ScaledSeries struct {
	Values []float64
	Params ScaleParams
}

// Len returns the number of scaled values.
func (s ScaledSeries) Len() int { return len(s.Values) }

// ForecastSeries is a run of predicted prices, one per consecutive calendar day.
type ForecastSeries []PricePoint

// Prices returns the forecast prices in order.
func (f ForecastSeries) Prices() []float64 {
	out := make([]float64, len(f))
	for i, p := range f {
		out[i] = p.Price
	}
	return out
}

// ForecastReport is the full result of one pipeline run.
type ForecastReport struct {
	RunID       string
	Ticker      string
	GeneratedAt time.Time
	History     PriceSeries // smoothed prices the model was fitted on
	Order       int         // differencing order d
	Stationary  bool        // false when the order search stopped before the threshold was met
	RMSE        float64     // held-out error, scaled units, 2 decimals
	Forecast    ForecastSeries
}
