package arima

// Fitted is a model ready to produce forecasts.
type Fitted interface {
	Forecast(steps int) ([]float64, error)
}

// SeriesForecaster fits a model with differencing order d to values.
type SeriesForecaster interface {
	Fit(values []float64, d int) (Fitted, error)
}

// Estimator fits ARIMA(P,d,Q) models with fixed AR and MA orders.
type Estimator struct {
	P, Q int
}

// NewEstimator returns an Estimator for ARIMA(p,d,q).
func NewEstimator(p, q int) Estimator {
	return Estimator{P: p, Q: q}
}

// Fit implements SeriesForecaster.
func (e Estimator) Fit(values []float64, d int) (Fitted, error) {
	m := New(e.P, d, e.Q)
	if err := m.Fit(values); err != nil {
		return nil, err
	}
	return m, nil
}
