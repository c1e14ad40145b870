// Package arima fits ARIMA(p,d,q) models by conditional sum of squares and
// produces multi-step point forecasts.
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"TradingGuide/internal/model"
	"TradingGuide/internal/stats"
)

// Fixed orders used by the dashboard forecast.
const (
	DefaultAR = 3
	DefaultMA = 3
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int // AR order
	D int // differencing order
	Q int // MA order
}

func (o Order) String() string { return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q) }

// Model is an ARIMA model. A Model is fitted once and then forecasts;
// it is not safe for concurrent Fit calls.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // phi, stationary by construction
	MACoeffs  []float64 // theta, invertible by construction
	Intercept float64   // mean of the differenced series; zero when D > 0
	Variance  float64   // residual variance
	AIC       float64
	Evals     int // objective evaluations used by the optimiser

	fitted    bool
	history   []float64
	diffData  []float64
	residuals []float64
}

// New creates an unfitted ARIMA model with the given order.
func New(p, d, q int) *Model {
	return &Model{
		Order:    Order{P: p, D: d, Q: q},
		ARCoeffs: make([]float64, p),
		MACoeffs: make([]float64, q),
	}
}

// MinObservations is the shortest input Fit accepts for this order.
func (m *Model) MinObservations() int {
	return m.Order.P + m.Order.Q + m.Order.D + 10
}

// Fit estimates the model on values. Every failure wraps model.ErrModelFit.
func (m *Model) Fit(values []float64) error {
	o := m.Order
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("invalid order %s: %w", o, model.ErrModelFit)
	}
	if len(values) < m.MinObservations() {
		return fmt.Errorf("order %s needs %d observations, have %d: %w",
			o, m.MinObservations(), len(values), model.ErrModelFit)
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite input: %w", model.ErrModelFit)
		}
	}

	w := stats.DiffN(values, o.D)
	mean, std := stat.PopMeanStdDev(w, nil)
	if !(std > 1e-10*math.Max(1, math.Abs(mean))) {
		return fmt.Errorf("differenced series (d=%d) is constant: %w", o.D, model.ErrModelFit)
	}

	m.history = append([]float64(nil), values...)
	m.diffData = w
	if err := m.fitCSS(mean); err != nil {
		return err
	}
	m.fitted = true
	return nil
}

// fitCSS minimises the conditional sum of squares over the
// reparameterised AR/MA coefficients (and the mean when D == 0).
func (m *Model) fitCSS(sampleMean float64) error {
	p, q := m.Order.P, m.Order.Q
	withMean := m.Order.D == 0
	y := m.diffData
	nEff := len(y) - p

	x0 := make([]float64, p+q, p+q+1)
	if p > 0 {
		centred := make([]float64, len(y))
		for i, v := range y {
			centred[i] = v - sampleMean
		}
		for i, r := range pacf(acf(centred, p)) {
			x0[i] = math.Atanh(clamp(r, 0.95))
		}
	}
	if withMean {
		x0 = append(x0, sampleMean)
	}
	if len(x0) == 0 {
		// white noise around zero: nothing to estimate
		m.residuals = make([]float64, len(y))
		m.finish(cssResiduals(y, nil, nil, 0, m.residuals))
		return nil
	}

	resid := make([]float64, len(y))
	objective := func(x []float64) float64 {
		ar, ma, mu := m.unpack(x, withMean)
		sse := cssResiduals(y, ar, ma, mu, resid)
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return math.Inf(1)
		}
		return sse / float64(nEff)
	}

	settings := &optimize.Settings{
		FuncEvaluations: 40000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 300,
		},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return fmt.Errorf("css optimisation: %v: %w", err, model.ErrModelFit)
	}
	if !converged(res.Status) {
		return fmt.Errorf("css optimisation did not converge (%v after %d evaluations): %w",
			res.Status, res.Stats.FuncEvaluations, model.ErrModelFit)
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return fmt.Errorf("css objective is not finite: %w", model.ErrModelFit)
	}

	ar, ma, mu := m.unpack(res.X, withMean)
	copy(m.ARCoeffs, ar)
	copy(m.MACoeffs, ma)
	m.Intercept = mu
	m.Evals = res.Stats.FuncEvaluations

	m.residuals = make([]float64, len(y))
	m.finish(cssResiduals(y, m.ARCoeffs, m.MACoeffs, m.Intercept, m.residuals))
	return nil
}

// finish derives the residual variance and AIC from the final SSE.
func (m *Model) finish(sse float64) {
	p, q := m.Order.P, m.Order.Q
	k := p + q
	if m.Order.D == 0 {
		k++
	}
	n := len(m.diffData) - p
	if dof := n - k; dof > 0 {
		m.Variance = sse / float64(dof)
	} else {
		m.Variance = sse / float64(n)
	}
	if sse > 0 {
		nf := float64(n)
		logLik := -nf / 2 * (math.Log(2*math.Pi) + math.Log(sse/nf) + 1)
		m.AIC = -2*logLik + 2*float64(k+1)
	} else {
		m.AIC = math.Inf(-1)
	}
}

func (m *Model) unpack(x []float64, withMean bool) (ar, ma []float64, mu float64) {
	p, q := m.Order.P, m.Order.Q
	ar = constrain(x[:p])
	ma = constrain(x[p : p+q])
	for i := range ma {
		ma[i] = -ma[i]
	}
	if withMean {
		mu = x[p+q]
	}
	return ar, ma, mu
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.FunctionThreshold,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}
	return false
}

// cssResiduals fills resid with one-step errors and returns their sum of
// squares. Pre-sample residuals are zero and the first p terms are skipped.
func cssResiduals(y, ar, ma []float64, mu float64, resid []float64) float64 {
	p, q := len(ar), len(ma)
	sse := 0.0
	for t := range y {
		if t < p {
			resid[t] = 0
			continue
		}
		pred := mu
		for i := 0; i < p; i++ {
			pred += ar[i] * (y[t-i-1] - mu)
		}
		for j := 0; j < q && t-j-1 >= 0; j++ {
			pred += ma[j] * resid[t-j-1]
		}
		resid[t] = y[t] - pred
		sse += resid[t] * resid[t]
	}
	return sse
}

// Forecast returns steps point forecasts on the scale of the fitted input,
// earliest first. Future shocks are set to their expectation, zero.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, errors.New("model must be fitted before forecasting")
	}
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}

	p, q := m.Order.P, m.Order.Q
	y := m.diffData
	n := len(y)
	mu := m.Intercept

	ext := make([]float64, n+steps)
	copy(ext, y)
	for h := 0; h < steps; h++ {
		t := n + h
		pred := mu
		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (ext[t-i-1] - mu)
		}
		for j := 0; j < q; j++ {
			if s := t - j - 1; s >= 0 && s < n {
				pred += m.MACoeffs[j] * m.residuals[s]
			}
		}
		ext[t] = pred
	}

	out := stats.Integrate(m.history, ext[n:], m.Order.D)
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("forecast is not finite: %w", model.ErrModelFit)
		}
	}
	return out, nil
}
