package arima

import "math"

// constrain maps unconstrained reals to the coefficients of a stationary
// autoregressive polynomial: each value becomes a partial autocorrelation
// in (-1,1) via tanh, then the Durbin-Levinson recursion builds the
// coefficients.
func constrain(raw []float64) []float64 {
	phi := make([]float64, len(raw))
	prev := make([]float64, len(raw))
	for k, x := range raw {
		r := math.Tanh(x)
		copy(prev, phi[:k])
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - r*prev[k-1-j]
		}
		phi[k] = r
	}
	return phi
}

// acf returns autocorrelations at lags 0..maxLag of a centred series.
func acf(centred []float64, maxLag int) []float64 {
	denom := 0.0
	for _, v := range centred {
		denom += v * v
	}
	out := make([]float64, maxLag+1)
	if denom == 0 {
		return out
	}
	for lag := 0; lag <= maxLag && lag < len(centred); lag++ {
		num := 0.0
		for t := lag; t < len(centred); t++ {
			num += centred[t] * centred[t-lag]
		}
		out[lag] = num / denom
	}
	return out
}

// pacf runs the Levinson-Durbin recursion on autocorrelations and returns
// the partial autocorrelations at lags 1..len(r)-1.
func pacf(r []float64) []float64 {
	order := len(r) - 1
	out := make([]float64, order)
	phi := make([]float64, order)
	prev := make([]float64, order)
	v := 1.0
	for k := 0; k < order; k++ {
		num := r[k+1]
		for j := 0; j < k; j++ {
			num -= phi[j] * r[k-j]
		}
		if v <= 0 {
			break
		}
		a := num / v
		copy(prev, phi[:k])
		for j := 0; j < k; j++ {
			phi[j] = prev[j] - a*prev[k-1-j]
		}
		phi[k] = a
		out[k] = a
		v *= 1 - a*a
	}
	return out
}

func clamp(x, bound float64) float64 {
	return math.Max(-bound, math.Min(bound, x))
}
