package stats

// Diff returns the first difference of values, dropping the leading
// undefined entry. The result is one shorter than the input, or empty.
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i] - values[i-1]
	}
	return out
}

// DiffN applies Diff d times.
func DiffN(values []float64, d int) []float64 {
	out := values
	for i := 0; i < d; i++ {
		out = Diff(out)
	}
	if d <= 0 {
		out = append([]float64(nil), values...)
	}
	return out
}

// Integrate undoes d rounds of differencing for a forecast continuation.
// history is the undifferenced series the forecasts continue; diffs are
// forecasts on the d-times differenced scale.
func Integrate(history, diffs []float64, d int) []float64 {
	out := append([]float64(nil), diffs...)
	if d <= 0 {
		return out
	}
	// last value of each differencing level 0..d-1
	lasts := make([]float64, d)
	level := history
	for k := 0; k < d; k++ {
		lasts[k] = level[len(level)-1]
		level = Diff(level)
	}
	for k := d - 1; k >= 0; k-- {
		prev := lasts[k]
		for i := range out {
			out[i] += prev
			prev = out[i]
		}
	}
	return out
}
