package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"TradingGuide/internal/model"
)

// ADFResult is the outcome of an augmented Dickey-Fuller test with a constant.
type ADFResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	NObs      int
}

// ADF runs the augmented Dickey-Fuller unit-root test with a constant term.
// The lag order is chosen by AIC up to 12*(n/100)^(1/4). A small p-value
// rejects the unit root, i.e. indicates stationarity.
type ADF struct{}

// minADFObs is the shortest series for which the lagged regression has
// at least one residual degree of freedom.
const minADFObs = 4

// MinObservations returns the shortest series ADF accepts.
func (ADF) MinObservations() int { return minADFObs }

// PValue implements StationarityTester.
func (a ADF) PValue(values []float64) (float64, error) {
	res, err := a.Test(values)
	if err != nil {
		return 0, err
	}
	return res.PValue, nil
}

// Test runs the full test and returns the statistic alongside the p-value.
func (ADF) Test(values []float64) (*ADFResult, error) {
	n := len(values)
	if n < minADFObs {
		return nil, fmt.Errorf("adf needs %d observations, have %d: %w", minADFObs, n, model.ErrInsufficientData)
	}
	if isConstant(values) {
		return nil, fmt.Errorf("adf on constant series: %w", model.ErrDegenerateSeries)
	}

	maxLag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if limit := n/2 - 2; limit < maxLag {
		maxLag = limit
	}
	diff := Diff(values)

	// Pick the lag on a common sample so the AIC values are comparable.
	bestLag, bestAIC := 0, math.Inf(1)
	for lag := 0; lag <= maxLag; lag++ {
		x, y := adfDesign(values, diff, maxLag, lag)
		fit, err := ols(x, y)
		if err != nil {
			continue
		}
		if aic := fit.aic(); aic < bestAIC {
			bestLag, bestAIC = lag, aic
		}
	}

	x, y := adfDesign(values, diff, bestLag, bestLag)
	fit, err := ols(x, y)
	if err != nil {
		return nil, fmt.Errorf("adf regression: %w", err)
	}
	if fit.stdErr[1] == 0 || math.IsNaN(fit.stdErr[1]) {
		return nil, fmt.Errorf("adf regression has zero residual variance: %w", model.ErrDegenerateSeries)
	}
	tStat := fit.coef[1] / fit.stdErr[1]

	return &ADFResult{
		Statistic: tStat,
		PValue:    mackinnonPValue(tStat),
		Lags:      bestLag,
		NObs:      y.Len(),
	}, nil
}

// adfDesign builds the regression
//
//	Δy_t = α + β·y_{t-1} + Σ_{i=1..lag} γ_i·Δy_{t-i}
//
// over the sample that drops the first window differences.
func adfDesign(levels, diff []float64, window, lag int) (*mat.Dense, *mat.VecDense) {
	nObs := len(diff) - window
	k := 2 + lag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + window // index into diff
		y.SetVec(i, diff[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, levels[t])
		for j := 1; j <= lag; j++ {
			x.Set(i, 1+j, diff[t-j])
		}
	}
	return x, y
}

type olsFit struct {
	coef   []float64
	stdErr []float64
	sse    float64
	n, k   int
}

func (f *olsFit) aic() float64 {
	if f.sse <= 0 {
		return math.Inf(-1)
	}
	n := float64(f.n)
	return n*math.Log(f.sse/n) + 2*float64(f.k)
}

var errSingular = fmt.Errorf("singular design matrix: %w", model.ErrDegenerateSeries)

// ols fits y = Xβ by the normal equations.
func ols(x *mat.Dense, y *mat.VecDense) (*olsFit, error) {
	n, k := x.Dims()
	if n <= k {
		return nil, fmt.Errorf("ols with %d rows and %d regressors: %w", n, k, model.ErrInsufficientData)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errSingular
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, errSingular
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, errSingular
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	sse := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		sse += r * r
	}
	s2 := sse / float64(n-k)

	coef := make([]float64, k)
	se := make([]float64, k)
	for i := 0; i < k; i++ {
		coef[i] = beta.AtVec(i)
		se[i] = math.Sqrt(s2 * inv.At(i, i))
	}
	return &olsFit{coef: coef, stdErr: se, sse: sse, n: n, k: k}, nil
}

// MacKinnon (1994, updated 2010) response-surface coefficients for the
// constant-only regression with one series.
var (
	tauMaxC   = 2.74
	tauMinC   = -18.83
	tauStarC  = -1.61
	tauSmallC = []float64{2.1659, 1.4412, 0.038269}
	tauLargeC = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// mackinnonPValue maps an ADF statistic to its approximate p-value.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat > tauMaxC:
		return 1
	case stat < tauMinC:
		return 0
	}
	coef := tauLargeC
	if stat <= tauStarC {
		coef = tauSmallC
	}
	z, pow := 0.0, 1.0
	for _, c := range coef {
		z += c * pow
		pow *= stat
	}
	return distuv.UnitNormal.CDF(z)
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
