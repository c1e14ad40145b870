package stats

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"TradingGuide/internal/model"
)

func whiteNoise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}
	return out
}

func randomWalk(n int, seed int64) []float64 {
	steps := whiteNoise(n, seed)
	out := make([]float64, n)
	level := 100.0
	for i, s := range steps {
		level += s
		out[i] = level
	}
	return out
}

func TestADF_WhiteNoiseIsStationary(t *testing.T) {
	res, err := ADF{}.Test(whiteNoise(300, 1))
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.01)
	assert.Less(t, res.Statistic, -3.43)
}

func TestADF_RandomWalkIsNot(t *testing.T) {
	nonStationary := 0
	for seed := int64(0); seed < 10; seed++ {
		res, err := ADF{}.Test(randomWalk(300, seed))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Lags, 0)
		if res.PValue > 0.05 {
			nonStationary++
		}
	}
	assert.GreaterOrEqual(t, nonStationary, 7)
}

func TestADF_PValueInUnitInterval(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		p, err := ADF{}.PValue(randomWalk(120, seed))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestADF_Errors(t *testing.T) {
	_, err := ADF{}.Test([]float64{1, 2, 3})
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	constant := make([]float64, 30)
	for i := range constant {
		constant[i] = 5
	}
	_, err = ADF{}.Test(constant)
	assert.ErrorIs(t, err, model.ErrDegenerateSeries)
}

func TestMackinnonPValue(t *testing.T) {
	tests := []struct {
		stat, want, tol float64
	}{
		{-2.86, 0.05, 0.005},
		{-3.43, 0.01, 0.003},
		{-20, 0, 0},
		{3, 1, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, mackinnonPValue(tt.stat), tt.tol, "stat=%v", tt.stat)
	}
	// monotone in the statistic
	prev := 0.0
	for s := -6.0; s < 2.5; s += 0.25 {
		p := mackinnonPValue(s)
		assert.GreaterOrEqual(t, p, prev-1e-12)
		prev = p
	}
	assert.False(t, math.IsNaN(mackinnonPValue(-1.61)))
}

func TestADF_ReportsSampleSize(t *testing.T) {
	res, err := ADF{}.Test(randomWalk(300, 3))
	require.NoError(t, err)
	assert.Greater(t, res.NObs, 250)
	assert.LessOrEqual(t, res.NObs+res.Lags, 299)
}

func TestOLS_SingularDesignIsDegenerate(t *testing.T) {
	// second regressor is identically zero
	x := mat.NewDense(6, 2, []float64{1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0})
	y := mat.NewVecDense(6, []float64{1, 2, 3, 4, 5, 6})
	_, err := ols(x, y)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDegenerateSeries)
	assert.Equal(t, "degenerate_series", model.Kind(fmt.Errorf("adf regression: %w", err)))
}
