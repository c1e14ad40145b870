package calculator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradingGuide/internal/model"
)

func seriesOf(values ...float64) model.PriceSeries {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, len(values))
	for i, v := range values {
		points[i] = model.PricePoint{Date: base.AddDate(0, 0, i), Price: v}
	}
	return model.PriceSeries{Symbol: "TEST", Points: points}
}

func randomWalk(n int, seed int64) model.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	p := 100.0
	for i := range values {
		p += rng.NormFloat64()
		if p < 1 {
			p = 1
		}
		values[i] = p
	}
	return seriesOf(values...)
}

func TestRollingMean_Values(t *testing.T) {
	out, err := RollingMean(seriesOf(1, 2, 3, 4, 5), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, out.Values())
	assert.Equal(t, "TEST", out.Symbol)
}

func TestRollingMean_DatesAreWindowEnds(t *testing.T) {
	in := seriesOf(1, 2, 3, 4, 5, 6, 7, 8)
	out, err := RollingMean(in, DefaultWindow)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, in.Points[6].Date, out.Points[0].Date)
	assert.Equal(t, in.Points[7].Date, out.Points[1].Date)
	assert.NoError(t, out.Validate())
}

func TestRollingMean_Length(t *testing.T) {
	for _, n := range []int{7, 8, 30, 200} {
		out, err := RollingMean(randomWalk(n, int64(n)), 7)
		require.NoError(t, err)
		assert.Equal(t, n-7+1, out.Len(), "n=%d", n)
	}
}

func TestRollingMean_RandomWalk200(t *testing.T) {
	out, err := RollingMean(randomWalk(200, 42), DefaultWindow)
	require.NoError(t, err)
	assert.Equal(t, 194, out.Len())
}

func TestRollingMean_Insufficient(t *testing.T) {
	_, err := RollingMean(seriesOf(1, 2, 3), 7)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = RollingMean(model.PriceSeries{}, 7)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestRollingMean_BadWindow(t *testing.T) {
	_, err := RollingMean(seriesOf(1, 2, 3), 0)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInsufficientData)
}

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		prices []float64
		period int
		want   float64
	}{
		{[]float64{1, 2, 3}, 3, 2},
		{[]float64{1, 2, 3, 10}, 2, 6.5},
		{[]float64{5}, 1, 5},
	}
	for _, tt := range tests {
		got, err := CalculateSMA(tt.prices, tt.period)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12)
	}
	_, err := CalculateSMA([]float64{1}, 2)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}
