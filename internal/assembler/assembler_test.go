package assembler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradingGuide/internal/model"
	"TradingGuide/internal/scaler"
)

func TestAssemble_DatesAndPrices(t *testing.T) {
	scaled, err := scaler.FitTransform([]float64{100, 110, 120})
	require.NoError(t, err)

	start := time.Date(2026, 3, 30, 15, 4, 5, 0, time.UTC)
	raw := make([]float64, 30)
	out := Assemble(raw, scaled.Params, start)

	require.Len(t, out, 30)
	assert.Equal(t, time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC), out[0].Date)
	// crosses a month boundary without gaps
	assert.Equal(t, time.Date(2026, 4, 28, 0, 0, 0, 0, time.UTC), out[29].Date)
	for i := 1; i < len(out); i++ {
		assert.True(t, out[i].Date.After(out[i-1].Date))
		assert.Equal(t, 24*time.Hour, out[i].Date.Sub(out[i-1].Date))
	}
	// zero in scaled units is the fitted mean
	assert.InDelta(t, 110, out[0].Price, 1e-9)
}

func TestAssemble_InverseScales(t *testing.T) {
	params := model.ScaleParams{ID: "run-1", Mean: 50, Std: 2}
	out := Assemble([]float64{-1, 0, 1.5}, params, time.Now())
	assert.Equal(t, []float64{48, 50, 53}, out.Prices())
}

func TestAssemble_UnfittedParamsPanic(t *testing.T) {
	assert.Panics(t, func() { Assemble([]float64{1}, model.ScaleParams{}, time.Now()) })
}

func TestAssembleN_LengthMismatchPanics(t *testing.T) {
	params := model.ScaleParams{ID: "x", Mean: 0, Std: 1}
	assert.Panics(t, func() { AssembleN(make([]float64, 29), params, time.Now(), 30) })
	assert.NotPanics(t, func() { AssembleN(make([]float64, 30), params, time.Now(), 30) })
}
