package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Diff([]float64{1, 2, 4, 7}))
	assert.Empty(t, Diff([]float64{5}))
	assert.Empty(t, Diff(nil))
}

func TestDiffN(t *testing.T) {
	values := []float64{1, 4, 9, 16, 25}
	assert.Equal(t, []float64{2, 2, 2}, DiffN(values, 2))
	assert.Equal(t, values, DiffN(values, 0))
	assert.Empty(t, DiffN(values, 5))
}

func TestIntegrate_InvertsDiff(t *testing.T) {
	full := []float64{3, 5, 4, 8, 13, 12, 20, 27}
	for d := 0; d <= 3; d++ {
		history := full[:5]
		// differences of the full series restricted to the continuation
		diffFull := DiffN(full, d)
		tail := diffFull[len(diffFull)-3:]
		got := Integrate(history, tail, d)
		assert.InDeltaSlice(t, full[5:], got, 1e-9, "d=%d", d)
	}
}
