package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxAbsDiff(t *testing.T) {
	got := MaxAbsDiff([]float64{0, 5, -3}, []float64{1, 5, 4})
	assert.Equal(t, 7.0, got)
}

func TestMeanStdDev(t *testing.T) {
	v := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(v), 1e-9)
	assert.InDelta(t, 2.0, StdDev(v), 1e-9)
}

func TestPrefixSumSquared(t *testing.T) {
	out := PrefixSumSquared([]float64{1, 2, 3}, 0)
	require.Len(t, out, 3)
	assert.Equal(t, []float64{1, 5, 14}, out)
}

func TestRescale(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5}
	out := Rescale(v, 10, 2)
	assert.InDelta(t, 10.0, Mean(out), 1e-9)
	assert.InDelta(t, 2.0, StdDev(out), 1e-9)
}

func TestRescaleConstantInput(t *testing.T) {
	out := Rescale([]float64{3, 3, 3}, 9, 4)
	for _, x := range out {
		assert.Equal(t, 9.0, x)
	}
}
