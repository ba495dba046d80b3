package allpairs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalavg/tsdba/pkg/device"
	"github.com/signalavg/tsdba/pkg/seqset"
)

func TestMatrixIndexSymmetric(t *testing.T) {
	m := NewMatrix(4)
	m.Set(0, 3, 5.0)
	assert.Equal(t, 5.0, m.At(0, 3))
	assert.Equal(t, 5.0, m.At(3, 0))
	assert.Equal(t, 0.0, m.At(2, 2))
}

func TestMatrixNormalizedRemapsZeroMax(t *testing.T) {
	m := NewMatrix(3)
	normalized := m.Normalized()
	for i := range normalized {
		for j := range normalized[i] {
			assert.Equal(t, 0.0, normalized[i][j])
		}
	}
}

func TestComputeIdenticalSequencesAllZero(t *testing.T) {
	set := &seqset.Set{
		Sequences: [][]float64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}},
		Names:     []string{"a", "b", "c"},
	}
	mgr := device.NewManager(1, 1<<30, 2)
	defer mgr.Close()

	matrix, err := Compute(set, mgr, Options{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, 0.0, matrix.At(i, j))
		}
	}
	assert.Equal(t, 0.0, matrix.Max)
}

// I1: D(i,j) = D(j,i), diagonal = 0.
func TestComputeIsSymmetric(t *testing.T) {
	set := &seqset.Set{
		Sequences: [][]float64{{1, 2, 3}, {3, 2, 1}, {1, 1, 1, 1}},
		Names:     []string{"a", "b", "c"},
	}
	mgr := device.NewManager(2, 1<<30, 2)
	defer mgr.Close()

	matrix, err := Compute(set, mgr, Options{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, matrix.At(i, i))
		for j := i + 1; j < 3; j++ {
			assert.Equal(t, matrix.At(i, j), matrix.At(j, i))
		}
	}
}

func TestComputeSingleSequenceNoPairs(t *testing.T) {
	set := &seqset.Set{Sequences: [][]float64{{1, 2, 3}}, Names: []string{"only"}}
	mgr := device.NewManager(1, 1<<30, 1)
	defer mgr.Close()

	matrix, err := Compute(set, mgr, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, len(matrix.Flat))
}
