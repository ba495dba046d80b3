package centroid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalavg/tsdba/pkg/dtw"
)

func TestAddAndRefine(t *testing.T) {
	a := New(3)
	a.Add(0, 1.0)
	a.Add(0, 3.0)
	a.Add(1, 10.0)

	refined := a.Refine([]float64{0, 0, 5})
	assert.InDelta(t, 2.0, refined[0], 1e-9)
	assert.InDelta(t, 10.0, refined[1], 1e-9)
	assert.Equal(t, 5.0, refined[2], "zero-count index keeps previous value")
}

func TestAddPathSuppressesOpenRight(t *testing.T) {
	a := New(2)
	path := []dtw.PathCell{
		{Row: 0, Col: 0, Move: dtw.NIL},
		{Row: 1, Col: 1, Move: dtw.Diagonal},
		{Row: 1, Col: 2, Move: dtw.OpenRight},
	}
	member := []float64{10, 20, 999}

	a.AddPath(path, member, true)

	counts := a.Counts()
	assert.Equal(t, int64(1), counts[0])
	assert.Equal(t, int64(1), counts[1])
}

func TestAddPathFlippedAxisSwapsCentroidMemberRoles(t *testing.T) {
	a := New(2)
	path := []dtw.PathCell{
		{Row: 0, Col: 0, Move: dtw.NIL},
		{Row: 1, Col: 1, Move: dtw.Diagonal},
	}
	member := []float64{7, 8}

	// centroidOnRows=false: centroid index is the column, member index is
	// the row.
	a.AddPath(path, member, false)

	refined := a.Refine([]float64{0, 0})
	assert.InDelta(t, 7.0, refined[0], 1e-9)
	assert.InDelta(t, 8.0, refined[1], 1e-9)
}

func TestAccumulatorConcurrentAddsAreRaceFree(t *testing.T) {
	a := New(4)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			a.Add(n%4, 1.0)
		}(i)
	}
	wg.Wait()

	total := int64(0)
	for _, c := range a.Counts() {
		total += c
	}
	require.Equal(t, int64(200), total)
}
