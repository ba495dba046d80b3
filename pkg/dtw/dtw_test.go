package dtw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRejectsEmptySequence(t *testing.T) {
	_, err := Compute(nil, []float64{1}, Options{})
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = Compute([]float64{1}, nil, Options{})
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestComputeIdenticalSequencesZeroDistance(t *testing.T) {
	x := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	y := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	a, err := Compute(x, y, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.Distance)
}

// E2: [1,2,3,4] vs [1,1,2,3,3,4] with open_end=false should align with
// zero cost: the longer sequence stretches onto repeated values exactly.
func TestComputeStretchAlignmentZeroCost(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{1, 1, 2, 3, 3, 4}

	a, err := Compute(x, y, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.Distance)
	assert.Equal(t, 5, a.EndRow)
	assert.Equal(t, 3, a.EndCol)
}

func TestComputeAnchorAlwaysNIL(t *testing.T) {
	a, err := Compute([]float64{1, 2, 3}, []float64{4, 5}, Options{})
	require.NoError(t, err)
	assert.Equal(t, NIL, a.Step[0][0])
}

func TestComputeOpenStartZeroesRowZero(t *testing.T) {
	a, err := Compute([]float64{1, 2, 3}, []float64{9, 9}, Options{OpenStart: true})
	require.NoError(t, err)
	for j := 0; j < 3; j++ {
		assert.Equal(t, 0.0, a.Cost[0][j])
	}
	assert.Equal(t, NIL, a.Step[0][0])
	assert.Equal(t, NilOpenRight, a.Step[0][1])
	assert.Equal(t, NilOpenRight, a.Step[0][2])
}

func TestComputeOpenEndPicksCheapestRowOnLastColumn(t *testing.T) {
	// y's tail drifts away from x; an open-end alignment should stop
	// before consuming the drifting tail rather than paying for it.
	x := []float64{1, 2, 3}
	y := []float64{1, 2, 3, 100, 200}

	a, err := Compute(x, y, Options{OpenEnd: true})
	require.NoError(t, err)
	assert.Less(t, a.EndRow, len(y)-1)
	assert.Equal(t, NilOpenRight, a.Step[a.EndRow][a.EndCol])
}

func TestComputeOpenEndTagsCoastingTailOpenRight(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{1, 2, 3, 100, 200}

	a, err := Compute(x, y, Options{OpenEnd: true})
	require.NoError(t, err)

	sawOpenRight := false
	for r := a.EndRow + 1; r < len(y); r++ {
		if a.Step[r][a.EndCol] == OpenRight {
			sawOpenRight = true
		}
		assert.NotEqual(t, Right, a.Step[r][a.EndCol], "RIGHT beyond the chosen end must be relabeled OPEN_RIGHT")
	}
	assert.True(t, sawOpenRight)
}

func TestBacktraceReachesAnchorWithinWPlusHSteps(t *testing.T) {
	x := []float64{1, 5, 2, 9, 3}
	y := []float64{4, 1, 6, 2}

	a, err := Compute(x, y, Options{})
	require.NoError(t, err)

	path, err := Backtrace(a.Step, a.EndRow, a.EndCol, len(x)+len(y))
	require.NoError(t, err)
	require.NotEmpty(t, path)

	assert.Equal(t, PathCell{Row: 0, Col: 0, Move: NIL}, path[0])
	last := path[len(path)-1]
	assert.Equal(t, a.EndRow, last.Row)
	assert.Equal(t, a.EndCol, last.Col)
}

func TestBacktraceOpenStartTerminatesAtNilOpenRight(t *testing.T) {
	x := []float64{1, 2, 3}
	y := []float64{9, 9}

	a, err := Compute(x, y, Options{OpenStart: true})
	require.NoError(t, err)

	path, err := Backtrace(a.Step, a.EndRow, a.EndCol, len(x)+len(y))
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, NilOpenRight, path[0].Move)
}

func TestBacktraceMonotonicCoordinates(t *testing.T) {
	x := []float64{1, 5, 2, 9, 3, 7}
	y := []float64{4, 1, 6, 2, 8}

	a, err := Compute(x, y, Options{})
	require.NoError(t, err)

	path, err := Backtrace(a.Step, a.EndRow, a.EndCol, len(x)+len(y))
	require.NoError(t, err)

	for i := 1; i < len(path); i++ {
		assert.GreaterOrEqual(t, path[i].Row, path[i-1].Row)
		assert.GreaterOrEqual(t, path[i].Col, path[i-1].Col)
		assert.True(t, path[i].Row > path[i-1].Row || path[i].Col > path[i-1].Col)
	}
}

func TestBacktraceInvariantViolationOnTooFewSteps(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	a, err := Compute(x, y, Options{})
	require.NoError(t, err)

	_, err = Backtrace(a.Step, a.EndRow, a.EndCol, 1)
	require.Error(t, err)
	var invErr *BacktraceInvariantError
	assert.ErrorAs(t, err, &invErr)
}

func TestBacktraceInvariantViolationOnCorruptStepMatrix(t *testing.T) {
	step := [][]Step{
		{NIL, Right},
		{Up, Step(99)},
	}
	_, err := Backtrace(step, 1, 1, 10)
	require.Error(t, err)
	var invErr *BacktraceInvariantError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, Step(99), invErr.Move)
}

func TestSymmetryOfDistance(t *testing.T) {
	x := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	y := []float64{2, 7, 1, 8, 2, 8, 1}

	forward, err := Compute(x, y, Options{})
	require.NoError(t, err)
	backward, err := Compute(y, x, Options{})
	require.NoError(t, err)

	assert.InDelta(t, forward.Distance, backward.Distance, 1e-9)
}
