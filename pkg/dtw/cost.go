// Package dtw implements the White-Neely DTW cost recurrence and its
// backtrace (spec §4.A/§4.B): the core the rest of the engine builds on.
// The full-matrix Compute here plays the role of a single swath pass with
// T == W — pkg/striped drives it one swath at a time when the complete
// step matrix won't fit in the configured memory budget.
//
// Grounded on other_examples/stdio2016-qbsh__dtw_noasm.go's rotating
// three-slot cost-column pattern and katalvlaran-lvlath/dtw's full-matrix
// recurrence, generalized here to open boundaries and step-code emission.
package dtw

import (
	"errors"

	"github.com/signalavg/tsdba/pkg/numeric"
)

// ErrEmptySequence is returned when either input sequence has zero length.
var ErrEmptySequence = errors.New("dtw: input sequences must be non-empty")

// Options controls the alignment boundary conditions of spec §4.A.
type Options struct {
	OpenStart bool
	OpenEnd   bool
}

// Alignment is the result of a full cost-matrix computation: the cost and
// step matrices (H rows indexed by Y, W columns indexed by X), the final
// distance, and the coordinates backtrace should start from.
type Alignment struct {
	X, Y     []float64
	Cost     [][]float64
	Step     [][]Step
	Distance float64
	EndRow   int
	EndCol   int
}

// Compute runs the full White-Neely recurrence over X (width axis, length
// W) and Y (height axis, length H):
//
//	cost(j,h) = (X[j]-Y[h])^2 + min(cost(j-1,h-1), cost(j-1,h), cost(j,h-1))
//
// with ties broken DIAGONAL < RIGHT < UP. Row 0 is governed by OpenStart
// (zero if set, else a running prefix-sum against Y[0]); column 0 is
// governed by OpenEnd, symmetrically, per spec §4.A.
func Compute(x, y []float64, opts Options) (*Alignment, error) {
	w, h := len(x), len(y)
	if w == 0 || h == 0 {
		return nil, ErrEmptySequence
	}

	cost := make([][]float64, h)
	step := make([][]Step, h)
	for r := 0; r < h; r++ {
		cost[r] = make([]float64, w)
		step[r] = make([]Step, w)
	}

	sqDiff := func(j, r int) float64 {
		d := x[j] - y[r]
		return d * d
	}

	// Row 0 (h=0): governed by OpenStart. The closed-boundary run is a
	// single prefix sum of squared differences against Y[0].
	if opts.OpenStart {
		for j := 0; j < w; j++ {
			cost[0][j] = 0
			if j == 0 {
				step[0][j] = NIL
			} else {
				step[0][j] = NilOpenRight
			}
		}
	} else {
		prefix := numeric.PrefixSumSquared(x, y[0])
		for j := 0; j < w; j++ {
			cost[0][j] = prefix[j]
			if j == 0 {
				step[0][j] = NIL
			} else {
				step[0][j] = Right
			}
		}
	}

	// Column 0 (j=0, h>0): governed by OpenEnd, symmetrically.
	if opts.OpenEnd {
		for r := 1; r < h; r++ {
			cost[r][0] = 0
			step[r][0] = NilOpenRight
		}
	} else if h > 1 {
		prefix := numeric.PrefixSumSquared(y, x[0])
		for r := 1; r < h; r++ {
			cost[r][0] = prefix[r]
			step[r][0] = Up
		}
	}
	// The row-0 and column-0 loops each only touch the anchor corner under
	// their own flag; patch it here for the OpenEnd-only case, which the
	// row-0 loop (running with OpenStart=false) leaves at the standard
	// (non-zero) corner value.
	if opts.OpenEnd && !opts.OpenStart {
		cost[0][0] = 0
		step[0][0] = NIL
	}

	for r := 1; r < h; r++ {
		for j := 1; j < w; j++ {
			diag := cost[r-1][j-1]
			right := cost[r][j-1]
			up := cost[r-1][j]

			best := diag
			bestStep := Diagonal
			if right < best {
				best = right
				bestStep = Right
			}
			if up < best {
				best = up
				bestStep = Up
			}
			cost[r][j] = sqDiff(j, r) + best
			step[r][j] = bestStep
		}
	}

	a := &Alignment{X: x, Y: y, Cost: cost, Step: step, EndRow: h - 1, EndCol: w - 1, Distance: cost[h-1][w-1]}

	if opts.OpenEnd {
		applyOpenEndTermination(a)
	}

	return a, nil
}

// applyOpenEndTermination picks the cheapest row along the last column as
// the alignment's true end (spec §4.A: "reaches (W-1,h) for h<H-1 with no
// cheaper prefix available beyond that column"), tags it NIL_OPEN_RIGHT,
// and relabels any RIGHT move past it as OPEN_RIGHT so centroid
// accumulation skips the member's coasting tail.
func applyOpenEndTermination(a *Alignment) {
	w := len(a.Cost[0])
	h := len(a.Cost)

	bestRow := h - 1
	bestVal := a.Cost[h-1][w-1]
	for r := 0; r < h; r++ {
		if a.Cost[r][w-1] < bestVal {
			bestVal = a.Cost[r][w-1]
			bestRow = r
		}
	}

	a.EndRow = bestRow
	a.Distance = bestVal
	if bestRow != h-1 {
		a.Step[bestRow][w-1] = NilOpenRight
	}
	for r := bestRow + 1; r < h; r++ {
		if a.Step[r][w-1] == Right {
			a.Step[r][w-1] = OpenRight
		}
	}
}
