// Package striped implements the memory-adaptive path-storage strategy of
// spec §4.C: instead of materializing the full O(W·H) step matrix, it keeps
// only each swath's leading-edge cost column during a forward sweep, then
// recomputes one swath's step matrix at a time — bounded to the rows still
// reachable — during a right-to-left backward sweep, backtracing through
// each recomputed stripe before discarding it.
package striped

import (
	"github.com/signalavg/tsdba/pkg/centroid"
	"github.com/signalavg/tsdba/pkg/device"
	"github.com/signalavg/tsdba/pkg/dtw"
	"github.com/signalavg/tsdba/pkg/numeric"
	"github.com/signalavg/tsdba/pkg/pool"
)

// ShouldStripe reports whether the trigger condition of spec §4.C holds:
// free device memory is less than the transient cost vector plus a
// headroom-padded full step matrix.
func ShouldStripe(freeBytes, costVecBytes, stepMatrixBytes uint64, headroom float64) bool {
	threshold := costVecBytes + uint64(float64(stepMatrixBytes)*headroom)
	return freeBytes < threshold
}

// Result mirrors dtw.Alignment's externally visible shape so callers that
// switch between full-matrix and striped mode see the same contract.
type Result struct {
	Distance float64
	Path     []dtw.PathCell
}

// Align runs the two-pass striped algorithm. centroidSeq is the column
// axis (X, swathed in bands of swathWidth); member is the row axis (Y,
// full height), matching spec §4.D's (j_centroid, i_seq) convention. When
// acc is non-nil, every non-OPEN_RIGHT path cell is folded into it as the
// backward pass visits it.
// centroidOnRows tells the accumulator which axis holds the centroid: false
// (the common case) means x is the centroid (columns) and y is the member
// (rows); true means the alignment has been flipped (spec §4.G step a) so
// y is the centroid and x is the member.
func Align(x, y []float64, swathWidth int, opts dtw.Options, acc *centroid.Accumulator, centroidOnRows bool) (*Result, error) {
	w, h := len(x), len(y)
	if w == 0 || h == 0 {
		return nil, dtw.ErrEmptySequence
	}
	if swathWidth < 1 || swathWidth > w {
		swathWidth = w
	}

	edges := forwardPass(x, y, swathWidth, opts)
	return backwardPass(x, y, swathWidth, opts, edges, acc, centroidOnRows)
}

// AlignOnDevice is Align, but reserves the stripe's transient memory
// against dev's budget first, halving swathWidth and retrying on failure.
// If even a one-column stripe does not fit, it runs Align at width 1
// without a reservation: plain Go memory has no pinned/managed
// distinction, so the unreserved run is the managed-memory fallback.
func AlignOnDevice(dev *device.Device, x, y []float64, swathWidth int, opts dtw.Options, acc *centroid.Accumulator, centroidOnRows bool) (*Result, error) {
	h := len(y)
	for {
		const bytesPerCell = 9 // one float64 cost cell + one byte step cell
		stripeBytes := uint64(swathWidth) * uint64(h) * bytesPerCell
		reservation, err := dev.Reserve(stripeBytes)
		if err == nil {
			defer reservation.Release()
			return Align(x, y, swathWidth, opts, acc, centroidOnRows)
		}
		if swathWidth <= 1 {
			return Align(x, y, swathWidth, opts, acc, centroidOnRows)
		}
		swathWidth /= 2
	}
}

// forwardPass walks the full width column by column with two rolling
// H-element cost vectors (spec §3's priorCostCol/newCostCol), snapshotting
// the trailing column into edges[] at the end of every swath. It applies
// opts' boundary rules at row 0 / column 0 exactly as dtw.Compute does:
// the saved edges must carry the *true* open-boundary cost, not the
// closed-boundary one, because computeStripe's left-edge column (the
// default diagonal/right/up case at local column 0) reads a seed row
// straight through for every row, not just row 0 — a closed-boundary seed
// would leak non-open cost into every interior cell that borders it,
// breaking I5 (striped ≡ full-matrix) for any stripe beyond the first.
func forwardPass(x, y []float64, t int, opts dtw.Options) [][]float64 {
	w, h := len(x), len(y)
	numSwaths := (w + t - 1) / t

	edges := make([][]float64, numSwaths)
	prev := pool.GetCostColumn(h)
	curr := pool.GetCostColumn(h)
	defer pool.PutCostColumn(prev)
	defer pool.PutCostColumn(curr)

	for j := 0; j < w; j++ {
		computeColumn(x, y, j, prev, curr, opts)
		if (j+1)%t == 0 || j == w-1 {
			edge := make([]float64, h)
			copy(edge, curr)
			edges[j/t] = edge
		}
		prev, curr = curr, prev
	}
	return edges
}

// computeColumn fills curr (length h) with the cost column at x-index j,
// given prev = the cost column at x-index j-1, applying the same
// OpenStart/OpenEnd boundary rules dtw.Compute uses at row 0 (j==0
// governs OpenStart there too, since the very first column is where that
// row begins) and column 0 (r>0, j==0).
func computeColumn(x, y []float64, j int, prev, curr []float64, opts dtw.Options) {
	h := len(y)
	for r := 0; r < h; r++ {
		d := x[j] - y[r]
		sq := d * d
		switch {
		case r == 0 && j == 0:
			if opts.OpenStart || opts.OpenEnd {
				curr[0] = 0
			} else {
				curr[0] = sq
			}
		case r == 0:
			if opts.OpenStart {
				curr[0] = 0
			} else if j == 1 && opts.OpenEnd {
				// dtw.Compute's row-0 prefix sum counts the corner's squared
				// difference even though the corner cell itself is 0.
				curr[0] = (x[0]-y[0])*(x[0]-y[0]) + sq
			} else {
				curr[0] = prev[0] + sq
			}
		case j == 0:
			if opts.OpenEnd {
				curr[r] = 0
			} else if r == 1 && opts.OpenStart {
				// Likewise for the column-0 prefix sum under OpenStart.
				curr[r] = (x[0]-y[0])*(x[0]-y[0]) + sq
			} else {
				curr[r] = curr[r-1] + sq
			}
		default:
			diag := prev[r-1]
			right := prev[r]
			up := curr[r-1]
			best := diag
			if right < best {
				best = right
			}
			if up < best {
				best = up
			}
			curr[r] = sq + best
		}
	}
}

// backwardPass recomputes and backtraces one swath at a time, right to
// left, accumulating centroid contributions and narrowing liveRows as it
// goes (spec §4.C steps 1-4).
func backwardPass(x, y []float64, t int, opts dtw.Options, edges [][]float64, acc *centroid.Accumulator, centroidOnRows bool) (*Result, error) {
	w, h := len(x), len(y)
	numSwaths := len(edges)

	liveRows := h
	var path []dtw.PathCell
	var distance float64
	terminated := false

	for s := numSwaths - 1; s >= 0 && !terminated; s-- {
		start := s * t
		end := start + t
		if end > w {
			end = w
		}
		width := end - start

		var seed []float64
		if s > 0 {
			seed = edges[s-1]
		}

		buf := computeStripe(x[start:end], y, seed, start, opts, liveRows)

		entryRow := liveRows - 1
		if s == numSwaths-1 {
			if opts.OpenEnd {
				entryRow = bestRowInColumn(buf, width-1, liveRows)
				if entryRow != h-1 {
					buf.setStep(entryRow, width-1, dtw.NilOpenRight)
				}
				for r := entryRow + 1; r < liveRows; r++ {
					if buf.stepAt(r, width-1) == dtw.Right {
						buf.setStep(r, width-1, dtw.OpenRight)
					}
				}
			}
			distance = buf.costAt(entryRow, width-1)
		}

		cells, exitRow, hitTerminal, err := backtraceStripe(buf, entryRow, width-1)
		buf.release()
		if err != nil {
			return nil, err
		}
		prepend := make([]dtw.PathCell, 0, len(cells))
		for _, c := range cells {
			globalCol := start + c.Col
			prepend = append(prepend, dtw.PathCell{Row: c.Row, Col: globalCol, Move: c.Move})
			if c.Move != dtw.OpenRight && acc != nil {
				if centroidOnRows {
					acc.Add(c.Row, x[globalCol])
				} else {
					acc.Add(globalCol, y[c.Row])
				}
			}
		}
		path = append(prepend, path...)

		liveRows = exitRow + 1
		if hitTerminal {
			terminated = true
		}
	}

	return &Result{Distance: distance, Path: path}, nil
}

// stripeBuffers holds one stripe's recomputed cost/step matrices as flat,
// pitched buffers drawn from pkg/pool — the pitched-byte-matrix
// representation spec §3 describes for the step matrix, and the same
// cost-column pool the forward pass uses (dtw.Compute allocates its full
// matrix directly and does not draw from the pool).
type stripeBuffers struct {
	cost  []float64
	step  []byte
	width int
	rows  int
}

func newStripeBuffers(rows, width int) *stripeBuffers {
	return &stripeBuffers{
		cost:  pool.GetCostColumn(rows * width),
		step:  pool.GetStepStripe(rows * width),
		width: width,
		rows:  rows,
	}
}

func (b *stripeBuffers) costAt(r, c int) float64      { return b.cost[r*b.width+c] }
func (b *stripeBuffers) setCost(r, c int, v float64)  { b.cost[r*b.width+c] = v }
func (b *stripeBuffers) stepAt(r, c int) dtw.Step     { return dtw.Step(b.step[r*b.width+c]) }
func (b *stripeBuffers) setStep(r, c int, v dtw.Step) { b.step[r*b.width+c] = byte(v) }

// release returns both buffers to their pools. Safe to call once, after
// every read of this stripe (the entry/distance lookup and the backtrace)
// is done.
func (b *stripeBuffers) release() {
	pool.PutCostColumn(b.cost)
	pool.PutStepStripe(b.step)
}

// computeStripe recomputes cost/step over [0,liveRows) x stripe-local
// columns, seeded at local column 0 either by the prior swath's saved edge
// (s>0) or by the real column-0 boundary rule (s==0, governed by
// opts.OpenEnd) and row 0 by opts.OpenStart — the same two rules
// dtw.Compute applies, restricted to this stripe. The closed-boundary row
// 0 and column 0 runs are each built in one shot via
// numeric.PrefixSumSquared rather than accumulated cell by cell.
func computeStripe(xSlice, y, seed []float64, globalColStart int, opts dtw.Options, liveRows int) *stripeBuffers {
	width := len(xSlice)
	buf := newStripeBuffers(liveRows, width)

	var rowPrefix, colPrefix []float64
	if !opts.OpenStart {
		rowPrefix = numeric.PrefixSumSquared(xSlice, y[0])
	}
	if globalColStart == 0 && !opts.OpenEnd && liveRows > 1 {
		colPrefix = numeric.PrefixSumSquared(y[:liveRows], xSlice[0])
	}

	prevAt := func(j, r int) float64 {
		if j == 0 {
			return seed[r]
		}
		return buf.costAt(r, j-1)
	}

	for j := 0; j < width; j++ {
		globalCol := globalColStart + j
		for r := 0; r < liveRows; r++ {
			d := xSlice[j] - y[r]
			sq := d * d

			switch {
			case r == 0 && globalCol == 0:
				if opts.OpenStart || opts.OpenEnd {
					buf.setCost(0, j, 0)
				} else {
					buf.setCost(0, j, sq)
				}
				buf.setStep(0, j, dtw.NIL)
			case r == 0:
				if opts.OpenStart {
					buf.setCost(0, j, 0)
					buf.setStep(0, j, dtw.NilOpenRight)
				} else {
					offset := 0.0
					if seed != nil {
						offset = seed[0]
					}
					buf.setCost(0, j, offset+rowPrefix[j])
					buf.setStep(0, j, dtw.Right)
				}
			case globalCol == 0:
				if opts.OpenEnd {
					buf.setCost(r, 0, 0)
					buf.setStep(r, 0, dtw.NilOpenRight)
				} else {
					buf.setCost(r, 0, colPrefix[r])
					buf.setStep(r, 0, dtw.Up)
				}
			default:
				diag := prevAt(j, r-1)
				right := prevAt(j, r)
				up := buf.costAt(r-1, j)
				best, bestStep := diag, dtw.Diagonal
				if right < best {
					best, bestStep = right, dtw.Right
				}
				if up < best {
					best, bestStep = up, dtw.Up
				}
				buf.setCost(r, j, sq+best)
				buf.setStep(r, j, bestStep)
			}
		}
	}
	return buf
}

func bestRowInColumn(buf *stripeBuffers, col, liveRows int) int {
	bestRow := liveRows - 1
	bestVal := buf.costAt(liveRows-1, col)
	for r := 0; r < liveRows; r++ {
		if buf.costAt(r, col) < bestVal {
			bestVal = buf.costAt(r, col)
			bestRow = r
		}
	}
	return bestRow
}

// backtraceStripe walks step leftward from (startRow, startCol) until it
// either reaches NIL/NIL_OPEN_RIGHT (hitTerminal=true, overall backward
// pass stops) or exits the stripe's left edge (hitTerminal=false, exitRow
// seeds the next stripe to the left). Cells are returned anchor-first.
func backtraceStripe(buf *stripeBuffers, startRow, startCol int) ([]dtw.PathCell, int, bool, error) {
	var reversed []dtw.PathCell
	row, col := startRow, startCol
	maxSteps := buf.rows + buf.width + 1

	for i := 0; i <= maxSteps; i++ {
		move := buf.stepAt(row, col)
		reversed = append(reversed, dtw.PathCell{Row: row, Col: col, Move: move})

		switch move {
		case dtw.NIL, dtw.NilOpenRight:
			return reverseCells(reversed), row, true, nil
		case dtw.Diagonal:
			row--
			col--
		case dtw.Right, dtw.OpenRight:
			col--
		case dtw.Up:
			row--
		default:
			return nil, 0, false, &dtw.BacktraceInvariantError{Row: row, Col: col, Move: move}
		}
		if col < 0 {
			return reverseCells(reversed), row, false, nil
		}
		if row < 0 {
			return nil, 0, false, &dtw.BacktraceInvariantError{Row: row, Col: col, Move: move}
		}
	}
	return nil, 0, false, &dtw.BacktraceInvariantError{Row: row, Col: col, Move: buf.stepAt(row, col)}
}

func reverseCells(cells []dtw.PathCell) []dtw.PathCell {
	out := make([]dtw.PathCell, len(cells))
	for k, c := range cells {
		out[len(cells)-1-k] = c
	}
	return out
}
