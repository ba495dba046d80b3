package allpairs

import (
	"fmt"
	"math"
	"time"

	"github.com/signalavg/tsdba/pkg/device"
	"github.com/signalavg/tsdba/pkg/dtw"
	"github.com/signalavg/tsdba/pkg/seqset"
	"github.com/signalavg/tsdba/pkg/striped"
)

// Options controls one all-pairs run.
type Options struct {
	OpenStart, OpenEnd bool
	SwathWidth         int
	StripedHeadroom    float64
}

// Compute schedules N(N-1)/2 DTW alignments across mgr's devices. For each
// anchor i it dispatches the whole batch of partners j>i to one
// round-robin device (spec §4.E: "at each outer step the driver spawns one
// alignment set per device"), with descending stream priority so later,
// typically longer, anchors yield to finish-up work (spec §5).
// TODO: dba.hpp sketches a "lightning DTW" meet-in-the-middle variant
// (cost columns run forward and backward concurrently, combined at a
// midpoint) that would roughly halve this function's per-pair latency;
// not implemented here, see DESIGN.md.
func Compute(set *seqset.Set, mgr *device.Manager, opts Options) (*Matrix, error) {
	n := set.Len()
	matrix := NewMatrix(n)
	if n < 2 {
		return matrix, nil
	}

	for i := 0; i < n-1; i++ {
		dev := mgr.NextDevice()
		waitForMemory(dev, set.MaxLength())

		priority := n - i
		var futures []*device.Future
		for j := i + 1; j < n; j++ {
			anchor, partner := i, j
			futures = append(futures, mgr.Submit(dev, priority, func(d *device.Device) error {
				dist, err := alignPair(d, set.Sequences[anchor], set.Sequences[partner], opts)
				if err != nil {
					return fmt.Errorf("allpairs: aligning %q vs %q: %w", set.Names[anchor], set.Names[partner], err)
				}
				matrix.Set(anchor, partner, dist)
				return nil
			}))
		}
		// Barrier: end of this anchor's batch (spec §5's "end of each
		// all-pairs anchor batch").
		if err := device.WaitAll(futures); err != nil {
			return nil, err
		}
	}

	for _, d := range matrix.Flat {
		if d > matrix.Max {
			matrix.Max = d
		}
	}
	return matrix, nil
}

// ComputeApprox is the approximate-medoid fast path (SPEC_FULL.md §5,
// dba.hpp's approximateMedoidIndices): it runs exact DTW only for pairs
// where at least one side is an anchor from cluster.ApproximateMedoids'
// sampled subset — never between two non-anchor sequences — then
// completes every remaining entry by the shortest anchor-mediated path
// min_a D(i,a)+D(a,j), a triangle-inequality completion over the squared-
// cost metric of spec §3. This turns the O(N²) all-pairs pass into
// O(N·|anchors|) DTW alignments for seeding clustering on very large N.
func ComputeApprox(set *seqset.Set, mgr *device.Manager, opts Options, anchors []int) (*Matrix, error) {
	n := set.Len()
	matrix := NewMatrix(n)
	if n < 2 || len(anchors) == 0 {
		return matrix, nil
	}

	isAnchor := make([]bool, n)
	for _, a := range anchors {
		isAnchor[a] = true
	}
	direct := make([]bool, len(matrix.Flat))

	for ai, anchor := range anchors {
		dev := mgr.NextDevice()
		waitForMemory(dev, set.MaxLength())

		priority := len(anchors) - ai
		var futures []*device.Future
		for j := 0; j < n; j++ {
			if j == anchor {
				continue
			}
			if isAnchor[j] && j < anchor {
				// Anchor-anchor pair already computed from the smaller
				// anchor's pass.
				continue
			}
			partner := j
			idx := matrix.Index(anchor, partner)
			direct[idx] = true
			futures = append(futures, mgr.Submit(dev, priority, func(d *device.Device) error {
				dist, err := alignPair(d, set.Sequences[anchor], set.Sequences[partner], opts)
				if err != nil {
					return fmt.Errorf("allpairs: approx aligning %q vs %q: %w", set.Names[anchor], set.Names[partner], err)
				}
				matrix.Set(anchor, partner, dist)
				return nil
			}))
		}
		// Barrier: end of this anchor's batch, same as Compute.
		if err := device.WaitAll(futures); err != nil {
			return nil, err
		}
	}

	completeByAnchors(matrix, anchors, direct)

	for _, d := range matrix.Flat {
		if d > matrix.Max {
			matrix.Max = d
		}
	}
	return matrix, nil
}

// completeByAnchors fills every D(i,j) whose direct flag is unset — i.e.
// every pair where neither i nor j is an anchor — with the cheapest
// anchor-mediated path, so downstream clustering sees a complete matrix
// without ever running DTW directly between two non-anchor sequences.
func completeByAnchors(matrix *Matrix, anchors []int, direct []bool) {
	n := matrix.N
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			idx := matrix.Index(i, j)
			if direct[idx] {
				continue
			}
			best := math.MaxFloat64
			for _, a := range anchors {
				via := matrix.At(i, a) + matrix.At(a, j)
				if via < best {
					best = via
				}
			}
			matrix.Flat[idx] = best
		}
	}
}

func alignPair(d *device.Device, x, y []float64, opts Options) (float64, error) {
	dtwOpts := dtw.Options{OpenStart: opts.OpenStart, OpenEnd: opts.OpenEnd}

	costVecBytes := uint64(len(y)) * 8
	stepMatrixBytes := uint64(len(x)) * uint64(len(y))
	headroom := opts.StripedHeadroom
	if headroom == 0 {
		headroom = 1.05
	}

	if striped.ShouldStripe(d.FreeMemoryBytes(), costVecBytes, stepMatrixBytes, headroom) {
		res, err := striped.AlignOnDevice(d, x, y, opts.SwathWidth, dtwOpts, nil, false)
		if err != nil {
			return 0, err
		}
		return res.Distance, nil
	}

	a, err := dtw.Compute(x, y, dtwOpts)
	if err != nil {
		return 0, err
	}
	return a.Distance, nil
}

// waitForMemory is the free-memory sleep-retry loop supplemented from the
// original implementation's medoid pre-pass (SPEC_FULL.md §5): a bounded
// exponential backoff before starting an anchor's batch. Informational
// only — the batch proceeds regardless of whether memory freed up, letting
// the per-alignment striped fallback handle real pressure.
func waitForMemory(d *device.Device, maxSeqLen int) {
	needed := uint64(maxSeqLen) * 8 * 2
	backoff := time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		if d.FreeMemoryBytes() >= needed {
			return
		}
		time.Sleep(backoff)
		backoff *= 2
	}
}
