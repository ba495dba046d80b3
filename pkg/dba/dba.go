// Package dba implements the DBA update driver of spec §4.G: per cluster,
// iterate member alignment against the evolving centroid, accumulate
// (pkg/centroid), and test convergence, up to a round limit, with the
// open-end flip-flop early-stop guard.
package dba

import (
	"fmt"

	"github.com/signalavg/tsdba/pkg/centroid"
	"github.com/signalavg/tsdba/pkg/device"
	"github.com/signalavg/tsdba/pkg/dtw"
	"github.com/signalavg/tsdba/pkg/numeric"
	"github.com/signalavg/tsdba/pkg/striped"
)

// DefaultRoundLimit is spec §4.G's default ROUND_LIMIT.
const DefaultRoundLimit = 250

// Options controls one cluster's refinement run.
type Options struct {
	OpenStart, OpenEnd bool
	RoundLimit         int
	SwathWidth         int
	StripedHeadroom    float64
	Rescale            bool
}

// Result is the outcome of refining one cluster's centroid.
type Result struct {
	Centroid  []float64
	Rounds    int
	Converged bool
	FlipFlop  bool
}

// Checkpoint lets callers persist the evolving centroid between rounds
// (spec §4.H); implementations may no-op.
type Checkpoint interface {
	SaveEvolvingCentroid(round int, centroidSeq []float64) error
}

// Refine runs the DBA update loop for one cluster. medoid seeds the
// centroid (or is the resumed partial centroid from a checkpoint);
// members are the cluster's member sequences, excluding the medoid itself.
// Singletons (no members) are emitted as-is without iteration, per spec
// §4.G.
func Refine(medoid []float64, members [][]float64, mgr *device.Manager, opts Options, ckpt Checkpoint) (*Result, error) {
	if len(members) == 0 {
		return &Result{Centroid: append([]float64(nil), medoid...), Rounds: 0, Converged: true}, nil
	}

	roundLimit := opts.RoundLimit
	if roundLimit <= 0 {
		roundLimit = DefaultRoundLimit
	}

	current := append([]float64(nil), medoid...)
	var twoAgo []float64

	for round := 0; round < roundLimit; round++ {
		acc := centroid.New(len(current))

		var futures []*device.Future
		for idx := range members {
			member := members[idx]
			dev := mgr.NextDevice()
			futures = append(futures, mgr.Submit(dev, 0, func(d *device.Device) error {
				return alignAndAccumulate(d, current, member, opts, acc)
			}))
		}
		// Barrier: end of this refinement round, before δ is computed
		// (spec §5).
		if err := device.WaitAll(futures); err != nil {
			return nil, fmt.Errorf("dba: round %d: %w", round, err)
		}

		next := acc.Refine(current)
		acc.Release()
		delta := Delta(current, next)

		if delta == 0 {
			return finish(next, round+1, true, false, medoid, opts), nil
		}

		if ckpt != nil {
			if err := ckpt.SaveEvolvingCentroid(round, next); err != nil {
				return nil, fmt.Errorf("dba: persisting evolving centroid: %w", err)
			}
		}

		if IsFlipFlop(opts.OpenStart, opts.OpenEnd, next, twoAgo) {
			return finish(twoAgo, round+1, false, true, medoid, opts), nil
		}

		twoAgo = current
		current = next
	}

	return finish(current, roundLimit, false, false, medoid, opts), nil
}

func finish(centroidSeq []float64, rounds int, converged, flipFlop bool, medoid []float64, opts Options) *Result {
	out := append([]float64(nil), centroidSeq...)
	if opts.Rescale {
		mean := numeric.Mean(medoid)
		std := numeric.StdDev(medoid)
		out = numeric.Rescale(out, mean, std)
	}
	return &Result{Centroid: out, Rounds: rounds, Converged: converged, FlipFlop: flipFlop}
}

// alignAndAccumulate aligns member against centroidSeq, flipping the
// orientation when member is strictly longer and open_end is set so the
// centroid sits on Y with open right (spec §4.G step a: "preventing
// degenerate all-up-then-all-right paths"), then folds the alignment into
// acc, suppressing OPEN_RIGHT cells.
func alignAndAccumulate(d *device.Device, centroidSeq, member []float64, opts Options, acc *centroid.Accumulator) error {
	dtwOpts := dtw.Options{OpenStart: opts.OpenStart, OpenEnd: opts.OpenEnd}

	flip := len(member) > len(centroidSeq) && opts.OpenEnd
	x, y := centroidSeq, member
	centroidOnRows := false // default: centroid is X (columns), member is Y (rows)
	if flip {
		x, y = member, centroidSeq
		centroidOnRows = true // flipped: centroid is Y (rows), member is X (columns)
	}

	costVecBytes := uint64(len(y)) * 8
	stepMatrixBytes := uint64(len(x)) * uint64(len(y))
	headroom := opts.StripedHeadroom
	if headroom == 0 {
		headroom = 1.05
	}

	if striped.ShouldStripe(d.FreeMemoryBytes(), costVecBytes, stepMatrixBytes, headroom) {
		_, err := striped.AlignOnDevice(d, x, y, opts.SwathWidth, dtwOpts, acc, centroidOnRows)
		return err
	}

	a, err := dtw.Compute(x, y, dtwOpts)
	if err != nil {
		return err
	}
	path, err := dtw.Backtrace(a.Step, a.EndRow, a.EndCol, len(x)+len(y))
	if err != nil {
		return err
	}
	acc.AddPath(path, member, centroidOnRows)
	return nil
}
