// Package centroid implements the atomic sum/count accumulator of spec
// §4.D: during backtrace, every aligned (centroid index, member value) pair
// is folded into a running sum and count, later divided to produce the
// refined centroid.
//
// Go has no atomic float64 add, so the float accumulation that would be a
// single atomicAdd on the original accelerator becomes a small striped
// mutex array here, sized like the shard counts pkg/gpu/kmeans.go uses to
// keep its hot update loop lock-contention-free.
package centroid

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/signalavg/tsdba/pkg/dtw"
	"github.com/signalavg/tsdba/pkg/pool"
)

const shardFanout = 4

// Accumulator holds the running sum/count per centroid index for one
// cluster's refinement round. Safe for concurrent use by multiple member
// alignments (or multiple stripes of the same alignment, in striped mode).
type Accumulator struct {
	sum    []float64
	count  []int64 // atomic
	shards []sync.Mutex
}

// New creates an Accumulator sized to centroidLen. sum is drawn from
// pkg/pool's accumulator pool (the §4.D sum/count scratch buffer);
// callers should call Release once the round's refined centroid has been
// read out.
func New(centroidLen int) *Accumulator {
	shards := runtime.GOMAXPROCS(0) * shardFanout
	if shards < 1 {
		shards = 1
	}
	return &Accumulator{
		sum:    pool.GetAccumulator(centroidLen),
		count:  make([]int64, centroidLen),
		shards: make([]sync.Mutex, shards),
	}
}

// Release returns the accumulator's sum buffer to pkg/pool. The
// Accumulator must not be used again afterward.
func (a *Accumulator) Release() {
	pool.PutAccumulator(a.sum)
	a.sum = nil
}

// Len returns the centroid length this accumulator was sized for.
func (a *Accumulator) Len() int { return len(a.sum) }

// Add folds one member value into centroid index j's running sum and
// count.
func (a *Accumulator) Add(j int, value float64) {
	shard := &a.shards[j%len(a.shards)]
	shard.Lock()
	a.sum[j] += value
	shard.Unlock()
	atomic.AddInt64(&a.count[j], 1)
}

// AddPath folds every cell of an alignment path into the accumulator,
// using memberAt to fetch the member's value at a path cell's sequence
// index. Cells whose move is dtw.OpenRight are suppressed (spec §4.D:
// "extra tail signal in a member does not contaminate the centroid tail").
// centroidOnRows indicates whether the centroid sits on the alignment's row
// axis (true) or column axis (false, the "flipped" case of spec §4.G when a
// longer member is swapped onto Y).
func (a *Accumulator) AddPath(path []dtw.PathCell, member []float64, centroidOnRows bool) {
	for _, cell := range path {
		if cell.Move == dtw.OpenRight {
			continue
		}
		var centroidIdx, memberIdx int
		if centroidOnRows {
			centroidIdx, memberIdx = cell.Row, cell.Col
		} else {
			centroidIdx, memberIdx = cell.Col, cell.Row
		}
		a.Add(centroidIdx, member[memberIdx])
	}
}

// Refine computes the new centroid: sum[j]/count[j]. Indices with zero
// count keep the previous centroid's value (spec I3 guarantees count>=1
// when open_end=false; this fallback only matters for open-end runs where
// a centroid tail may legitimately see no contributions in a given round).
func (a *Accumulator) Refine(previous []float64) []float64 {
	out := make([]float64, len(a.sum))
	for j := range a.sum {
		c := atomic.LoadInt64(&a.count[j])
		if c == 0 {
			out[j] = previous[j]
			continue
		}
		out[j] = a.sum[j] / float64(c)
	}
	return out
}

// Counts returns a snapshot of the per-index contribution counts, mainly
// for tests and diagnostics.
func (a *Accumulator) Counts() []int64 {
	out := make([]int64, len(a.count))
	for j := range out {
		out[j] = atomic.LoadInt64(&a.count[j])
	}
	return out
}
