// Package numeric provides the small set of vector/array math helpers used
// throughout the DTW engine: running mean/variance, the max-absolute-
// difference used by the DBA convergence test, and the prefix-sum helper
// the cost kernel uses to seed its closed-boundary row/column in one shot.
//
// Main Functions:
//   - MaxAbsDiff: elementwise max(|a-b|), used as the DBA δ
//   - Mean / StdDev: used to rescale a converged centroid into the medoid's
//     domain (spec §4.G.3)
//   - PrefixSumSquared: builds the closed-boundary row/column seed,
//     consumed directly by pkg/dtw's Compute and pkg/striped's computeStripe
package numeric

import "math"

// MaxAbsDiff returns max(|a[i]-b[i]|) over equal-length slices. Used as the
// δ in the DBA refinement loop (spec §4.G.2.d); δ=0 means converged.
func MaxAbsDiff(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("numeric: MaxAbsDiff requires equal-length slices")
	}
	var max float64
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > max {
			max = d
		}
	}
	return max
}

// Mean returns the arithmetic mean of v, or 0 for an empty slice.
func Mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// StdDev returns the population standard deviation of v.
func StdDev(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	mean := Mean(v)
	var sumSq float64
	for _, x := range v {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(v)))
}

// PrefixSumSquared fills out[i] = Σ_{k<=i} (x[k]-anchor)² for i in
// [0,len(x)), the closed-boundary seed for row 0 / column 0 of a DTW cost
// matrix when the corresponding end is not open (spec §4.A).
func PrefixSumSquared(x []float64, anchor float64) []float64 {
	out := make([]float64, len(x))
	var running float64
	for i, v := range x {
		d := v - anchor
		running += d * d
		out[i] = running
	}
	return out
}

// Rescale returns a copy of v affine-transformed so it has the given mean
// and standard deviation, preserving its shape. Used to move a converged
// centroid (which lives in a normalized/averaged domain) back into the
// domain of the medoid sequence it was seeded from (spec §4.G.3).
func Rescale(v []float64, targetMean, targetStd float64) []float64 {
	out := make([]float64, len(v))
	srcMean := Mean(v)
	srcStd := StdDev(v)
	if srcStd == 0 {
		for i := range v {
			out[i] = targetMean
		}
		return out
	}
	for i, x := range v {
		out[i] = (x-srcMean)/srcStd*targetStd + targetMean
	}
	return out
}
