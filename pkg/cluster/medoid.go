package cluster

// DistanceFunc returns the pairwise distance between sequence indices a
// and b (typically allpairs.Matrix.At).
type DistanceFunc func(a, b int) float64

// MedoidOf returns the sequence index, from members, that is the medoid of
// its cluster under spec §4.F's size-dependent rule: |c|>2 minimizes the
// sum of distances to the rest of the cluster; |c|=2 breaks the tie by
// picking the longer sequence; |c|=1 is trivial.
func MedoidOf(members []int, lengths []int, dist DistanceFunc) int {
	switch len(members) {
	case 0:
		return -1
	case 1:
		return members[0]
	case 2:
		a, b := members[0], members[1]
		if lengths[b] > lengths[a] {
			return b
		}
		return a
	default:
		best := members[0]
		bestSum := sumDistances(members, best, dist)
		for _, m := range members[1:] {
			s := sumDistances(members, m, dist)
			if s < bestSum {
				bestSum = s
				best = m
			}
		}
		return best
	}
}

// sumDistances sums D(candidate, m) over the rest of members. The matrix
// already stores the squared-cost convention (spec §3), so this is the
// "Σ D²" of spec §4.F's medoid rule.
func sumDistances(members []int, candidate int, dist DistanceFunc) float64 {
	var sum float64
	for _, m := range members {
		if m == candidate {
			continue
		}
		sum += dist(candidate, m)
	}
	return sum
}

// ApproximateMedoids implements the supplemented approximate-medoid fast
// path (SPEC_FULL.md §5): for very large N, seed clustering against only a
// sampled anchor subset of size sampleSize instead of the full pairwise
// matrix. Off by default; callers gate this behind an opt-in flag.
func ApproximateMedoids(n, sampleSize int) []int {
	if sampleSize >= n || sampleSize <= 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	stride := n / sampleSize
	if stride < 1 {
		stride = 1
	}
	sample := make([]int, 0, sampleSize)
	for i := 0; i < n && len(sample) < sampleSize; i += stride {
		sample = append(sample, i)
	}
	return sample
}
