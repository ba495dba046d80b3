package dba

import "github.com/signalavg/tsdba/pkg/numeric"

// Delta is spec §4.G's δ = max_j |centroid[j] - new_centroid[j]|.
func Delta(centroidSeq, next []float64) float64 {
	return numeric.MaxAbsDiff(centroidSeq, next)
}

// IsFlipFlop implements spec §4.G step f: the flip-flop guard only applies
// when open_start or open_end is active, and triggers when the candidate
// centroid byte-equals the centroid from two rounds prior.
func IsFlipFlop(openStart, openEnd bool, next, twoRoundsPrior []float64) bool {
	if !openStart && !openEnd {
		return false
	}
	if twoRoundsPrior == nil {
		return false
	}
	if len(next) != len(twoRoundsPrior) {
		return false
	}
	for i := range next {
		if next[i] != twoRoundsPrior[i] {
			return false
		}
	}
	return true
}
