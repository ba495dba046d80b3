// Package seqset holds the sequence-set data model (spec §3): an ordered
// collection of named numeric time series, sorted by length so that later
// stages allocate minimally, with the overflow-sentinel sanitization the
// original pipeline's upstream readers are known to need.
package seqset

import (
	"math"
	"sort"
)

// Set is an ordered collection of N numeric sequences with parallel names.
// Sequences and Names are always the same length and move together under
// SortByLength.
type Set struct {
	Sequences [][]float64
	Names     []string
}

// Len returns the number of sequences in the set.
func (s *Set) Len() int {
	return len(s.Sequences)
}

// MaxLength returns the length of the longest sequence, or 0 for an empty set.
func (s *Set) MaxLength() int {
	max := 0
	for _, seq := range s.Sequences {
		if len(seq) > max {
			max = len(seq)
		}
	}
	return max
}

// Sanitize truncates the last element off any sequence whose final value's
// magnitude is >= sqrt(math.MaxFloat64), the overflow-sentinel convention
// upstream readers use to flag a corrupt trailing sample (spec §3).
// Sequences are modified in place; a sequence truncated to empty is left
// empty (callers should treat that as an input error, not silently drop it).
func (s *Set) Sanitize() {
	threshold := math.Sqrt(math.MaxFloat64)
	for i, seq := range s.Sequences {
		if len(seq) == 0 {
			continue
		}
		last := seq[len(seq)-1]
		if math.Abs(last) >= threshold {
			s.Sequences[i] = seq[:len(seq)-1]
		}
	}
}

// SortByLength stably reorders Sequences ascending by length, carrying
// Names along with them in lockstep (spec §3: "a parallel reordering is
// applied to the sequence-names vector").
func (s *Set) SortByLength() {
	idx := make([]int, len(s.Sequences))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return len(s.Sequences[idx[a]]) < len(s.Sequences[idx[b]])
	})

	sortedSeqs := make([][]float64, len(idx))
	sortedNames := make([]string, len(idx))
	for newPos, oldPos := range idx {
		sortedSeqs[newPos] = s.Sequences[oldPos]
		sortedNames[newPos] = s.Names[oldPos]
	}
	s.Sequences = sortedSeqs
	s.Names = sortedNames
}

// Normalize z-normalizes every sequence in place: (x - mean) / stddev. A
// sequence with zero variance is left untouched (normalizing it would
// divide by zero). This is the per-sequence normalization spec §1 names as
// an external collaborator's concern; tsdba carries a basic in-engine
// version behind --norm-sequences so the CLI is self-contained for the
// common case.
func (s *Set) Normalize() {
	for _, seq := range s.Sequences {
		if len(seq) == 0 {
			continue
		}
		mean, std := meanStd(seq)
		if std == 0 {
			continue
		}
		for i, v := range seq {
			seq[i] = (v - mean) / std
		}
	}
}

func meanStd(v []float64) (mean, std float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean = sum / float64(len(v))
	var sumSq float64
	for _, x := range v {
		d := x - mean
		sumSq += d * d
	}
	std = math.Sqrt(sumSq / float64(len(v)))
	return mean, std
}
