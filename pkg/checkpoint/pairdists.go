// Package checkpoint implements spec §4.H / §6's on-disk formats: the
// pairwise-distance matrix, cluster membership, per-cluster evolving
// centroid, final averages, and alignment paths, plus (in manifest.go and
// checksum.go) the BadgerDB resume manifest and BLAKE2b checksum sidecars
// SPEC_FULL.md §3 adds on top of them. Every writer/reader here round-trips
// byte-for-byte with the original pipeline's tab-delimited conventions
// (spec §8 R1/R3), since a consensus-only rerun or a resumed DBA driver
// reads back exactly what an earlier run wrote.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/signalavg/tsdba/pkg/allpairs"
)

// PairDistsSuffix is the file suffix for spec §6's pair_dists.txt.
const PairDistsSuffix = ".pair_dists.txt"

// WritePairDists writes m as prefix+PairDistsSuffix: N lines, each
// `name<TAB>` then (row-1) empty tabs, `0` for the self-distance, then
// D(i,j) for j>i (spec §6). Grounded on io_utils.hpp's writePairDistMatrix,
// including its trailing "pro forma" last line repeated twice.
func WritePairDists(prefix string, names []string, m *allpairs.Matrix) error {
	path := prefix + PairDistsSuffix
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := len(names)
	for i := 0; i < n-1; i++ {
		w.WriteString(names[i])
		for pad := 0; pad < i; pad++ {
			w.WriteByte('\t')
		}
		w.WriteString("\t0")
		for j := i + 1; j < n; j++ {
			w.WriteByte('\t')
			w.WriteString(formatFloat(m.At(i, j)))
		}
		w.WriteByte('\n')
	}
	if n > 0 {
		writePadTrailer(w, names[n-1], n)
		writePadTrailer(w, names[n-1], n)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	return nil
}

func writePadTrailer(w *bufio.Writer, name string, n int) {
	w.WriteString(name)
	for pad := 0; pad < n; pad++ {
		w.WriteByte('\t')
	}
	w.WriteString("0\n")
}

// ReadPairDists reads a pair_dists.txt written by WritePairDists back into
// a names slice and packed Matrix (spec §8 R1: exact round-trip). The file
// holds N-1 data lines followed by two pro-forma trailer lines repeating
// the last sequence's name (io_utils.hpp's writePairDistMatrix writes that
// trailer twice), so N = (lines read) - 1; only the first N-1 lines carry
// distances.
func ReadPairDists(path string) ([]string, *allpairs.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint: opening %s: %w", path, err)
	}
	defer f.Close()

	var rawNames []string
	var rows [][]string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		rawNames = append(rawNames, fields[0])
		rows = append(rows, fields[1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}
	if len(rawNames) == 0 {
		return nil, allpairs.NewMatrix(0), nil
	}

	n := len(rawNames) - 1
	names := rawNames[:n]
	m := allpairs.NewMatrix(n)
	for i := 0; i < n-1; i++ {
		row := rows[i]
		// row layout: i empty pads, then "0", then n-i-1 distances, so
		// column j's distance sits at row[j].
		for j := i + 1; j < n; j++ {
			if j >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("checkpoint: %s: row %d col %d: %w", path, i, j, err)
			}
			m.Set(i, j, v)
			if v > m.Max {
				m.Max = v
			}
		}
	}
	return names, m, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
