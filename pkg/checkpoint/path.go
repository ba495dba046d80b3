package checkpoint

import (
	"bufio"
	"fmt"
	"os"

	"github.com/signalavg/tsdba/pkg/dtw"
)

// PathSuffix builds the per-alignment path file name: prefix + "path" +
// index + ".txt" (spec §6).
func PathSuffix(index int) string {
	return fmt.Sprintf(".path%d.txt", index)
}

// WritePath writes prefix+PathSuffix(index): a first line naming the
// aligned sequence, then one line per alignment cell
// `seq_idx<TAB>seq_val<TAB>cent_idx<TAB>cent_val<TAB>MOVE`, ordered from
// terminal to anchor (spec §6), mirroring io_utils.hpp's writeDTWPath.
// path is in the anchor-first order dtw.Backtrace returns; centroidOnRows
// selects which axis of each cell is the sequence vs. the centroid, same
// convention as pkg/centroid.Accumulator.AddPath.
func WritePath(prefix string, index int, seqName string, path []dtw.PathCell, seq, centroidSeq []float64, centroidOnRows bool) error {
	filePath := prefix + PathSuffix(index)
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("checkpoint: creating %s: %w", filePath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, seqName)
	for i := len(path) - 1; i >= 0; i-- {
		cell := path[i]
		var seqIdx, centIdx int
		if centroidOnRows {
			seqIdx, centIdx = cell.Col, cell.Row
		} else {
			seqIdx, centIdx = cell.Row, cell.Col
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", seqIdx, formatFloat(seq[seqIdx]), centIdx, formatFloat(centroidSeq[centIdx]), cell.Move)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", filePath, err)
	}
	return nil
}
