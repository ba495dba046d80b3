package dtw

import "fmt"

// BacktraceInvariantError is returned when backtrace fails to reach NIL or
// NIL_OPEN_RIGHT within the expected number of steps — the Go surfacing of
// the PTX trap spec §4.A/§7 asserts on the accelerator, raised here at the
// call site instead of at the next device synchronisation.
type BacktraceInvariantError struct {
	Row, Col int
	Move     Step
}

func (e *BacktraceInvariantError) Error() string {
	return fmt.Sprintf("dtw: backtrace invariant violated at (row=%d,col=%d): move=%s", e.Row, e.Col, e.Move)
}

// PathCell is one emitted alignment cell.
type PathCell struct {
	Row, Col int
	Move     Step
}

// Backtrace walks step from (startRow, startCol) back to NIL or
// NIL_OPEN_RIGHT using the fixed move table, emitting cells anchor-first
// (spec §4.B: "the anchor cell itself is emitted"). maxSteps bounds the
// walk; spec invariant I2 guarantees termination within rows+cols steps,
// so exceeding maxSteps without reaching a terminal code is itself the
// invariant violation.
func Backtrace(step [][]Step, startRow, startCol, maxSteps int) ([]PathCell, error) {
	var reversed []PathCell
	row, col := startRow, startCol

	for i := 0; i <= maxSteps; i++ {
		move := step[row][col]
		reversed = append(reversed, PathCell{Row: row, Col: col, Move: move})

		switch move {
		case NIL, NilOpenRight:
			return reverse(reversed), nil
		case Diagonal:
			row--
			col--
		case Right, OpenRight:
			col--
		case Up:
			row--
		default:
			return nil, &BacktraceInvariantError{Row: row, Col: col, Move: move}
		}
		if row < 0 || col < 0 {
			return nil, &BacktraceInvariantError{Row: row, Col: col, Move: move}
		}
	}
	return nil, &BacktraceInvariantError{Row: row, Col: col, Move: step[row][col]}
}

func reverse(cells []PathCell) []PathCell {
	path := make([]PathCell, len(cells))
	for k, c := range cells {
		path[len(cells)-1-k] = c
	}
	return path
}
