package dtw

// Step encodes the chosen predecessor move at one DP cell — the six-symbol
// alphabet of the step matrix (spec §3's "Step matrix" table).
type Step byte

const (
	// NIL marks the anchor cell (0,0); backtrace terminates here.
	NIL Step = iota
	// NilOpenRight marks the terminal of an open alignment; backtrace
	// also terminates here, but the cell is not the (0,0) anchor.
	NilOpenRight
	// Diagonal: predecessor is (col-1, row-1).
	Diagonal
	// Right: predecessor is (col-1, row).
	Right
	// Up: predecessor is (col, row-1).
	Up
	// OpenRight is a Right move excluded from centroid accumulation —
	// the "coasting" tail of an open-end alignment.
	OpenRight
)

func (s Step) String() string {
	switch s {
	case NIL:
		return "NIL"
	case NilOpenRight:
		return "NIL_OPEN_RIGHT"
	case Diagonal:
		return "DIAGONAL"
	case Right:
		return "RIGHT"
	case Up:
		return "UP"
	case OpenRight:
		return "OPEN_RIGHT"
	default:
		return "INVALID"
	}
}
