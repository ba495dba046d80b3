package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalavg/tsdba/pkg/dtw"
)

func TestWritePathTerminalToAnchorOrder(t *testing.T) {
	// A trivial 2x2 anchor-first path: (0,0) DIAGONAL-free anchor, then
	// (1,1) diagonal terminal.
	path := []dtw.PathCell{
		{Row: 0, Col: 0, Move: dtw.NIL},
		{Row: 1, Col: 1, Move: dtw.Diagonal},
	}
	seq := []float64{10, 20}
	centroidSeq := []float64{100, 200}

	prefix := filepath.Join(t.TempDir(), "run")
	require.NoError(t, WritePath(prefix, 0, "seqA", path, seq, centroidSeq, false))

	data, err := os.ReadFile(prefix + PathSuffix(0))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "seqA", lines[0])
	assert.Equal(t, "1\t20\t1\t200\tDIAGONAL", lines[1])
	assert.Equal(t, "0\t10\t0\t100\tNIL", lines[2])
}
