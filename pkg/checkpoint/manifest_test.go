package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerManifestRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run.ledger")
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	_, ok, err := l.ReadManifest()
	require.NoError(t, err)
	assert.False(t, ok, "fresh ledger has no manifest")

	want := Manifest{
		InputPaths: []string{"a.txt", "b.txt"},
		CDist:      0.3,
		AlgoMode:   1,
		OpenStart:  true,
	}
	require.NoError(t, l.RecordManifest(want))

	got, ok, err := l.ReadManifest()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestLedgerRoundProgressAndDone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run.ledger")
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	_, ok, err := l.LastRound(0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.RecordRound(0, 1))
	require.NoError(t, l.RecordRound(0, 2))
	require.NoError(t, l.RecordRound(1, 1))

	r, ok, err := l.LastRound(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, r.Round)

	done, err := l.IsDone(0)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, l.MarkDone(0))
	done, err = l.IsDone(0)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = l.IsDone(1)
	require.NoError(t, err)
	assert.False(t, done, "marking cluster 0 done must not affect cluster 1")
}

func TestLedgerReopenPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run.ledger")
	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.RecordRound(3, 5))
	require.NoError(t, l.Close())

	l2, err := Open(dir)
	require.NoError(t, err)
	defer l2.Close()

	r, ok, err := l2.LastRound(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, r.Round)
}
