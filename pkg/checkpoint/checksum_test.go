package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvolvingCentroidChecksumDetectsCorruption(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run")
	require.NoError(t, WriteEvolvingCentroid(prefix, 0, []float64{1, 2, 3}))

	path := prefix + EvolvingCentroidSuffix(0)
	require.NoError(t, os.WriteFile(path, []byte("9 9 9\n"), 0644))

	got, ok, err := ReadEvolvingCentroid(prefix, 0)
	require.NoError(t, err)
	assert.False(t, ok, "tampered centroid file must be treated as missing")
	assert.Nil(t, got)
}

func TestEvolvingCentroidChecksumMissingSidecarTrusted(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run")
	require.NoError(t, WriteEvolvingCentroid(prefix, 0, []float64{1, 2, 3}))
	require.NoError(t, os.Remove(prefix+EvolvingCentroidSuffix(0)+ChecksumSuffix))

	got, ok, err := ReadEvolvingCentroid(prefix, 0)
	require.NoError(t, err)
	require.True(t, ok, "missing sidecar is trusted, not treated as corrupt")
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestAveragesChecksumDetectsCorruption(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run")
	require.NoError(t, AppendAverage(prefix, Average{MedoidName: "a", Values: []float64{1, 2}}))

	path := prefix + AveragesSuffix
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, []byte("corrupt-extra-line\n")...), 0644))

	completed, err := ReadAverages(prefix)
	require.NoError(t, err)
	assert.Empty(t, completed, "tampered averages file must be treated as if no clusters converged")
}

func TestDeleteEvolvingCentroidRemovesChecksumSidecar(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run")
	require.NoError(t, WriteEvolvingCentroid(prefix, 0, []float64{1}))
	sidecar := prefix + EvolvingCentroidSuffix(0) + ChecksumSuffix
	require.FileExists(t, sidecar)

	require.NoError(t, DeleteEvolvingCentroid(prefix, 0))
	assert.NoFileExists(t, sidecar)
}
