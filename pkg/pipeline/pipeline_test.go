package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalavg/tsdba/pkg/checkpoint"
	"github.com/signalavg/tsdba/pkg/config"
)

func writeTabDelimited(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestTwoIdenticalSequencesConverge mirrors spec §8's E1 scenario: two
// identical length-10 sequences of value 1.0 should produce D(0,1)=0, a
// single forced cluster, and a centroid equal to the input, converging in
// one round.
func TestTwoIdenticalSequencesConverge(t *testing.T) {
	dir := t.TempDir()
	ones := "1\t1\t1\t1\t1\t1\t1\t1\t1\t1"
	inPath := writeTabDelimited(t, dir, "seqs.tsv", []string{
		"s1\t" + ones,
		"s2\t" + ones,
	})

	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{inPath}
	cfg.Input.OutputPrefix = filepath.Join(dir, "run")
	cfg.Alignment.CDist = 1 // force one cluster
	cfg.Alignment.AlgoMode = config.ClusterAndConsensus
	cfg.Engine.DeviceCount = 1

	require.NoError(t, Run(cfg, nil))

	_, matrix, err := checkpoint.ReadPairDists(cfg.Input.OutputPrefix + checkpoint.PairDistsSuffix)
	require.NoError(t, err)
	assert.Equal(t, 0.0, matrix.At(0, 1))

	averages, err := checkpoint.ReadAverages(cfg.Input.OutputPrefix)
	require.NoError(t, err)
	require.Len(t, averages, 1)
	for _, v := range averages[0].Values {
		assert.InDelta(t, 1.0, v, 1e-9)
	}
}

// TestClusterOnlyStopsBeforeConsensus checks that CLUSTER_ONLY writes the
// clustering artifacts but never produces an averages file.
func TestClusterOnlyStopsBeforeConsensus(t *testing.T) {
	dir := t.TempDir()
	inPath := writeTabDelimited(t, dir, "seqs.tsv", []string{
		"s1\t1\t2\t3\t4",
		"s2\t1\t1\t2\t3\t3\t4",
	})

	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{inPath}
	cfg.Input.OutputPrefix = filepath.Join(dir, "run")
	cfg.Alignment.AlgoMode = config.ClusterOnly
	cfg.Engine.DeviceCount = 1

	require.NoError(t, Run(cfg, nil))

	_, err := os.Stat(cfg.Input.OutputPrefix + checkpoint.ClusterMembershipSuffix)
	require.NoError(t, err)
	_, err = os.Stat(cfg.Input.OutputPrefix + checkpoint.AveragesSuffix)
	assert.True(t, os.IsNotExist(err))
}

// TestConsensusOnlyResumesFromMembership runs CLUSTER_AND_CONSENSUS, wipes
// the averages file, then reruns CONSENSUS_ONLY and checks it reproduces
// the same averages without reclustering (spec §8 R3).
func TestConsensusOnlyResumesFromMembership(t *testing.T) {
	dir := t.TempDir()
	ones := "1\t1\t1\t1\t1"
	inPath := writeTabDelimited(t, dir, "seqs.tsv", []string{
		"s1\t" + ones,
		"s2\t" + ones,
		"s3\t" + ones,
	})

	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{inPath}
	cfg.Input.OutputPrefix = filepath.Join(dir, "run")
	cfg.Alignment.CDist = 1
	cfg.Alignment.AlgoMode = config.ClusterAndConsensus
	cfg.Engine.DeviceCount = 1
	require.NoError(t, Run(cfg, nil))

	first, err := checkpoint.ReadAverages(cfg.Input.OutputPrefix)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, os.Remove(cfg.Input.OutputPrefix+checkpoint.AveragesSuffix))

	cfg.Alignment.AlgoMode = config.ConsensusOnly
	require.NoError(t, Run(cfg, nil))

	second, err := checkpoint.ReadAverages(cfg.Input.OutputPrefix)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].MedoidName, second[0].MedoidName)
	assert.InDeltaSlice(t, first[0].Values, second[0].Values, 1e-9)
}

func TestUnknownAlgoModeReturnsExitCode(t *testing.T) {
	dir := t.TempDir()
	inPath := writeTabDelimited(t, dir, "seqs.tsv", []string{"s1\t1\t2\t3"})

	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{inPath}
	cfg.Input.OutputPrefix = filepath.Join(dir, "run")
	cfg.Alignment.AlgoMode = config.AlgoMode(9)

	err := Run(cfg, nil)
	require.Error(t, err)
}
