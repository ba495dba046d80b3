package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidateRequiresInput(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err, "no input paths or prefix set yet")
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.Paths = []string{"seqs.tsv"}
	cfg.Input.OutputPrefix = "run1"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownAlgoMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.Paths = []string{"seqs.tsv"}
	cfg.Input.OutputPrefix = "run1"
	cfg.Alignment.AlgoMode = AlgoMode(9)
	require.Error(t, cfg.Validate())
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("TSDBA_OUTPUT_PREFIX", "envrun")
	t.Setenv("TSDBA_OPEN_END", "true")
	t.Setenv("TSDBA_CDIST", "0.4")
	t.Setenv("TSDBA_ALGO_MODE", "2")
	t.Setenv("TSDBA_DEVICE_COUNT", "4")

	cfg := DefaultConfig()
	cfg.MergeEnv()

	assert.Equal(t, "envrun", cfg.Input.OutputPrefix)
	assert.True(t, cfg.Alignment.OpenEnd)
	assert.Equal(t, 0.4, cfg.Alignment.CDist)
	assert.Equal(t, ConsensusOnly, cfg.Alignment.AlgoMode)
	assert.Equal(t, 4, cfg.Engine.DeviceCount)
}

func TestLoadYAMLOverlaysOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	content := `
input:
  paths: ["a.tsv", "b.tsv"]
  outputPrefix: "yamlrun"
alignment:
  openEnd: true
  cdist: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadYAML(path))

	assert.Equal(t, []string{"a.tsv", "b.tsv"}, cfg.Input.Paths)
	assert.Equal(t, "yamlrun", cfg.Input.OutputPrefix)
	assert.True(t, cfg.Alignment.OpenEnd)
	assert.Equal(t, 0.25, cfg.Alignment.CDist)
	// untouched field keeps the default
	assert.False(t, cfg.Alignment.OpenStart)
}

func TestLoadYAMLMissingFile(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
