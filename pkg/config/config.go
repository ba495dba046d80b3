// Package config handles tsdba's run configuration: the CLI surface of
// spec.md §6 (input paths, output prefix, open_start/open_end, cdist,
// algo_mode, norm_sequences) plus the device/engine tuning knobs that have
// no CLI flag of their own.
//
// Configuration can come from three layers, applied in increasing priority:
//
//  1. Defaults (DefaultConfig)
//  2. An optional YAML run-config file (LoadYAML), for batch/scripted runs
//  3. Environment variables (MergeEnv), all prefixed TSDBA_
//
// The CLI layer (cmd/tsdba) applies flags last, so flags win over
// environment, which wins over the YAML file, which wins over defaults.
//
// Example:
//
//	cfg := config.DefaultConfig()
//	cfg.MergeEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AlgoMode selects which phases of the pipeline a run performs.
type AlgoMode int

const (
	// ClusterOnly runs all-pairs DTW and clustering (§4.E, §4.F) and stops.
	ClusterOnly AlgoMode = 1
	// ConsensusOnly skips clustering (reads cluster_membership.txt from a
	// prior run) and runs DBA refinement (§4.G) only.
	ConsensusOnly AlgoMode = 2
	// ClusterAndConsensus runs the full pipeline end to end.
	ClusterAndConsensus AlgoMode = 3
)

// Config holds all tsdba configuration.
//
// Sections:
//   - Input: sequence containers and output prefix
//   - Alignment: open_start/open_end, cdist, algo_mode, norm_sequences
//   - Engine: device count, threadblock width, round limit, memory policy
type Config struct {
	// Input settings
	Input InputConfig

	// Alignment settings (spec §6 CLI minimum surface)
	Alignment AlignmentConfig

	// Engine tuning, not part of the CLI minimum surface but exposed as
	// flags/env for operators.
	Engine EngineConfig
}

// InputConfig holds sequence-container and output settings.
type InputConfig struct {
	// Paths to one or more sequence containers (tab-delimited files).
	Paths []string
	// OutputPrefix is the `pfx` used to name every persisted file (§6).
	OutputPrefix string
}

// AlignmentConfig holds the alignment-policy flags from spec §6.
type AlignmentConfig struct {
	OpenStart     bool
	OpenEnd       bool
	CDist         float64
	AlgoMode      AlgoMode
	NormSequences bool
}

// EngineConfig holds device/engine tuning knobs.
type EngineConfig struct {
	// DeviceCount is the number of parallel devices to round-robin work
	// across (§5). Defaults to 1.
	DeviceCount int
	// ThreadblockWidth is T, the swath width in columns (§3, §4.A).
	ThreadblockWidth int
	// RoundLimit bounds DBA refinement iterations per cluster (§4.G, default 250).
	RoundLimit int
	// StripedMemoryHeadroom is the 1.05 factor in the striped-mode trigger (§4.C).
	StripedMemoryHeadroom float64
	// DeviceMemoryBytes is the simulated per-device memory budget the
	// default CPU backend enforces (§4.C's trigger condition needs a
	// budget to compare free memory against even without real hardware).
	DeviceMemoryBytes uint64
	// LanesPerDevice bounds how many alignments one device runs at once
	// (the "grid of blocks" concurrency cap of §4.A).
	LanesPerDevice int
	// ApproxMedoids enables the sampled pre-pass from dba.hpp's
	// approximateMedoidIndices before the exact all-pairs run.
	ApproxMedoids bool
	// Rescale applies the medoid (μ,σ) rescale to converged centroids (§4.G.3).
	Rescale bool
}

// DefaultConfig returns tsdba's defaults.
func DefaultConfig() *Config {
	return &Config{
		Alignment: AlignmentConfig{
			OpenStart:     false,
			OpenEnd:       false,
			CDist:         1.0,
			AlgoMode:      ClusterAndConsensus,
			NormSequences: false,
		},
		Engine: EngineConfig{
			DeviceCount:           1,
			ThreadblockWidth:      1024,
			RoundLimit:            250,
			StripedMemoryHeadroom: 1.05,
			ApproxMedoids:         false,
			Rescale:               true,
			DeviceMemoryBytes:     1 << 30, // 1GiB simulated budget per device
			LanesPerDevice:        4,
		},
	}
}

// MergeEnv overlays environment variables (prefixed TSDBA_) onto cfg,
// mutating it in place. Unset variables leave the existing value untouched.
//
// Environment Variables:
//
//	TSDBA_OUTPUT_PREFIX
//	TSDBA_OPEN_START, TSDBA_OPEN_END, TSDBA_NORM_SEQUENCES   ("true"/"false")
//	TSDBA_CDIST                                              (float)
//	TSDBA_ALGO_MODE                                          (1,2,3)
//	TSDBA_DEVICE_COUNT, TSDBA_THREADBLOCK_WIDTH, TSDBA_ROUND_LIMIT (int)
//	TSDBA_APPROX_MEDOIDS, TSDBA_RESCALE                       ("true"/"false")
//	TSDBA_DEVICE_MEMORY_BYTES                                 (uint64)
//	TSDBA_LANES_PER_DEVICE                                    (int)
func (c *Config) MergeEnv() {
	if v, ok := os.LookupEnv("TSDBA_OUTPUT_PREFIX"); ok {
		c.Input.OutputPrefix = v
	}
	mergeBoolEnv("TSDBA_OPEN_START", &c.Alignment.OpenStart)
	mergeBoolEnv("TSDBA_OPEN_END", &c.Alignment.OpenEnd)
	mergeBoolEnv("TSDBA_NORM_SEQUENCES", &c.Alignment.NormSequences)
	mergeFloatEnv("TSDBA_CDIST", &c.Alignment.CDist)
	if v, ok := os.LookupEnv("TSDBA_ALGO_MODE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Alignment.AlgoMode = AlgoMode(n)
		}
	}
	mergeIntEnv("TSDBA_DEVICE_COUNT", &c.Engine.DeviceCount)
	mergeIntEnv("TSDBA_THREADBLOCK_WIDTH", &c.Engine.ThreadblockWidth)
	mergeIntEnv("TSDBA_ROUND_LIMIT", &c.Engine.RoundLimit)
	mergeBoolEnv("TSDBA_APPROX_MEDOIDS", &c.Engine.ApproxMedoids)
	mergeBoolEnv("TSDBA_RESCALE", &c.Engine.Rescale)
	if v, ok := os.LookupEnv("TSDBA_DEVICE_MEMORY_BYTES"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Engine.DeviceMemoryBytes = n
		}
	}
	mergeIntEnv("TSDBA_LANES_PER_DEVICE", &c.Engine.LanesPerDevice)
}

func mergeBoolEnv(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func mergeIntEnv(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func mergeFloatEnv(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// LoadYAML overlays a YAML run-config file onto cfg. Any field absent from
// the file leaves cfg's existing value untouched, since yamlConfig fields
// are pointers.
//
// Example run.yaml:
//
//	input:
//	  paths: ["signals.tsv"]
//	  outputPrefix: "run1"
//	alignment:
//	  openEnd: true
//	  cdist: 0.3
func (c *Config) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	var overlay yamlConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	overlay.applyTo(c)
	return nil
}

type yamlConfig struct {
	Input *struct {
		Paths        []string `yaml:"paths"`
		OutputPrefix *string  `yaml:"outputPrefix"`
	} `yaml:"input"`
	Alignment *struct {
		OpenStart     *bool    `yaml:"openStart"`
		OpenEnd       *bool    `yaml:"openEnd"`
		CDist         *float64 `yaml:"cdist"`
		AlgoMode      *int     `yaml:"algoMode"`
		NormSequences *bool    `yaml:"normSequences"`
	} `yaml:"alignment"`
	Engine *struct {
		DeviceCount       *int    `yaml:"deviceCount"`
		ThreadblockWidth  *int    `yaml:"threadblockWidth"`
		RoundLimit        *int    `yaml:"roundLimit"`
		ApproxMedoids     *bool   `yaml:"approxMedoids"`
		Rescale           *bool   `yaml:"rescale"`
		DeviceMemoryBytes *uint64 `yaml:"deviceMemoryBytes"`
		LanesPerDevice    *int    `yaml:"lanesPerDevice"`
	} `yaml:"engine"`
}

func (o *yamlConfig) applyTo(c *Config) {
	if o.Input != nil {
		if len(o.Input.Paths) > 0 {
			c.Input.Paths = o.Input.Paths
		}
		if o.Input.OutputPrefix != nil {
			c.Input.OutputPrefix = *o.Input.OutputPrefix
		}
	}
	if o.Alignment != nil {
		if o.Alignment.OpenStart != nil {
			c.Alignment.OpenStart = *o.Alignment.OpenStart
		}
		if o.Alignment.OpenEnd != nil {
			c.Alignment.OpenEnd = *o.Alignment.OpenEnd
		}
		if o.Alignment.CDist != nil {
			c.Alignment.CDist = *o.Alignment.CDist
		}
		if o.Alignment.AlgoMode != nil {
			c.Alignment.AlgoMode = AlgoMode(*o.Alignment.AlgoMode)
		}
		if o.Alignment.NormSequences != nil {
			c.Alignment.NormSequences = *o.Alignment.NormSequences
		}
	}
	if o.Engine != nil {
		if o.Engine.DeviceCount != nil {
			c.Engine.DeviceCount = *o.Engine.DeviceCount
		}
		if o.Engine.ThreadblockWidth != nil {
			c.Engine.ThreadblockWidth = *o.Engine.ThreadblockWidth
		}
		if o.Engine.RoundLimit != nil {
			c.Engine.RoundLimit = *o.Engine.RoundLimit
		}
		if o.Engine.ApproxMedoids != nil {
			c.Engine.ApproxMedoids = *o.Engine.ApproxMedoids
		}
		if o.Engine.Rescale != nil {
			c.Engine.Rescale = *o.Engine.Rescale
		}
		if o.Engine.DeviceMemoryBytes != nil {
			c.Engine.DeviceMemoryBytes = *o.Engine.DeviceMemoryBytes
		}
		if o.Engine.LanesPerDevice != nil {
			c.Engine.LanesPerDevice = *o.Engine.LanesPerDevice
		}
	}
}

// Validate checks the configuration for consistency before a run starts.
func (c *Config) Validate() error {
	if len(c.Input.Paths) == 0 {
		return fmt.Errorf("config: at least one input path is required")
	}
	if c.Input.OutputPrefix == "" {
		return fmt.Errorf("config: output prefix is required")
	}
	switch c.Alignment.AlgoMode {
	case ClusterOnly, ConsensusOnly, ClusterAndConsensus:
	default:
		return fmt.Errorf("config: unknown algo_mode %d", c.Alignment.AlgoMode)
	}
	if c.Engine.DeviceCount < 1 {
		return fmt.Errorf("config: device count must be >= 1")
	}
	if c.Engine.ThreadblockWidth < 1 {
		return fmt.Errorf("config: threadblock width must be >= 1")
	}
	if c.Engine.RoundLimit < 1 {
		return fmt.Errorf("config: round limit must be >= 1")
	}
	if c.Engine.DeviceMemoryBytes < 1 {
		return fmt.Errorf("config: device memory budget must be >= 1")
	}
	if c.Engine.LanesPerDevice < 1 {
		return fmt.Errorf("config: lanes per device must be >= 1")
	}
	return nil
}

// String renders the configuration for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{prefix=%s paths=%d open_start=%v open_end=%v cdist=%v algo_mode=%d devices=%d T=%d}",
		c.Input.OutputPrefix, len(c.Input.Paths), c.Alignment.OpenStart,
		c.Alignment.OpenEnd, c.Alignment.CDist, c.Alignment.AlgoMode,
		c.Engine.DeviceCount, c.Engine.ThreadblockWidth,
	)
}
