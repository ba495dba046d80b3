// Command tsdba computes a DTW Barycenter Average over a collection of
// numeric time series, optionally partitioned into clusters (spec §1).
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/signalavg/tsdba/pkg/config"
	"github.com/signalavg/tsdba/pkg/exitcode"
	"github.com/signalavg/tsdba/pkg/pipeline"
)

var version = "0.1.0"

func main() {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:     "tsdba [sequence-file...]",
		Short:   "DTW Barycenter Average over a collection of numeric time series",
		Version: version,
		Long: `tsdba computes an all-pairs DTW distance matrix over a collection of
numeric time series, clusters them by complete-linkage hierarchical
clustering, and iteratively refines one representative "average" sequence
per cluster via DTW Barycenter Averaging.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Input.Paths = args
			return runTsdba(cfg)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfg.Input.OutputPrefix, "prefix", "", "output prefix for all persisted files (required)")
	flags.BoolVar(&cfg.Alignment.OpenStart, "open-start", cfg.Alignment.OpenStart, "allow the alignment to begin anywhere along the centroid")
	flags.BoolVar(&cfg.Alignment.OpenEnd, "open-end", cfg.Alignment.OpenEnd, "allow the alignment to end anywhere along the centroid")
	flags.Float64Var(&cfg.Alignment.CDist, "cdist", cfg.Alignment.CDist, "cluster cut policy: >1 target cluster count, =1 force one cluster, [0,1) dendrogram height cut")
	flags.IntVar((*int)(&cfg.Alignment.AlgoMode), "algo-mode", int(cfg.Alignment.AlgoMode), "1=CLUSTER_ONLY, 2=CONSENSUS_ONLY, 3=CLUSTER_AND_CONSENSUS")
	flags.BoolVar(&cfg.Alignment.NormSequences, "norm-sequences", cfg.Alignment.NormSequences, "z-normalize every sequence before alignment")
	flags.IntVar(&cfg.Engine.DeviceCount, "devices", cfg.Engine.DeviceCount, "number of parallel devices to round-robin work across")
	flags.IntVar(&cfg.Engine.ThreadblockWidth, "swath-width", cfg.Engine.ThreadblockWidth, "DTW cost-kernel swath width T")
	flags.IntVar(&cfg.Engine.RoundLimit, "round-limit", cfg.Engine.RoundLimit, "maximum DBA refinement rounds per cluster")
	flags.BoolVar(&cfg.Engine.Rescale, "rescale", cfg.Engine.Rescale, "rescale converged centroids into the seeding medoid's (mean,std) domain")
	flags.BoolVar(&cfg.Engine.ApproxMedoids, "approx-medoids", cfg.Engine.ApproxMedoids, "seed clustering from a sampled anchor subset instead of the full pairwise matrix")
	flags.Uint64Var(&cfg.Engine.DeviceMemoryBytes, "device-memory-bytes", cfg.Engine.DeviceMemoryBytes, "simulated per-device memory budget, used to trigger striped mode")
	flags.String("config", "", "optional YAML run-config file, applied before flags")

	rootCmd.AddCommand(versionCmd())
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	cobra.OnInitialize(func() {
		// Flags are already parsed into cfg here: remember the ones given
		// on the command line and re-apply them after the YAML file and the
		// environment, so that flags win.
		explicit := map[string]string{}
		rootCmd.Flags().Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })
		if path, _ := rootCmd.Flags().GetString("config"); path != "" {
			if err := cfg.LoadYAML(path); err != nil {
				log.Fatal(err)
			}
		}
		cfg.MergeEnv()
		for name, value := range explicit {
			if err := rootCmd.Flags().Set(name, value); err != nil {
				log.Fatal(err)
			}
		}
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tsdba v%s\n", version)
		},
	}
}

func runTsdba(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)
	if err := pipeline.Run(cfg, logger); err != nil {
		return err
	}
	logger.Printf("done: output prefix %s", cfg.Input.OutputPrefix)
	return nil
}

// exitCodeFor recovers the stable exit code spec §6 names from any error
// pipeline.Run returns, defaulting to 1 for errors that never went through
// exitcode.Wrap (flag parsing, config validation).
func exitCodeFor(err error) int {
	var exitErr *exitcode.Error
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "tsdba:", exitErr.Error())
		return int(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "tsdba:", err)
	return 1
}
