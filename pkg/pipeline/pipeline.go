// Package pipeline wires the leaf components (pkg/seqset, pkg/allpairs,
// pkg/cluster, pkg/dba, pkg/checkpoint) into the three algo_mode runs of spec
// §6: CLUSTER_ONLY, CONSENSUS_ONLY, and CLUSTER_AND_CONSENSUS. This is the
// Go realization of performDBA's top-level control flow in the original
// pipeline's dba.hpp.
package pipeline

import (
	"fmt"
	"math"

	"github.com/signalavg/tsdba/pkg/allpairs"
	"github.com/signalavg/tsdba/pkg/checkpoint"
	"github.com/signalavg/tsdba/pkg/cluster"
	"github.com/signalavg/tsdba/pkg/config"
	"github.com/signalavg/tsdba/pkg/dba"
	"github.com/signalavg/tsdba/pkg/device"
	"github.com/signalavg/tsdba/pkg/exitcode"
	"github.com/signalavg/tsdba/pkg/seqset"
)

// manifestDirSuffix names the BadgerDB directory that backs each run's
// resume manifest, sitting alongside the text-file artifacts under the
// same output prefix.
const manifestDirSuffix = ".ledger"

// Logger is the minimal progress-reporting surface Run needs; *log.Logger
// satisfies it, as does testing's t.Logf wrapped in a closure.
type Logger interface {
	Printf(format string, v ...interface{})
}

// nopLogger discards everything; used when callers pass a nil Logger.
type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// Run executes cfg's algo_mode end to end, writing every artifact spec
// §4.H names under cfg.Input.OutputPrefix. Returned errors are a
// *exitcode.Error (for a stable, documented failure), except a failure to
// read the input sequence files, which is returned as is and which
// cmd/tsdba maps to exit code 1.
func Run(cfg *config.Config, log Logger) error {
	if log == nil {
		log = nopLogger{}
	}

	switch cfg.Alignment.AlgoMode {
	case config.ClusterOnly, config.ConsensusOnly, config.ClusterAndConsensus:
	default:
		return exitcode.Wrap(exitcode.UnknownAlgoMode, fmt.Errorf("pipeline: unknown algo_mode %d", cfg.Alignment.AlgoMode))
	}

	set, err := seqset.ReadMany(cfg.Input.Paths)
	if err != nil {
		return err
	}
	set.Sanitize()
	if cfg.Alignment.NormSequences {
		set.Normalize()
	}
	set.SortByLength()
	log.Printf("loaded %d sequences from %d container(s)", set.Len(), len(cfg.Input.Paths))

	mgr := device.NewManager(cfg.Engine.DeviceCount, cfg.Engine.DeviceMemoryBytes, cfg.Engine.LanesPerDevice)
	defer mgr.Close()

	ldgr, err := checkpoint.Open(cfg.Input.OutputPrefix + manifestDirSuffix)
	if err != nil {
		return exitcode.Wrap(exitcode.CannotWriteAverages, err)
	}
	defer ldgr.Close()
	if err := ldgr.RecordManifest(checkpoint.Manifest{
		InputPaths:    cfg.Input.Paths,
		CDist:         cfg.Alignment.CDist,
		AlgoMode:      int(cfg.Alignment.AlgoMode),
		OpenStart:     cfg.Alignment.OpenStart,
		OpenEnd:       cfg.Alignment.OpenEnd,
		NormSequences: cfg.Alignment.NormSequences,
	}); err != nil {
		return exitcode.Wrap(exitcode.CannotWriteAverages, err)
	}

	var names []string
	var clusterIDs []int
	var medoidIdx []int // medoidIdx[clusterID] = sequence index of that cluster's medoid

	if cfg.Alignment.AlgoMode == config.ConsensusOnly {
		names, clusterIDs, medoidIdx, err = loadMembership(cfg, set)
		if err != nil {
			return err
		}
	} else {
		names, clusterIDs, medoidIdx, err = clusterSequences(cfg, set, mgr, log)
		if err != nil {
			return err
		}
		if cfg.Alignment.AlgoMode == config.ClusterOnly {
			return nil
		}
	}

	return runConsensus(cfg, set, names, clusterIDs, medoidIdx, mgr, ldgr, log)
}

// approxMedoidSampleSize picks the anchor count for the --approx-medoids
// fast path (SPEC_FULL.md §5): sqrt(n) scales the O(n·sampleSize) pre-pass
// sub-quadratically while still keeping a handful of anchors for tiny n.
func approxMedoidSampleSize(n int) int {
	s := int(math.Ceil(math.Sqrt(float64(n))))
	if s < 8 {
		s = 8
	}
	if s > n {
		s = n
	}
	return s
}

// clusterSequences runs spec §4.E (all-pairs DTW) and §4.F (clustering +
// medoid selection), persisting pair_dists.txt and cluster_membership.txt.
func clusterSequences(cfg *config.Config, set *seqset.Set, mgr *device.Manager, log Logger) (names []string, clusterIDs, medoidIdx []int, err error) {
	allpairsOpts := allpairs.Options{
		OpenStart:       cfg.Alignment.OpenStart,
		OpenEnd:         cfg.Alignment.OpenEnd,
		SwathWidth:      cfg.Engine.ThreadblockWidth,
		StripedHeadroom: cfg.Engine.StripedMemoryHeadroom,
	}

	var matrix *allpairs.Matrix
	if cfg.Engine.ApproxMedoids {
		anchors := cluster.ApproximateMedoids(set.Len(), approxMedoidSampleSize(set.Len()))
		matrix, err = allpairs.ComputeApprox(set, mgr, allpairsOpts, anchors)
		if err != nil {
			return nil, nil, nil, exitcode.Wrap(exitcode.CannotAllocatePairwiseArray, err)
		}
		log.Printf("approx-medoids: seeded clustering from %d/%d anchor sequences", len(anchors), set.Len())
	} else {
		matrix, err = allpairs.Compute(set, mgr, allpairsOpts)
		if err != nil {
			return nil, nil, nil, exitcode.Wrap(exitcode.CannotAllocatePairwiseArray, err)
		}
	}
	log.Printf("computed %d pairwise distances, max=%v", len(matrix.Flat), matrix.Max)

	if err := checkpoint.WritePairDists(cfg.Input.OutputPrefix, set.Names, matrix); err != nil {
		return nil, nil, nil, exitcode.Wrap(exitcode.CannotWriteDistanceMatrix, err)
	}

	dendro := cluster.HierarchicalCluster(matrix.Normalized())
	clusterIDs, err = cluster.Cut(dendro, cfg.Alignment.CDist)
	if err != nil {
		return nil, nil, nil, exitcode.Wrap(exitcode.MedoidFindingError, err)
	}

	numClusters := 0
	for _, id := range clusterIDs {
		if id+1 > numClusters {
			numClusters = id + 1
		}
	}
	membersByCluster := make([][]int, numClusters)
	for i, id := range clusterIDs {
		membersByCluster[id] = append(membersByCluster[id], i)
	}

	medoidIdx = make([]int, numClusters)
	lengths := make([]int, set.Len())
	for i, seq := range set.Sequences {
		lengths[i] = len(seq)
	}
	for c, members := range membersByCluster {
		medoidIdx[c] = cluster.MedoidOf(members, lengths, matrix.At)
	}

	memberships := make([]checkpoint.Membership, set.Len())
	for i, id := range clusterIDs {
		memberships[i] = checkpoint.Membership{ClusterID: id, MedoidName: set.Names[medoidIdx[id]]}
	}
	if err := checkpoint.WriteClusterMembership(cfg.Input.OutputPrefix, set.Names, cfg.Alignment.CDist, memberships); err != nil {
		return nil, nil, nil, exitcode.Wrap(exitcode.CannotWriteMembership, err)
	}
	log.Printf("found %d clusters using complete linkage and cutoff %v", numClusters, cfg.Alignment.CDist)

	return set.Names, clusterIDs, medoidIdx, nil
}

// loadMembership implements the CONSENSUS_ONLY resume path: read a prior
// run's cluster_membership.txt instead of reclustering (spec §4.G: "Read
// from a previous call to this method").
func loadMembership(cfg *config.Config, set *seqset.Set) (names []string, clusterIDs, medoidIdx []int, err error) {
	path := cfg.Input.OutputPrefix + checkpoint.ClusterMembershipSuffix
	names, memberships, _, err := checkpoint.ReadClusterMembership(path)
	if err != nil {
		return nil, nil, nil, exitcode.Wrap(exitcode.CannotReadMembership, err)
	}
	nameToIdx := make(map[string]int, len(set.Names))
	for i, n := range set.Names {
		nameToIdx[n] = i
	}

	clusterIDs = make([]int, len(names))
	numClusters := 0
	medoidNameByCluster := map[int]string{}
	for i, m := range memberships {
		clusterIDs[i] = m.ClusterID
		if m.ClusterID+1 > numClusters {
			numClusters = m.ClusterID + 1
		}
		medoidNameByCluster[m.ClusterID] = m.MedoidName
	}
	medoidIdx = make([]int, numClusters)
	for c, medoidName := range medoidNameByCluster {
		idx, ok := nameToIdx[medoidName]
		if !ok {
			return nil, nil, nil, exitcode.Wrap(exitcode.CannotReadMembership,
				fmt.Errorf("pipeline: membership file names medoid %q not present in input sequences", medoidName))
		}
		medoidIdx[c] = idx
	}
	// Reorder clusterIDs to match set's (sorted) sequence order rather
	// than the membership file's (possibly different) order.
	reordered := make([]int, set.Len())
	for i, n := range names {
		idx, ok := nameToIdx[n]
		if !ok {
			return nil, nil, nil, exitcode.Wrap(exitcode.CannotReadMembership,
				fmt.Errorf("pipeline: membership file names sequence %q not present in input sequences", n))
		}
		reordered[idx] = clusterIDs[i]
	}
	return set.Names, reordered, medoidIdx, nil
}

// runConsensus implements spec §4.G for every cluster: resume from
// checkpoint where possible, refine, and persist the converged average,
// skipping clusters already recorded in avg.txt (spec §4.H resume rule).
func runConsensus(cfg *config.Config, set *seqset.Set, names []string, clusterIDs, medoidIdx []int, mgr *device.Manager, ldgr *checkpoint.Ledger, log Logger) error {
	numClusters := len(medoidIdx)
	membersByCluster := make([][]int, numClusters)
	for i, id := range clusterIDs {
		membersByCluster[id] = append(membersByCluster[id], i)
	}

	completed, err := checkpoint.ReadAverages(cfg.Input.OutputPrefix)
	if err != nil {
		return exitcode.Wrap(exitcode.CannotReadAverages, err)
	}
	startCluster := len(completed)
	if startCluster > 0 {
		log.Printf("restarting convergence with cluster %d/%d based on checkpoint in %s", startCluster+1, numClusters, cfg.Input.OutputPrefix+checkpoint.AveragesSuffix)
	}

	opts := dba.Options{
		OpenStart:       cfg.Alignment.OpenStart,
		OpenEnd:         cfg.Alignment.OpenEnd,
		RoundLimit:      cfg.Engine.RoundLimit,
		SwathWidth:      cfg.Engine.ThreadblockWidth,
		StripedHeadroom: cfg.Engine.StripedMemoryHeadroom,
		Rescale:         cfg.Engine.Rescale,
	}

	for c := startCluster; c < numClusters; c++ {
		medoidSeq := set.Sequences[medoidIdx[c]]
		members := make([][]float64, 0, len(membersByCluster[c]))
		for _, idx := range membersByCluster[c] {
			if idx == medoidIdx[c] {
				continue
			}
			members = append(members, set.Sequences[idx])
		}

		seed := medoidSeq
		if resumed, ok, err := checkpoint.ReadEvolvingCentroid(cfg.Input.OutputPrefix, c); err != nil {
			log.Printf("cluster %d: ignoring corrupt evolving centroid checkpoint: %v", c, err)
		} else if ok {
			seed = resumed
			log.Printf("cluster %d: resuming from evolving centroid checkpoint (len=%d)", c, len(resumed))
		}

		ckpt := &fileCheckpoint{prefix: cfg.Input.OutputPrefix, clusterID: c, ledger: ldgr}
		result, err := dba.Refine(seed, members, mgr, opts, ckpt)
		if err != nil {
			return exitcode.Wrap(exitcode.MedoidFindingError, fmt.Errorf("pipeline: cluster %d: %w", c, err))
		}
		log.Printf("cluster %d converged=%v flipFlop=%v after %d round(s)", c, result.Converged, result.FlipFlop, result.Rounds)

		if err := checkpoint.AppendAverage(cfg.Input.OutputPrefix, checkpoint.Average{
			MedoidName: names[medoidIdx[c]],
			Values:     result.Centroid,
		}); err != nil {
			return exitcode.Wrap(exitcode.CannotWriteAverages, err)
		}
		if err := checkpoint.DeleteEvolvingCentroid(cfg.Input.OutputPrefix, c); err != nil {
			return exitcode.Wrap(exitcode.CannotWriteAverages, err)
		}
		if ldgr != nil {
			if err := ldgr.MarkDone(c); err != nil {
				return exitcode.Wrap(exitcode.CannotWriteAverages, err)
			}
		}
	}
	return nil
}

// fileCheckpoint adapts pkg/checkpoint's evolving-centroid writer to
// dba.Checkpoint for one cluster's refinement run, additionally recording
// each round's progress to the BadgerDB-backed resume manifest for
// crash-safe, queryable diagnostics (spec §4.H's checkpoint requirement
// applies to the text file; the manifest entry is supplementary
// bookkeeping).
type fileCheckpoint struct {
	prefix    string
	ledger    *checkpoint.Ledger
	clusterID int
}

func (c *fileCheckpoint) SaveEvolvingCentroid(round int, centroidSeq []float64) error {
	if err := checkpoint.WriteEvolvingCentroid(c.prefix, c.clusterID, centroidSeq); err != nil {
		return err
	}
	if c.ledger != nil {
		return c.ledger.RecordRound(c.clusterID, round)
	}
	return nil
}
