package checkpoint

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EvolvingCentroidSuffix builds the per-cluster evolving-centroid file
// name: prefix + "." + clusterID + ".evolving_centroid.txt" (spec §6).
func EvolvingCentroidSuffix(clusterID int) string {
	return "." + strconv.Itoa(clusterID) + ".evolving_centroid.txt"
}

// WriteEvolvingCentroid overwrites prefix+EvolvingCentroidSuffix(clusterID)
// with a single space-separated line of centroidSeq's values (spec §6),
// the per-round checkpoint a DBA.Refine caller persists after every
// non-converging round (spec §4.G step e).
func WriteEvolvingCentroid(prefix string, clusterID int, centroidSeq []float64) error {
	path := prefix + EvolvingCentroidSuffix(clusterID)
	parts := make([]string, len(centroidSeq))
	for i, v := range centroidSeq {
		parts[i] = formatFloat(v)
	}
	data := strings.Join(parts, " ") + "\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	return writeChecksum(path, []byte(data))
}

// ReadEvolvingCentroid reads a previously checkpointed centroid for
// clusterID, for DBA restart (spec §4.G: "resume from checkpoint"). A
// missing file returns (nil, false, nil): the caller should seed from the
// medoid instead, per spec §7's "missing/corrupt checkpoint: warn,
// discard, continue from scratch for that cluster".
func ReadEvolvingCentroid(prefix string, clusterID int) ([]float64, bool, error) {
	path := prefix + EvolvingCentroidSuffix(clusterID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}
	ok, err := verifyChecksum(path, data)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil, false, nil
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false, fmt.Errorf("checkpoint: %s: invalid centroid value %q: %w", path, f, err)
		}
		values[i] = v
	}
	return values, true, nil
}

// DeleteEvolvingCentroid removes a cluster's checkpoint file once its
// centroid has converged and been written to the averages file (spec
// §3: "deleted on convergence"). Missing files are not an error.
func DeleteEvolvingCentroid(prefix string, clusterID int) error {
	path := prefix + EvolvingCentroidSuffix(clusterID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: removing %s: %w", path, err)
	}
	return removeChecksum(path)
}
