package checkpoint

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AveragesSuffix is the file suffix for spec §6's avg.txt.
const AveragesSuffix = ".avg.txt"

// Average is one cluster's converged centroid, keyed by its seeding
// medoid's name (spec §6: "`medoid_name` then `centroidLength` values").
type Average struct {
	MedoidName string
	Values     []float64
}

// AppendAverage appends one cluster's converged centroid to
// prefix+AveragesSuffix, creating the file if absent. Clusters are written
// in completion order (cluster-id order in a normal run), one per line,
// so readSequenceAverages-equivalent resume logic only ever needs to count
// lines already present (spec §4.H: "write each converged centroid as
// it's calculated").
func AppendAverage(prefix string, avg Average) error {
	path := prefix + AveragesSuffix
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("checkpoint: opening %s for append: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString(avg.MedoidName)
	for _, v := range avg.Values {
		w.WriteByte('\t')
		w.WriteString(formatFloat(v))
	}
	w.WriteByte('\n')
	if err := w.Flush(); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("checkpoint: syncing %s: %w", path, err)
	}
	full, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("checkpoint: reading %s back for checksum: %w", path, err)
	}
	return writeChecksum(path, full)
}

// ReadAverages reads prefix+AveragesSuffix if it exists, returning the
// clusters already converged, in file order. A missing
// file is not an error: it reports zero completed clusters, the fresh-run
// case (spec §4.H: "on restart the driver skips clusters already in the
// averages file").
func ReadAverages(prefix string) ([]Average, error) {
	path := prefix + AveragesSuffix
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: opening %s: %w", path, err)
	}
	ok, err := verifyChecksum(path, data)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Corrupt averages file: treat as if no clusters had converged yet,
		// per spec §7.2's missing/corrupt checkpoint handling.
		return nil, nil
	}

	var out []Average
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		values := make([]float64, 0, len(fields)-1)
		for _, raw := range fields[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("checkpoint: %s: invalid centroid value %q: %w", path, raw, err)
			}
			values = append(values, v)
		}
		out = append(out, Average{MedoidName: fields[0], Values: values})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}
	return out, nil
}
