package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ClusterMembershipSuffix is the file suffix for spec §6's
// cluster_membership.txt.
const ClusterMembershipSuffix = ".cluster_membership.txt"

// Membership is one sequence's clustering outcome: its cluster id and the
// name of that cluster's medoid.
type Membership struct {
	ClusterID  int
	MedoidName string
}

// WriteClusterMembership writes prefix+ClusterMembershipSuffix: a header
// line naming the cutoff, then `name<TAB>cluster_id<TAB>medoid_name` per
// sequence, in names order (spec §6).
func WriteClusterMembership(prefix string, names []string, cdist float64, memberships []Membership) error {
	path := prefix + ClusterMembershipSuffix
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("checkpoint: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "## cluster distance threshold was %v\n", cdist)
	for i, name := range names {
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, memberships[i].ClusterID, memberships[i].MedoidName)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	return nil
}

// ReadClusterMembership reads a cluster_membership.txt for the
// CONSENSUS_ONLY resume path (spec §4.G: "Read from a previous call").
// Returns names in file order, each one's Membership, and the cdist
// recorded in the header.
func ReadClusterMembership(path string) (names []string, memberships []Membership, cdist float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("checkpoint: opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if first {
			first = false
			if strings.HasPrefix(line, "##") {
				fields := strings.Fields(line)
				if len(fields) > 0 {
					cdist, _ = strconv.ParseFloat(fields[len(fields)-1], 64)
				}
				continue
			}
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, nil, 0, fmt.Errorf("checkpoint: %s: malformed membership line %q", path, line)
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, 0, fmt.Errorf("checkpoint: %s: invalid cluster id %q: %w", path, fields[1], err)
		}
		names = append(names, fields[0])
		memberships = append(memberships, Membership{ClusterID: id, MedoidName: fields[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, 0, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}
	return names, memberships, cdist, nil
}
