// Package cluster implements the medoid/cluster selector of spec §4.F:
// complete-linkage hierarchical clustering over the normalized pairwise
// matrix, one of three cut policies selected by a single `cdist`
// parameter, and per-cluster medoid selection.
//
// No example repo ships an importable complete-linkage clusterer with a
// fastcluster-style (merge, height) contract — hclust.go implements it
// directly against the dense distance matrix. See DESIGN.md for why this
// is the one component kept on the standard library by necessity.
package cluster

import "math"

// Dendrogram is a complete-linkage merge tree over N original points:
// N-1 merge steps, each combining two cluster ids (points are 0..N-1; the
// merge at step k produces cluster N+k) at the given height.
type Dendrogram struct {
	N      int
	Merge  []int     // 2*(N-1) entries: Merge[2k], Merge[2k+1] merged at step k
	Height []float64 // N-1 entries, one per merge step
}

// Cluster returns the two cluster ids merged at step k and the id of the
// cluster that merge produces.
func (d *Dendrogram) Cluster(k int) (a, b, newID int) {
	return d.Merge[2*k], d.Merge[2*k+1], d.N + k
}

// HierarchicalCluster runs complete-linkage agglomerative clustering over
// a dense N x N distance matrix, repeatedly merging the two live clusters
// with minimum distance and updating distances to the merged cluster as
// the max of its two parents' distances (the complete-linkage Lance-
// Williams update).
func HierarchicalCluster(dist [][]float64) *Dendrogram {
	n := len(dist)
	if n <= 1 {
		return &Dendrogram{N: n}
	}

	size := 2*n - 1
	d := make([][]float64, size)
	for i := range d {
		d[i] = make([]float64, size)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				d[i][j] = dist[i][j]
			}
		}
	}

	active := make([]int, n)
	for i := range active {
		active[i] = i
	}

	merge := make([]int, 0, 2*(n-1))
	height := make([]float64, 0, n-1)

	for step := 0; step < n-1; step++ {
		bestAI, bestAJ := -1, -1
		bestDist := math.Inf(1)
		for ai := 0; ai < len(active); ai++ {
			for aj := ai + 1; aj < len(active); aj++ {
				i, j := active[ai], active[aj]
				if d[i][j] < bestDist {
					bestDist = d[i][j]
					bestAI, bestAJ = ai, aj
				}
			}
		}

		i, j := active[bestAI], active[bestAJ]
		newID := n + step
		merge = append(merge, i, j)
		height = append(height, bestDist)

		for _, k := range active {
			if k == i || k == j {
				continue
			}
			dmax := d[i][k]
			if d[j][k] > dmax {
				dmax = d[j][k]
			}
			d[newID][k] = dmax
			d[k][newID] = dmax
		}

		next := make([]int, 0, len(active)-1)
		for _, k := range active {
			if k != i && k != j {
				next = append(next, k)
			}
		}
		next = append(next, newID)
		active = next
	}

	return &Dendrogram{N: n, Merge: merge, Height: height}
}
