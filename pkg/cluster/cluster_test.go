package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// E3: three sequences forming two natural groups with cdist=0.3 should
// yield two clusters, one containing {0,1} and one containing {2}.
func TestCutAtHeightTwoNaturalGroups(t *testing.T) {
	dist := [][]float64{
		{0, 0.0001, 25},
		{0.0001, 0, 25},
		{25, 25, 0},
	}
	dendro := HierarchicalCluster(dist)
	labels, err := Cut(dendro, 0.3)
	require.NoError(t, err)

	assert.Equal(t, labels[0], labels[1])
	assert.NotEqual(t, labels[0], labels[2])
}

func TestCutForcesOneClusterAtCdistOne(t *testing.T) {
	dist := [][]float64{
		{0, 1, 10},
		{1, 0, 10},
		{10, 10, 0},
	}
	dendro := HierarchicalCluster(dist)
	labels, err := Cut(dendro, 1)
	require.NoError(t, err)
	for _, l := range labels {
		assert.Equal(t, 0, l)
	}
}

func TestCutRejectsNegativeCdist(t *testing.T) {
	dendro := HierarchicalCluster([][]float64{{0, 1}, {1, 0}})
	_, err := Cut(dendro, -1)
	assert.ErrorIs(t, err, ErrReservedCutPolicy)
}

func TestCutInflatingReachesTargetMultiMemberClusters(t *testing.T) {
	dist := [][]float64{
		{0, 0.1, 10, 10.1},
		{0.1, 0, 10.1, 10},
		{10, 10.1, 0, 0.1},
		{10.1, 10, 0.1, 0},
	}
	dendro := HierarchicalCluster(dist)
	labels, err := Cut(dendro, 2)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, countMultiMemberClusters(labels), 2)
}

func TestHierarchicalClusterDendrogramShape(t *testing.T) {
	dist := [][]float64{
		{0, 1, 5, 9},
		{1, 0, 4, 8},
		{5, 4, 0, 2},
		{9, 8, 2, 0},
	}
	d := HierarchicalCluster(dist)
	assert.Len(t, d.Merge, 2*(4-1))
	assert.Len(t, d.Height, 4-1)
}

func TestMedoidSingleMember(t *testing.T) {
	got := MedoidOf([]int{7}, nil, nil)
	assert.Equal(t, 7, got)
}

func TestMedoidTwoMembersPicksLonger(t *testing.T) {
	lengths := []int{5, 20}
	got := MedoidOf([]int{0, 1}, lengths, nil)
	assert.Equal(t, 1, got)
}

func TestMedoidManyMembersMinimizesSumOfDistances(t *testing.T) {
	dist := [][]float64{
		{0, 1, 1, 10},
		{1, 0, 1, 10},
		{1, 1, 0, 10},
		{10, 10, 10, 0},
	}
	distFn := func(a, b int) float64 { return dist[a][b] }
	got := MedoidOf([]int{0, 1, 2, 3}, nil, distFn)
	assert.Contains(t, []int{0, 1, 2}, got)
}

func TestApproximateMedoidsReturnsAllWhenSampleCoversN(t *testing.T) {
	got := ApproximateMedoids(5, 10)
	assert.Len(t, got, 5)
}

func TestApproximateMedoidsSamples(t *testing.T) {
	got := ApproximateMedoids(100, 10)
	assert.LessOrEqual(t, len(got), 10)
	assert.NotEmpty(t, got)
}
