package supercluster

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewportAcrossAntimeridian(t *testing.T) {
	idx := loadIndex(t, DefaultOptions(), []testPoint{
		{lon: -179, lat: 0},
		{lon: 179, lat: 0},
	})

	nodes := idx.GetClustersAndPoints(170, -10, -170, 10, 0)
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		assert.False(t, n.IsCluster())
	}
	// eastern half first
	assert.Equal(t, 1, nodes[0].Index)
	assert.Equal(t, 0, nodes[1].Index)

	// the wrapped viewport is the union of its two halves
	east := idx.GetClustersAndPoints(170, -10, 180, 10, 0)
	west := idx.GetClustersAndPoints(-180, -10, -170, 10, 0)
	assert.ElementsMatch(t, nodes, append(east, west...))
}

func TestFullGlobeQueries(t *testing.T) {
	idx := loadIndex(t, DefaultOptions(), randomPoints(100, 7))

	for _, z := range []float64{0, 3, 8, 16, 17} {
		full := globe(idx, z)
		assert.Len(t, full, len(idx.treeFor(z).nodes), "zoom %v", z)

		// a 360 degree wide viewport is the whole globe wherever it starts
		wrapped := idx.GetClustersAndPoints(-300, -90, 60, 90, z)
		assert.ElementsMatch(t, full, wrapped, "zoom %v", z)

		wider := idx.GetClustersAndPoints(500, -90, 1000, 90, z)
		assert.ElementsMatch(t, full, wider, "zoom %v", z)
	}
}

func TestViewportMatchesBruteForce(t *testing.T) {
	idx := loadIndex(t, DefaultOptions(), randomPoints(300, 11))

	viewports := [][4]float64{
		{10, 20, 40, 50},
		{-120, -60, -30, 10},
		{-1, -1, 1, 1},
		{150, 40, 179, 80},
	}
	for _, v := range viewports {
		for _, z := range []float64{0, 2, 5, 10, 17} {
			got := idx.GetClustersAndPoints(v[0], v[1], v[2], v[3], z)

			minX, maxX := lngX(v[0]), lngX(v[2])
			minY, maxY := latY(v[3]), latY(v[1])
			var want []*Node
			for _, n := range idx.treeFor(z).nodes {
				if n.X >= minX && n.X <= maxX && n.Y >= minY && n.Y <= maxY {
					want = append(want, n)
				}
			}
			assert.ElementsMatch(t, want, got, "viewport %v zoom %v", v, z)
		}
	}
}

func TestFractionalZoomIsFloored(t *testing.T) {
	idx := loadIndex(t, DefaultOptions(), randomPoints(50, 3))

	assert.ElementsMatch(t, globe(idx, 4), globe(idx, 4.7))
	assert.ElementsMatch(t, globe(idx, 17), globe(idx, 25))
	assert.ElementsMatch(t, globe(idx, 0), globe(idx, -3))
}

func TestChildrenOfUnknownID(t *testing.T) {
	opts := DefaultOptions()
	opts.MinZoom = 3
	idx := loadIndex(t, opts, randomPoints(20, 5))

	// below the id range clusters live in
	_, err := idx.GetChildren(0)
	assert.ErrorIs(t, err, ErrNotFound)

	// decodes to a zoom level that was never built
	_, err = idx.GetChildren(idx.n + 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// decodes past the end of its level
	_, err = idx.GetChildren(idx.n + (100000 << 5) + 17)
	assert.ErrorIs(t, err, ErrNotFound)

	// derived lookups propagate the failure
	_, err = idx.GetLeaves(0, 10, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = idx.GetClusterExpansionZoom(0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeavesPaginationCoversSubtree(t *testing.T) {
	// an evenly spaced run wide enough to build a few cluster levels
	pts := make([]testPoint, 30)
	for i := range pts {
		pts[i] = testPoint{lon: 0.01 * float64(i), lat: 0}
	}
	idx := loadIndex(t, DefaultOptions(), pts)

	nodes := globe(idx, 0)
	require.Len(t, nodes, 1)
	cluster := nodes[0]
	require.True(t, cluster.IsCluster())
	require.Equal(t, 30, cluster.NumPoints)

	all, err := idx.GetLeaves(cluster.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 30)

	var paged []*Node
	for offset := 0; offset < 30; offset += 7 {
		page, err := idx.GetLeaves(cluster.ID, 7, offset)
		require.NoError(t, err)
		paged = append(paged, page...)
	}
	assert.Equal(t, all, paged)

	empty, err := idx.GetLeaves(cluster.ID, 7, 30)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClusterExpansionZoom(t *testing.T) {
	// one degree apart: merged at zoom 4, separate from zoom 5 on
	idx := loadIndex(t, DefaultOptions(), []testPoint{
		{lon: 0, lat: 0},
		{lon: 1, lat: 0},
	})

	require.Len(t, globe(idx, 5), 2)
	nodes := globe(idx, 4)
	require.Len(t, nodes, 1)
	require.True(t, nodes[0].IsCluster())

	zoom, err := idx.GetClusterExpansionZoom(nodes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, zoom)
}

func TestExpansionZoomAtMaxZoomCluster(t *testing.T) {
	idx := loadIndex(t, DefaultOptions(), []testPoint{
		{lon: 0, lat: 0},
		{lon: 0.0001, lat: 0},
	})

	nodes := globe(idx, 16)
	require.Len(t, nodes, 1)
	require.True(t, nodes[0].IsCluster())

	zoom, err := idx.GetClusterExpansionZoom(nodes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 17, zoom)
}

func TestQueriesAreSafeConcurrently(t *testing.T) {
	idx := loadIndex(t, DefaultOptions(), randomPoints(200, 19))

	var clusterID int
	for _, n := range globe(idx, 0) {
		if n.IsCluster() {
			clusterID = n.ID
			break
		}
	}
	require.NotZero(t, clusterID)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				idx.GetClustersAndPoints(-30, -30, 30, 30, float64(i%18))
				if _, err := idx.GetChildren(clusterID); err != nil {
					t.Error(err)
				}
				if _, err := idx.GetLeaves(clusterID, 5, i%10); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
}
