package supercluster

import "github.com/MadAppGang/kdbush"

// Node is one entry of a zoom level: either a single loaded point or a
// cluster aggregating several of them. Coordinates are spherical mercator
// in the [0..1] range; use GeoCoordinates to get back to degrees.
type Node struct {
	X, Y      float64
	NumPoints int
	ID        int // packed cluster id, -1 on single points
	Index     int // position in the loaded point slice, -1 on clusters

	// build state, frozen once Load returns
	zoom     int
	parentID int
}

// IsCluster reports whether the node aggregates more than one point.
func (n *Node) IsCluster() bool {
	return n.Index < 0
}

func (n *Node) Coordinates() (float64, float64) {
	return n.X, n.Y
}

// GeoCoordinates reprojects the node position back to degrees.
func (n *Node) GeoCoordinates() GeoCoordinates {
	return GeoCoordinates{Lon: xLng(n.X), Lat: yLat(n.Y)}
}

// tree is one zoom slot: the node slice plus the KD-tree built over it.
// Query results index into nodes.
type tree struct {
	nodes []*Node
	bush  *kdbush.KDBush
}

func newTree(nodes []*Node, nodeSize int) *tree {
	points := make([]kdbush.Point, len(nodes))
	for i, n := range nodes {
		points[i] = n
	}
	return &tree{
		nodes: nodes,
		bush:  kdbush.NewBush(points, nodeSize),
	}
}
