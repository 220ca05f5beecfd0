package supercluster

import (
	"fmt"
	"math"

	"github.com/MadAppGang/kdbush"
)

// GetClustersAndPoints returns the clusters and single points inside the
// viewport at the given zoom. Longitudes may exceed [-180, 180] and are
// normalised; latitudes are clamped to [-90, 90]. A viewport crossing the
// antimeridian is split in two, eastern half first.
func (idx *Index) GetClustersAndPoints(westLng, southLat, eastLng, northLat, zoom float64) []*Node {
	if idx.trees == nil {
		return nil
	}

	minLng := math.Mod(math.Mod(westLng+180, 360)+360, 360) - 180
	minLat := clampLat(southLat)
	maxLng := 180.0
	if eastLng != 180 {
		maxLng = math.Mod(math.Mod(eastLng+180, 360)+360, 360) - 180
	}
	maxLat := clampLat(northLat)

	if eastLng-westLng >= 360 {
		minLng, maxLng = -180, 180
	} else if minLng > maxLng {
		east := idx.rangeQuery(minLng, minLat, 180, maxLat, zoom)
		west := idx.rangeQuery(-180, minLat, maxLng, maxLat, zoom)
		return append(east, west...)
	}
	return idx.rangeQuery(minLng, minLat, maxLng, maxLat, zoom)
}

func (idx *Index) rangeQuery(minLng, minLat, maxLng, maxLat, zoom float64) []*Node {
	tr := idx.treeFor(zoom)
	// mercator flips the vertical axis, so the north edge is the low Y
	ids := tr.bush.Range(lngX(minLng), latY(maxLat), lngX(maxLng), latY(minLat))
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = tr.nodes[id]
	}
	return nodes
}

func (idx *Index) treeFor(zoom float64) *tree {
	z := int(math.Floor(zoom))
	if z < idx.opts.MinZoom {
		z = idx.opts.MinZoom
	}
	if z > idx.opts.MaxZoom+1 {
		z = idx.opts.MaxZoom + 1
	}
	return idx.trees[z]
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// GetChildren returns the direct children of a cluster, the nodes it was
// merged from one zoom level finer. Returns ErrNotFound when the id does
// not resolve to a cluster of this index.
func (idx *Index) GetChildren(clusterID int) ([]*Node, error) {
	if idx.trees == nil || clusterID < idx.n {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, clusterID)
	}

	originZoom := (clusterID - idx.n) % 32
	originIndex := (clusterID - idx.n) >> 5
	if originZoom >= len(idx.trees) || idx.trees[originZoom] == nil {
		return nil, fmt.Errorf("%w: id %d decodes to an absent zoom level", ErrNotFound, clusterID)
	}
	tr := idx.trees[originZoom]
	if originIndex >= len(tr.nodes) {
		return nil, fmt.Errorf("%w: id %d decodes outside its zoom level", ErrNotFound, clusterID)
	}

	// the pivot still lives in the finer level; its neighbourhood at the
	// radius of the merge contains every node the cluster absorbed
	origin := tr.nodes[originIndex]
	r := idx.opts.Radius / (idx.opts.Extent * math.Exp2(float64(originZoom-1)))

	var children []*Node
	for _, i := range tr.bush.Within(&kdbush.SimplePoint{X: origin.X, Y: origin.Y}, r) {
		if tr.nodes[i].parentID == clusterID {
			children = append(children, tr.nodes[i])
		}
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, clusterID)
	}
	return children, nil
}

// GetLeaves returns the single points under a cluster, paginated by limit
// and offset in the traversal order of GetChildren. limit <= 0 returns
// all of them.
func (idx *Index) GetLeaves(clusterID, limit, offset int) ([]*Node, error) {
	if limit <= 0 {
		limit = math.MaxInt
	}
	if offset < 0 {
		offset = 0
	}
	leaves := make([]*Node, 0)
	if _, err := idx.appendLeaves(&leaves, clusterID, limit, offset, 0); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (idx *Index) appendLeaves(result *[]*Node, clusterID, limit, offset, skipped int) (int, error) {
	children, err := idx.GetChildren(clusterID)
	if err != nil {
		return skipped, err
	}
	for _, child := range children {
		switch {
		case child.IsCluster():
			if skipped+child.NumPoints <= offset {
				// skip the whole subtree without descending
				skipped += child.NumPoints
			} else {
				skipped, err = idx.appendLeaves(result, child.ID, limit, offset, skipped)
				if err != nil {
					return skipped, err
				}
			}
		case skipped < offset:
			skipped++
		default:
			*result = append(*result, child)
		}
		if len(*result) == limit {
			break
		}
	}
	return skipped, nil
}

// GetClusterExpansionZoom returns the zoom at which the cluster first
// breaks apart into more than one node.
func (idx *Index) GetClusterExpansionZoom(clusterID int) (int, error) {
	if idx.trees == nil || clusterID < idx.n {
		return 0, fmt.Errorf("%w: id %d", ErrNotFound, clusterID)
	}

	zoom := (clusterID-idx.n)%32 - 1
	for zoom <= idx.opts.MaxZoom {
		children, err := idx.GetChildren(clusterID)
		if err != nil {
			return 0, err
		}
		zoom++
		if len(children) != 1 || !children[0].IsCluster() {
			break
		}
		clusterID = children[0].ID
	}
	return zoom, nil
}
