package supercluster

import (
	"fmt"
	"math"
	"time"

	"github.com/MadAppGang/kdbush"
	"go.uber.org/zap"
)

// zoom sentinel for nodes not yet absorbed into any cluster
const infinityZoom = math.MaxInt32

// DefaultLeavesLimit is the conventional page size for GetLeaves.
const DefaultLeavesLimit = 10

// Options configure an Index.
// Radius is the cluster radius in pixels at tile size Extent; the
// effective radius at zoom z is Radius / (Extent * 2^z) in mercator
// units. NodeSize is the KD-tree leaf bucket size. Higher means faster
// indexing but slower search, and vise versa.
type Options struct {
	MinZoom   int // lowest zoom a cluster level is built for
	MaxZoom   int // highest clustered zoom, at most 30
	MinPoints int // minimum aggregate size to form a cluster
	Radius    float64
	Extent    float64
	NodeSize  int

	// Logger receives build-time instrumentation; nil disables it.
	Logger *zap.Logger
}

// DefaultOptions returns the conventional slippy-map configuration.
func DefaultOptions() Options {
	return Options{
		MinZoom:   0,
		MaxZoom:   16,
		MinPoints: 2,
		Radius:    40,
		Extent:    512,
		NodeSize:  64,
	}
}

// Index is a multi-zoom cluster hierarchy over one loaded point set.
// Load is the only mutator and must complete before the first query;
// afterwards the index is read-only and queries may run concurrently.
type Index struct {
	opts   Options
	logger *zap.Logger

	points []GeoPoint
	n      int // points with usable coordinates; cluster ids start at n
	trees  []*tree
}

// NewIndex creates an empty index. Options are validated by Load.
func NewIndex(opts Options) *Index {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		opts:   opts,
		logger: logger,
	}
}

func (idx *Index) validate() error {
	o := idx.opts
	switch {
	case o.MaxZoom+1 >= 32:
		return fmt.Errorf("%w: maxZoom %d does not fit the cluster id encoding (max 30)", ErrInvalidOptions, o.MaxZoom)
	case o.MinZoom < 0 || o.MinZoom > o.MaxZoom:
		return fmt.Errorf("%w: zoom range [%d, %d]", ErrInvalidOptions, o.MinZoom, o.MaxZoom)
	case o.MinPoints < 1:
		return fmt.Errorf("%w: minPoints %d", ErrInvalidOptions, o.MinPoints)
	case o.Radius <= 0:
		return fmt.Errorf("%w: radius %v", ErrInvalidOptions, o.Radius)
	case o.Extent <= 0:
		return fmt.Errorf("%w: extent %v", ErrInvalidOptions, o.Extent)
	case o.NodeSize < 1:
		return fmt.Errorf("%w: nodeSize %d", ErrInvalidOptions, o.NodeSize)
	}
	return nil
}

// Load projects the points and builds the cluster levels for every zoom
// from MaxZoom down to MinZoom. Points are not copied and GetCoordinates
// is called only once per point; points without coordinates are skipped.
func (idx *Index) Load(points []GeoPoint) error {
	if err := idx.validate(); err != nil {
		return err
	}
	start := time.Now()

	leaves := make([]*Node, 0, len(points))
	for i, p := range points {
		coords, ok := p.GetCoordinates()
		if !ok {
			continue
		}
		leaves = append(leaves, &Node{
			X:         lngX(coords.Lon),
			Y:         latY(coords.Lat),
			NumPoints: 1,
			ID:        -1,
			Index:     i,
			zoom:      infinityZoom,
			parentID:  -1,
		})
	}

	n := len(leaves)
	// the largest id minted is ((n-1) << 5) + maxZoom + 1 + n
	if n > 0 && n-1 > (math.MaxInt-n-idx.opts.MaxZoom-1)>>5 {
		return fmt.Errorf("%w: %d points overflow the cluster id encoding", ErrInvalidOptions, n)
	}

	idx.points = points
	idx.n = n
	idx.trees = make([]*tree, idx.opts.MaxZoom+2)

	// the finest level holds the points themselves
	idx.trees[idx.opts.MaxZoom+1] = newTree(leaves, idx.opts.NodeSize)

	for z := idx.opts.MaxZoom; z >= idx.opts.MinZoom; z-- {
		levelStart := time.Now()
		next := idx.clusterLevel(idx.trees[z+1], z)
		idx.trees[z] = newTree(next, idx.opts.NodeSize)
		idx.logger.Debug("built cluster level",
			zap.Int("zoom", z),
			zap.Int("nodes", len(next)),
			zap.Duration("elapsed", time.Since(levelStart)))
	}

	idx.logger.Info("index loaded",
		zap.Int("points", n),
		zap.Int("dropped", len(points)-n),
		zap.Int("minZoom", idx.opts.MinZoom),
		zap.Int("maxZoom", idx.opts.MaxZoom),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// clusterLevel folds the nodes of the level above into the node slice for
// zoom z. Neighbor lookups always consult the level above; absorbed
// neighbors are marked by stamping their zoom.
func (idx *Index) clusterLevel(prev *tree, z int) []*Node {
	r := idx.opts.Radius / (idx.opts.Extent * math.Exp2(float64(z)))
	next := make([]*Node, 0, len(prev.nodes))

	for i, p := range prev.nodes {
		// skip nodes we have already clustered at this level
		if p.zoom <= z {
			continue
		}
		p.zoom = z

		// find all neighbours; p itself is filtered out below by the
		// zoom stamp, whether or not the tree returns it
		neighborIDs := prev.bush.Within(&kdbush.SimplePoint{X: p.X, Y: p.Y}, r)

		numPoints := p.NumPoints
		for _, j := range neighborIDs {
			if b := prev.nodes[j]; b.zoom > z {
				numPoints += b.NumPoints
			}
		}

		if numPoints > p.NumPoints && numPoints >= idx.opts.MinPoints {
			// the id encodes the pivot's slot in the level above and the
			// zoom that level belongs to
			id := (i << 5) + (z + 1) + idx.n

			wx := p.X * float64(p.NumPoints)
			wy := p.Y * float64(p.NumPoints)
			for _, j := range neighborIDs {
				b := prev.nodes[j]
				if b.zoom <= z {
					continue
				}
				b.zoom = z
				wx += b.X * float64(b.NumPoints)
				wy += b.Y * float64(b.NumPoints)
				b.parentID = id
			}
			p.parentID = id

			next = append(next, &Node{
				X:         wx / float64(numPoints),
				Y:         wy / float64(numPoints),
				NumPoints: numPoints,
				ID:        id,
				Index:     -1,
				zoom:      infinityZoom,
				parentID:  -1,
			})
			continue
		}

		// no cluster; the pivot moves up unchanged
		next = append(next, p)

		// a pivot that is itself a cluster can gather neighbours without
		// reaching a new merge; carry them up so they are not revisited
		if numPoints > 1 {
			for _, j := range neighborIDs {
				b := prev.nodes[j]
				if b.zoom <= z {
					continue
				}
				b.zoom = z
				next = append(next, b)
			}
		}
	}
	return next
}
