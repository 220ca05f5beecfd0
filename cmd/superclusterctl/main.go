package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iahmedov/supercluster"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	inputPath  string
	opts       supercluster.Options
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "superclusterctl",
	Short:   "Cluster GeoJSON points into map markers",
	Long:    "superclusterctl loads a GeoJSON FeatureCollection of points and answers viewport, children and leaf queries against the multi-zoom cluster index.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		opts = cfg.Options()
		if verbose {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			opts.Logger = logger
			fmt.Fprint(os.Stderr, spew.Sdump(cfg))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log the build and dump the resolved options")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a yaml options file")
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "GeoJSON FeatureCollection of points")

	clusterCmd.Flags().Float64Var(&clusterZoom, "zoom", 0, "Zoom level to render")
	queryCmd.Flags().Float64Var(&queryZoom, "zoom", 0, "Zoom level to render")
	queryCmd.Flags().StringVar(&queryBBox, "bbox", "", "Viewport as west,south,east,north in degrees")
	leavesCmd.Flags().IntVar(&leavesClusterID, "cluster-id", 0, "Cluster id from a previous query")
	leavesCmd.Flags().IntVar(&leavesLimit, "limit", supercluster.DefaultLeavesLimit, "Maximum number of leaves to print")
	leavesCmd.Flags().IntVar(&leavesOffset, "offset", 0, "Number of leaves to skip")
	expandCmd.Flags().IntVar(&expandClusterID, "cluster-id", 0, "Cluster id from a previous query")

	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(leavesCmd)
	rootCmd.AddCommand(expandCmd)
}

var clusterZoom float64

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Print all clusters and points at a zoom level",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex()
		if err != nil {
			return err
		}
		return printMarkers(idx.GetClustersAndPoints(-180, -90, 180, 90, clusterZoom))
	},
}

var (
	queryZoom float64
	queryBBox string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the clusters and points inside a viewport",
	RunE: func(cmd *cobra.Command, args []string) error {
		bbox, err := parseBBox(queryBBox)
		if err != nil {
			return err
		}
		idx, err := loadIndex()
		if err != nil {
			return err
		}
		return printMarkers(idx.GetClustersAndPoints(bbox[0], bbox[1], bbox[2], bbox[3], queryZoom))
	},
}

var (
	leavesClusterID int
	leavesLimit     int
	leavesOffset    int
)

var leavesCmd = &cobra.Command{
	Use:   "leaves",
	Short: "Print the points under a cluster, paginated",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex()
		if err != nil {
			return err
		}
		nodes, err := idx.GetLeaves(leavesClusterID, leavesLimit, leavesOffset)
		if err != nil {
			return err
		}
		return printMarkers(nodes)
	},
}

var expandClusterID int

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Print the zoom at which a cluster breaks apart",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex()
		if err != nil {
			return err
		}
		zoom, err := idx.GetClusterExpansionZoom(expandClusterID)
		if err != nil {
			return err
		}
		fmt.Println(zoom)
		return nil
	},
}

// feature is the slice of GeoJSON we care about: a point geometry. Other
// geometry types and points without coordinates are skipped by the index.
type feature struct {
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

func (f *feature) GetCoordinates() (supercluster.GeoCoordinates, bool) {
	if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
		return supercluster.GeoCoordinates{}, false
	}
	return supercluster.GeoCoordinates{
		Lon: f.Geometry.Coordinates[0],
		Lat: f.Geometry.Coordinates[1],
	}, true
}

func loadIndex() (*supercluster.Index, error) {
	if inputPath == "" {
		return nil, errors.New("--input is required")
	}
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	var collection struct {
		Features []*feature `json:"features"`
	}
	if err := json.Unmarshal(raw, &collection); err != nil {
		return nil, fmt.Errorf("parsing input: %w", err)
	}

	points := make([]supercluster.GeoPoint, len(collection.Features))
	for i := range collection.Features {
		points[i] = collection.Features[i]
	}

	idx := supercluster.NewIndex(opts)
	if err := idx.Load(points); err != nil {
		return nil, err
	}
	return idx, nil
}

func parseBBox(s string) ([4]float64, error) {
	var bbox [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return bbox, fmt.Errorf("bbox %q: want west,south,east,north", s)
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return bbox, fmt.Errorf("bbox %q: %w", s, err)
		}
		bbox[i] = v
	}
	return bbox, nil
}

type marker struct {
	Lon       float64 `json:"lon"`
	Lat       float64 `json:"lat"`
	Cluster   bool    `json:"cluster"`
	ClusterID int     `json:"cluster_id,omitempty"`
	NumPoints int     `json:"num_points,omitempty"`
	Index     int     `json:"index,omitempty"`
}

func printMarkers(nodes []*supercluster.Node) error {
	markers := make([]marker, len(nodes))
	for i, n := range nodes {
		coords := n.GeoCoordinates()
		markers[i] = marker{
			Lon:     coords.Lon,
			Lat:     coords.Lat,
			Cluster: n.IsCluster(),
		}
		if n.IsCluster() {
			markers[i].ClusterID = n.ID
			markers[i].NumPoints = n.NumPoints
		} else {
			markers[i].Index = n.Index
		}
	}

	out, err := json.MarshalIndent(markers, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
