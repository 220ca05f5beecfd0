package supercluster

// GeoCoordinates represent position in the Earth
type GeoCoordinates struct {
	Lon float64
	Lat float64
}

// All objects that you want to cluster should implement this protocol.
// GetCoordinates is called exactly once per object during Load, so the
// coordinates may be computed on the fly. Returning ok == false excludes
// the object from the index without an error.
type GeoPoint interface {
	GetCoordinates() (coords GeoCoordinates, ok bool)
}
