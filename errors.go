package supercluster

import "errors"

var (
	// ErrNotFound is returned when a cluster id does not resolve to a
	// live cluster of the loaded index.
	ErrNotFound = errors.New("cluster not found")

	// ErrInvalidOptions is returned by Load when the index options are
	// unusable or the point count overflows the cluster id encoding.
	ErrInvalidOptions = errors.New("invalid options")
)
