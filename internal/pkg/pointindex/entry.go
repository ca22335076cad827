// Package pointindex is an in-memory two-axis index over identified points.
//
// Points are bulk loaded with Put and made queryable by a single Sort, which
// builds one sorted projection per axis. Box queries binary-search both
// projections and intersect the two strips; radius queries prefilter with a
// box and order the hits by distance. After Sort the index is immutable and
// safe for concurrent readers.
package pointindex

import (
	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
)

// Float is the storage type of indexed coordinates.
type Float interface {
	~float32 | ~float64
}

// Entry pairs an opaque identifier with one coordinate.
type Entry[T Float] struct {
	ID  int64
	Lat T
	Lng T
}

// IdentifiedCoordinate is an entry stored in full precision.
type IdentifiedCoordinate = Entry[float64]

// IdentifiedCoordinate32 is an entry stored in reduced precision.
type IdentifiedCoordinate32 = Entry[float32]

// Coordinate returns the entry location widened to float64.
func (e Entry[T]) Coordinate() geospatial.Coordinate {
	// stored values are already normalized, so this is exact
	return geospatial.Normalized(float64(e.Lat), float64(e.Lng))
}

// Equal compares id and the exact bit pattern of both coordinate fields.
func (e Entry[T]) Equal(other Entry[T]) bool {
	return e.ID == other.ID && e.Coordinate().Equal(other.Coordinate())
}
