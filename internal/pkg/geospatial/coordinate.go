// Package geospatial provides geographic coordinates, great-circle math,
// geohash encoding and DMS formatting on a spherical earth model.
package geospatial

import (
	"fmt"
	"math"
)

// GeoCoordinate is the capability shared by every coordinate representation.
// A nil GeoCoordinate stands for an unknown location.
type GeoCoordinate interface {
	Latitude() float64
	Longitude() float64

	// Distance returns the great-circle distance to other in kilometers.
	Distance(other GeoCoordinate) float64

	// Destination returns the point reached after travelling distanceKm
	// along the given bearing (degrees clockwise from north).
	Destination(distanceKm, bearingDeg float64) (Coordinate, error)

	// BoundingBox returns an approximate square box around the coordinate.
	BoundingBox(distanceKm float64) (Box, error)

	// DMS formats the coordinate as degrees, minutes and seconds.
	DMS() string
}

// Key identifies a coordinate by the exact bit pattern of both fields.
type Key struct {
	Lat, Lng uint64
}

// Coordinate is an immutable latitude/longitude pair in full precision.
type Coordinate struct {
	lat, lng float64
}

// New returns a coordinate, rejecting values outside the valid range.
func New(lat, lng float64) (Coordinate, error) {
	if err := ValidateCoordinateRange(lat, lng); err != nil {
		return Coordinate{}, err
	}
	return Coordinate{lat: lat, lng: lng}, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(lat, lng float64) Coordinate {
	c, err := New(lat, lng)
	if err != nil {
		panic(err)
	}
	return c
}

// Normalized clamps the latitude and wraps the longitude into range.
func Normalized(lat, lng float64) Coordinate {
	return Coordinate{lat: NormalizeLatitude(lat), lng: NormalizeLongitude(lng)}
}

// From copies any coordinate representation into a full precision Coordinate.
func From(c GeoCoordinate) Coordinate {
	return Coordinate{lat: c.Latitude(), lng: c.Longitude()}
}

func (c Coordinate) Latitude() float64  { return c.lat }
func (c Coordinate) Longitude() float64 { return c.lng }

func (c Coordinate) Distance(other GeoCoordinate) float64 {
	return Distance(c, other)
}

func (c Coordinate) Destination(distanceKm, bearingDeg float64) (Coordinate, error) {
	return Destination(c, distanceKm, bearingDeg)
}

func (c Coordinate) BoundingBox(distanceKm float64) (Box, error) {
	return BoundingBoxOf(c, distanceKm)
}

func (c Coordinate) DMS() string { return FormatDMS(c) }

// Key returns the bit-exact identity of c.
func (c Coordinate) Key() Key {
	return Key{Lat: math.Float64bits(c.lat), Lng: math.Float64bits(c.lng)}
}

// Equal reports whether both fields have identical bit patterns.
func (c Coordinate) Equal(other Coordinate) bool {
	return c.Key() == other.Key()
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%g,%g)", c.lat, c.lng)
}

// Coordinate32 is an immutable latitude/longitude pair stored as float32,
// for memory constrained point sets. All math is carried out in float64.
type Coordinate32 struct {
	lat, lng float32
}

// New32 returns a reduced precision coordinate, rejecting values outside the
// valid range.
func New32(lat, lng float32) (Coordinate32, error) {
	if err := ValidateCoordinateRange(float64(lat), float64(lng)); err != nil {
		return Coordinate32{}, err
	}
	return Coordinate32{lat: lat, lng: lng}, nil
}

func (c Coordinate32) Latitude() float64  { return float64(c.lat) }
func (c Coordinate32) Longitude() float64 { return float64(c.lng) }

func (c Coordinate32) Distance(other GeoCoordinate) float64 {
	return Distance(c, other)
}

func (c Coordinate32) Destination(distanceKm, bearingDeg float64) (Coordinate, error) {
	return Destination(c, distanceKm, bearingDeg)
}

func (c Coordinate32) BoundingBox(distanceKm float64) (Box, error) {
	return BoundingBoxOf(c, distanceKm)
}

func (c Coordinate32) DMS() string { return FormatDMS(c) }

// Widen converts c to full precision. The conversion is exact.
func (c Coordinate32) Widen() Coordinate {
	return Coordinate{lat: float64(c.lat), lng: float64(c.lng)}
}

// Key returns the bit-exact identity of c. Widening float32 to float64 is
// injective, so keys of both representations share one space.
func (c Coordinate32) Key() Key {
	return c.Widen().Key()
}

// Equal reports whether both fields have identical bit patterns.
func (c Coordinate32) Equal(other Coordinate32) bool {
	return math.Float32bits(c.lat) == math.Float32bits(other.lat) &&
		math.Float32bits(c.lng) == math.Float32bits(other.lng)
}

func (c Coordinate32) String() string {
	return fmt.Sprintf("(%g,%g)", c.lat, c.lng)
}

// keyOf returns the bit-exact identity of any coordinate representation.
func keyOf(c GeoCoordinate) Key {
	return Key{Lat: math.Float64bits(c.Latitude()), Lng: math.Float64bits(c.Longitude())}
}
