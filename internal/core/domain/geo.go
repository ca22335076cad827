package domain

import (
	"fmt"

	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinate validates p and converts it to a geospatial coordinate.
func (p GeoPoint) Coordinate() (geospatial.Coordinate, error) {
	return geospatial.New(p.Lat, p.Lon)
}

// PointOf converts a coordinate back to a GeoPoint.
func PointOf(c geospatial.GeoCoordinate) GeoPoint {
	return GeoPoint{Lat: c.Latitude(), Lon: c.Longitude()}
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsOf converts a geospatial box.
func BoundsOf(b geospatial.Box) Bounds {
	return Bounds{MinLat: b.South, MinLon: b.West, MaxLat: b.North, MaxLon: b.East}
}

// Validate rejects out of range or inverted bounds. Errors wrap
// ErrInvalidQuery.
func (b Bounds) Validate() error {
	if err := geospatial.ValidateCoordinateRange(b.MinLat, b.MinLon); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if err := geospatial.ValidateCoordinateRange(b.MaxLat, b.MaxLon); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return fmt.Errorf("%w: min bounds must not exceed max bounds", ErrInvalidQuery)
	}
	return nil
}
