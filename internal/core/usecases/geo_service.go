package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/geoindex/internal/core/domain"
	"github.com/samirrijal/geoindex/internal/core/ports"
	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
)

// DefaultGeohashLength is used when callers do not ask for a length.
const DefaultGeohashLength = 9

// maxGeohashLength bounds requested hash lengths; longer hashes only
// repeat the final bisection digits of a float64.
const maxGeohashLength = 24

// maxGeoPoints bounds the input size of set operations.
const maxGeoPoints = 1000

// Distance holds the exact and the approximate distance between two points.
type Distance struct {
	Kilometers       float64 `json:"km"`
	ApproxKilometers float64 `json:"approx_km"`
}

// GeohashCell is a decoded geohash.
type GeohashCell struct {
	Hash   string          `json:"hash"`
	Center domain.GeoPoint `json:"center"`
	Bounds domain.Bounds   `json:"bounds"`
}

// GeoService exposes the geo math utilities.
type GeoService struct {
	places ports.PlaceRepository
}

// NewGeoService creates a new GeoService. places is only needed by Spread.
func NewGeoService(places ports.PlaceRepository) *GeoService {
	return &GeoService{places: places}
}

// Distance returns the distance between a and b.
func (s *GeoService) Distance(a, b domain.GeoPoint) (Distance, error) {
	ca, err := coordinate(a)
	if err != nil {
		return Distance{}, err
	}
	cb, err := coordinate(b)
	if err != nil {
		return Distance{}, err
	}
	return Distance{
		Kilometers:       ca.Distance(cb),
		ApproxKilometers: geospatial.ApproximateDistanceOf(ca, cb),
	}, nil
}

// Destination returns the point distanceKm away from p along bearingDeg.
func (s *GeoService) Destination(p domain.GeoPoint, distanceKm, bearingDeg float64) (domain.GeoPoint, error) {
	c, err := coordinate(p)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	dest, err := c.Destination(distanceKm, bearingDeg)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return domain.PointOf(dest), nil
}

// BoundingBox returns the approximate box of distanceKm around p.
func (s *GeoService) BoundingBox(p domain.GeoPoint, distanceKm float64) (domain.Bounds, error) {
	c, err := coordinate(p)
	if err != nil {
		return domain.Bounds{}, err
	}
	box, err := c.BoundingBox(distanceKm)
	if err != nil {
		return domain.Bounds{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return domain.BoundsOf(box), nil
}

// Midpoint returns the geographic midpoint of points.
func (s *GeoService) Midpoint(points []domain.GeoPoint) (domain.GeoPoint, error) {
	coords, err := coordinates(points)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	m, err := geospatial.Midpoint(coords)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return domain.PointOf(m), nil
}

// Center returns the point with the minimum total distance to points.
func (s *GeoService) Center(points []domain.GeoPoint) (domain.GeoPoint, error) {
	coords, err := coordinates(points)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	c, err := geospatial.CenterOfMinimumDistance(coords)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return domain.PointOf(c), nil
}

// Encode returns the geohash of p. A length of zero selects
// DefaultGeohashLength.
func (s *GeoService) Encode(p domain.GeoPoint, length int) (string, error) {
	if length == 0 {
		length = DefaultGeohashLength
	}
	if length < 1 || length > maxGeohashLength {
		return "", fmt.Errorf("%w: geohash length must be between 1 and %d", domain.ErrInvalidQuery, maxGeohashLength)
	}
	c, err := coordinate(p)
	if err != nil {
		return "", err
	}
	hash, err := geospatial.Geohash(c, length)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return hash, nil
}

// Decode returns the cell of a geohash.
func (s *GeoService) Decode(hash string) (GeohashCell, error) {
	box, err := geospatial.GeohashBounds(hash)
	if err != nil {
		return GeohashCell{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	center, err := geospatial.ParseGeohash(hash)
	if err != nil {
		return GeohashCell{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return GeohashCell{Hash: hash, Center: domain.PointOf(center), Bounds: domain.BoundsOf(box)}, nil
}

// FormatDMS formats p as degrees, minutes and seconds.
func (s *GeoService) FormatDMS(p domain.GeoPoint) (string, error) {
	c, err := coordinate(p)
	if err != nil {
		return "", err
	}
	return c.DMS(), nil
}

// ParseDMS parses "<lat>,<lng>" in DMS notation.
func (s *GeoService) ParseDMS(text string) (domain.GeoPoint, error) {
	c, err := geospatial.ParseDMSPair(text)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return domain.PointOf(c), nil
}

// Spread returns the largest distance between any two of the given places.
// An id without a stored place counts as an unknown location, which makes
// the spread of more than one id the maximum distance.
func (s *GeoService) Spread(ctx context.Context, ids []int64) (float64, error) {
	if len(ids) > maxGeoPoints {
		return 0, fmt.Errorf("%w: at most %d ids", domain.ErrInvalidQuery, maxGeoPoints)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	places, err := s.places.GetByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load places: %w", err)
	}
	byID := make(map[int64]domain.Place, len(places))
	for _, p := range places {
		byID[p.ID] = p
	}

	coords := make([]geospatial.GeoCoordinate, len(ids))
	for i, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		c, err := p.Location.Coordinate()
		if err != nil {
			continue
		}
		coords[i] = c
	}
	return geospatial.LargestDistance(coords), nil
}

func coordinate(p domain.GeoPoint) (geospatial.Coordinate, error) {
	c, err := p.Coordinate()
	if err != nil {
		return geospatial.Coordinate{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return c, nil
}

func coordinates(points []domain.GeoPoint) ([]geospatial.GeoCoordinate, error) {
	if len(points) > maxGeoPoints {
		return nil, fmt.Errorf("%w: at most %d points", domain.ErrInvalidQuery, maxGeoPoints)
	}
	out := make([]geospatial.GeoCoordinate, len(points))
	for i, p := range points {
		c, err := coordinate(p)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
