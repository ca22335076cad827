package geospatial

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean earth radius used by every formula here.
	EarthRadiusKm = 6371.0

	// EarthCircumferenceKm is the equatorial circumference.
	EarthCircumferenceKm = 40075.16

	// MaxDistanceKm is the largest possible distance between two points,
	// half the circumference. Unknown locations are this far from anything.
	MaxDistanceKm = EarthCircumferenceKm * 0.5

	// kmPerDegree approximates the length of one degree of latitude.
	kmPerDegree = 111.2
)

// Box is an axis-aligned latitude/longitude rectangle.
type Box struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Corners returns the box as [south, west, north, east].
func (b Box) Corners() [4]float64 {
	return [4]float64{b.South, b.West, b.North, b.East}
}

// Contains reports whether c lies inside the box, edges included.
func (b Box) Contains(c GeoCoordinate) bool {
	lat, lng := c.Latitude(), c.Longitude()
	return b.South <= lat && lat <= b.North && b.West <= lng && lng <= b.East
}

// Distance calculates the great-circle distance in kilometers between two
// points with the Haversine formula.
func Distance(a, b GeoCoordinate) float64 {
	return HaversineKm(a.Latitude(), a.Longitude(), b.Latitude(), b.Longitude())
}

// HaversineKm is Distance on raw degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := toRad(lat1)
	rlat2 := toRad(lat2)
	dLat := (rlat2 - rlat1) / 2
	dLng := (toRad(lng2) - toRad(lng1)) / 2

	h := math.Sin(dLat)*math.Sin(dLat) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLng)*math.Sin(dLng)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceOrMax is Distance for call sites that may hold unknown (nil)
// locations: an unknown location is MaxDistanceKm away from everything.
func DistanceOrMax(a, b GeoCoordinate) float64 {
	if a == nil || b == nil {
		return MaxDistanceKm
	}
	return Distance(a, b)
}

// Destination solves the direct problem on the sphere: starting at c and
// travelling distanceKm along bearingDeg (clockwise from north).
func Destination(c GeoCoordinate, distanceKm, bearingDeg float64) (Coordinate, error) {
	if distanceKm < 0 {
		return Coordinate{}, fmt.Errorf("destination: distance must not be negative, got %g: %w", distanceKm, ErrInvalidArgument)
	}

	lat1 := toRad(c.Latitude())
	lng1 := toRad(c.Longitude())
	bearing := toRad(bearingDeg)
	angular := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angular) +
		math.Cos(lat1)*math.Sin(angular)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(
		math.Sin(bearing)*math.Sin(angular)*math.Cos(lat1),
		math.Cos(angular)-math.Sin(lat1)*math.Sin(lat2))

	return Coordinate{lat: NormalizeLatitude(toDeg(lat2)), lng: NormalizeLongitude(toDeg(lng2))}, nil
}

// BoundingBoxOf returns a box around c with distanceKm in each direction.
// Degrees of longitude are scaled by the cosine of the latitude, so the box
// grows without bound close to the poles.
func BoundingBoxOf(c GeoCoordinate, distanceKm float64) (Box, error) {
	if distanceKm < 0 {
		return Box{}, fmt.Errorf("bounding box: distance must not be negative, got %g: %w", distanceKm, ErrInvalidArgument)
	}

	lat, lng := c.Latitude(), c.Longitude()
	latDelta := distanceKm / kmPerDegree
	lngDelta := distanceKm / math.Abs(math.Cos(toRad(lat))*kmPerDegree)

	return Box{
		South: lat - latDelta,
		West:  lng - lngDelta,
		North: lat + latDelta,
		East:  lng + lngDelta,
	}, nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
