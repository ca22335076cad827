package geospatial

import (
	"fmt"
	"math"
)

const (
	// midpointEpsilon is the magnitude below which an averaged unit vector
	// component is treated as cancelled out.
	midpointEpsilon = 1e-9

	centerMaxIterations = 5000
	centerMinTestKm     = 2.0e-8 * EarthRadiusKm
)

// ApproximateDistance computes the distance in kilometers with the
// equirectangular approximation. It is cheaper than the Haversine formula
// and close to it for short distances away from the poles.
func ApproximateDistance(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1, rlat2 := toRad(lat1), toRad(lat2)
	x := (toRad(lng2) - toRad(lng1)) * math.Cos((rlat1+rlat2)/2)
	y := rlat2 - rlat1
	return math.Sqrt(x*x+y*y) * EarthRadiusKm
}

// ApproximateDistanceOf is ApproximateDistance for two coordinates.
func ApproximateDistanceOf(a, b GeoCoordinate) float64 {
	return ApproximateDistance(a.Latitude(), a.Longitude(), b.Latitude(), b.Longitude())
}

// Midpoint returns the geographic midpoint: the average of the unit vectors
// of all coordinates, projected back onto the sphere. When the vectors cancel
// out on any axis the result is (0, 0). Unknown (nil) entries are ignored.
func Midpoint(coords []GeoCoordinate) (Coordinate, error) {
	known := knownOnly(coords)
	if len(known) == 0 {
		return Coordinate{}, fmt.Errorf("midpoint: no coordinates given: %w", ErrInvalidArgument)
	}
	if len(known) == 1 {
		return From(known[0]), nil
	}

	var x, y, z float64
	for _, c := range known {
		lat, lng := toRad(c.Latitude()), toRad(c.Longitude())
		x += math.Cos(lat) * math.Cos(lng)
		y += math.Cos(lat) * math.Sin(lng)
		z += math.Sin(lat)
	}
	n := float64(len(known))
	x, y, z = x/n, y/n, z/n

	if math.Abs(x) < midpointEpsilon || math.Abs(y) < midpointEpsilon || math.Abs(z) < midpointEpsilon {
		return Coordinate{}, nil
	}

	lng := math.Atan2(y, x)
	lat := math.Atan2(z, math.Sqrt(x*x+y*y))
	return Coordinate{lat: toDeg(lat), lng: toDeg(lng)}, nil
}

// CenterOfMinimumDistance approximates the geometric median, the point with
// the smallest sum of distances to all coordinates. It starts from the
// midpoint, tries every input point, then hill-climbs over eight test points
// around the current best, halving the test distance whenever no test point
// improves the sum.
func CenterOfMinimumDistance(coords []GeoCoordinate) (Coordinate, error) {
	known := knownOnly(coords)
	if len(known) == 0 {
		return Coordinate{}, fmt.Errorf("center of minimum distance: no coordinates given: %w", ErrInvalidArgument)
	}
	if len(known) == 1 {
		return From(known[0]), nil
	}

	current, err := Midpoint(known)
	if err != nil {
		return Coordinate{}, err
	}
	minimum := totalDistance(current, known)

	for _, candidate := range known {
		if d := totalDistance(candidate, known); d < minimum {
			minimum = d
			current = From(candidate)
		}
	}

	testDistance := EarthRadiusKm * math.Pi / 2
	improved := false
	for i := 0; i < centerMaxIterations && (improved || testDistance >= centerMinTestKm); i++ {
		best, bestSum := current, math.MaxFloat64
		for _, p := range testPoints(current, testDistance) {
			if d := totalDistance(p, known); d < bestSum {
				best, bestSum = p, d
			}
		}
		if bestSum < minimum {
			current, minimum = best, bestSum
			improved = true
		} else {
			testDistance /= 2
			improved = false
		}
	}
	return current, nil
}

// testPoints returns eight points at distanceKm from c, bearings 0..315.
func testPoints(c Coordinate, distanceKm float64) [8]Coordinate {
	var out [8]Coordinate
	for i := range out {
		// distanceKm is never negative here
		out[i], _ = Destination(c, distanceKm, float64(i*45))
	}
	return out
}

func totalDistance(from GeoCoordinate, coords []GeoCoordinate) float64 {
	var sum float64
	for _, c := range coords {
		sum += Distance(from, c)
	}
	return sum
}

// LargestDistance returns the largest distance between any pair of distinct
// coordinates, or zero for fewer than two. A collection of more than one
// element that holds an unknown (nil) location yields MaxDistanceKm.
func LargestDistance(coords []GeoCoordinate) float64 {
	if len(coords) > 1 {
		for _, c := range coords {
			if c == nil {
				return MaxDistanceKm
			}
		}
	}

	seen := make(map[Key]struct{}, len(coords))
	unique := make([]GeoCoordinate, 0, len(coords))
	for _, c := range coords {
		if c == nil {
			continue
		}
		k := keyOf(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, c)
	}

	var largest float64
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			largest = math.Max(largest, Distance(unique[i], unique[j]))
		}
	}
	return largest
}

// IsValidCoordinateRange reports whether -90 <= lat <= 90 and
// -180 <= lng <= 180.
func IsValidCoordinateRange(lat, lng float64) bool {
	return -90 <= lat && lat <= 90 && -180 <= lng && lng <= 180
}

// ValidateCoordinateRange returns an error wrapping ErrInvalidRange when the
// pair is out of range. Values are rejected, never clamped.
func ValidateCoordinateRange(lat, lng float64) error {
	if !IsValidCoordinateRange(lat, lng) {
		return fmt.Errorf("latitude and/or longitude out of range (%f,%f): %w", lat, lng, ErrInvalidRange)
	}
	return nil
}

// NormalizeLatitude caps lat to [-90, 90].
func NormalizeLatitude(lat float64) float64 {
	switch {
	case lat > 90:
		return 90
	case lat < -90:
		return -90
	}
	return lat
}

// NormalizeLongitude wraps lng into [-180, 180]. The result is the same as
// repeatedly adding or subtracting 360: positive overflow lands in
// (-180, 180], negative overflow in [-180, 180).
func NormalizeLongitude(lng float64) float64 {
	switch {
	case lng > 180:
		r := math.Mod(lng, 360)
		if r > 180 {
			r -= 360
		}
		return r
	case lng < -180:
		r := math.Mod(lng, 360)
		if r < -180 {
			r += 360
		}
		if r == 0 {
			return 0
		}
		return r
	}
	return lng
}

func knownOnly(coords []GeoCoordinate) []GeoCoordinate {
	out := make([]GeoCoordinate, 0, len(coords))
	for _, c := range coords {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
