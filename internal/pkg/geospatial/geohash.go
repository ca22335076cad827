package geospatial

import (
	"fmt"
	"strings"
)

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// geohashDecodeMap maps an ASCII byte to its 5-bit value, -1 when unused.
var geohashDecodeMap = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(geohashAlphabet); i++ {
		m[geohashAlphabet[i]] = int8(i)
	}
	return m
}()

// Geohash encodes c as a base-32 geohash of the given length. Bisections
// alternate between longitude (even bits) and latitude (odd bits); every five
// bits form one character, most significant first.
func Geohash(c GeoCoordinate, length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("geohash: length must be at least 1, got %d: %w", length, ErrInvalidArgument)
	}

	lat, lng := c.Latitude(), c.Longitude()
	latMin, latMax := -90.0, 90.0
	lngMin, lngMax := -180.0, 180.0

	var b strings.Builder
	b.Grow(length)

	even := true
	for b.Len() < length {
		var ch byte
		for bit := 0; bit < 5; bit++ {
			ch <<= 1
			if even {
				mid := (lngMin + lngMax) / 2
				if lng >= mid {
					ch |= 1
					lngMin = mid
				} else {
					lngMax = mid
				}
			} else {
				mid := (latMin + latMax) / 2
				if lat >= mid {
					ch |= 1
					latMin = mid
				} else {
					latMax = mid
				}
			}
			even = !even
		}
		b.WriteByte(geohashAlphabet[ch])
	}
	return b.String(), nil
}

// ParseGeohash decodes a geohash to the center of its cell.
func ParseGeohash(hash string) (Coordinate, error) {
	box, err := GeohashBounds(hash)
	if err != nil {
		return Coordinate{}, err
	}
	return Coordinate{lat: (box.South + box.North) / 2, lng: (box.West + box.East) / 2}, nil
}

// GeohashBounds decodes a geohash to its cell rectangle.
func GeohashBounds(hash string) (Box, error) {
	if len(hash) < 1 {
		return Box{}, fmt.Errorf("geohash: empty hash: %w", ErrInvalidArgument)
	}

	latMin, latMax := -90.0, 90.0
	lngMin, lngMax := -180.0, 180.0

	even := true
	for i := 0; i < len(hash); i++ {
		v := geohashDecodeMap[hash[i]]
		if v < 0 {
			return Box{}, fmt.Errorf("geohash: invalid character %q at %d in %q: %w", hash[i], i, hash, ErrInvalidArgument)
		}
		for bit := 4; bit >= 0; bit-- {
			set := v>>bit&1 == 1
			if even {
				mid := (lngMin + lngMax) / 2
				if set {
					lngMin = mid
				} else {
					lngMax = mid
				}
			} else {
				mid := (latMin + latMax) / 2
				if set {
					latMin = mid
				} else {
					latMax = mid
				}
			}
			even = !even
		}
	}

	return Box{South: latMin, West: lngMin, North: latMax, East: lngMax}, nil
}
