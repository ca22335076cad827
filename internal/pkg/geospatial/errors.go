package geospatial

import "errors"

var (
	// ErrInvalidRange is returned when a latitude or longitude lies outside
	// [-90, 90] or [-180, 180].
	ErrInvalidRange = errors.New("coordinate out of range")

	// ErrInvalidArgument is returned for negative distances, empty inputs,
	// geohash lengths below one and unknown geohash characters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrParse is returned when a DMS expression cannot be parsed.
	ErrParse = errors.New("parse error")
)
