package domain

import "errors"

var (
	// ErrNotFound is returned when a requested place does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIndexNotReady is returned by queries before the first index build.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrInvalidQuery is returned for malformed query parameters.
	ErrInvalidQuery = errors.New("invalid query")
)
