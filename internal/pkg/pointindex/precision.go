package pointindex

import (
	"fmt"
	"strings"
)

// Precision selects the storage type of an index.
type Precision string

const (
	PrecisionFull    Precision = "full"
	PrecisionReduced Precision = "reduced"
)

// ParsePrecision accepts "full" or "reduced", case insensitive. An empty
// string means full precision.
func ParsePrecision(s string) (Precision, error) {
	switch p := Precision(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PrecisionFull:
		return PrecisionFull, nil
	case PrecisionReduced:
		return PrecisionReduced, nil
	default:
		return "", fmt.Errorf("unknown index precision %q (want full or reduced)", s)
	}
}

// NewForPrecision returns an empty index of the given precision.
func NewForPrecision(p Precision, opts ...Option) Builder {
	if p == PrecisionReduced {
		return NewReduced(opts...)
	}
	return NewFull(opts...)
}
