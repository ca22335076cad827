package domain

import (
	"time"

	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
)

// PlaceGeohashLength is the precision of the stored geohash column.
const PlaceGeohashLength = 9

// Place is a named, indexed location such as a city, a peak or a station.
type Place struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind,omitempty"` // feature code, e.g. PPL
	CountryCode string    `json:"country_code,omitempty"`
	Location    GeoPoint  `json:"location"`
	Population  int64     `json:"population,omitempty"`
	Geohash     string    `json:"geohash,omitempty"`
	DistanceKm  *float64  `json:"distance_km,omitempty"` // computed field
	UpdatedAt   time.Time `json:"updated_at"`
}

// ComputeGeohash validates the location and sets Geohash from it.
func (p *Place) ComputeGeohash() error {
	c, err := p.Location.Coordinate()
	if err != nil {
		return err
	}
	p.Geohash, err = geospatial.Geohash(c, PlaceGeohashLength)
	return err
}

// IndexStats describes the currently served index snapshot.
type IndexStats struct {
	Points    int           `json:"points"`
	Precision string        `json:"precision"`
	BuiltAt   time.Time     `json:"built_at"`
	Duration  time.Duration `json:"duration_ns"`
	Rejected  int           `json:"rejected"`
}

// IndexRebuilt is published after a new index snapshot is served.
type IndexRebuilt struct {
	Points     int       `json:"points"`
	Precision  string    `json:"precision"`
	BuiltAt    time.Time `json:"built_at"`
	DurationMs int64     `json:"duration_ms"`
}

// PlacesChanged is published after places were written.
type PlacesChanged struct {
	Source  string    `json:"source"`
	Count   int       `json:"count"`
	Changed time.Time `json:"changed"`
}
