// Package ingest loads place dumps into the place repository.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samirrijal/geoindex/internal/core/domain"
)

// GeoNames dump columns (http://download.geonames.org/export/dump/readme.txt).
const (
	colID           = 0
	colName         = 1
	colASCIIName    = 2
	colLatitude     = 4
	colLongitude    = 5
	colFeatureClass = 6
	colFeatureCode  = 7
	colCountryCode  = 8
	colPopulation   = 14
	minColumns      = colPopulation + 1
)

// ErrMalformedRow marks a row that cannot become a place.
var ErrMalformedRow = errors.New("malformed row")

// Filter selects which rows become places. Zero values select everything.
type Filter struct {
	FeatureClasses []string
	Countries      []string
	MinPopulation  int64
}

func (f Filter) match(featureClass string, p domain.Place) bool {
	if len(f.FeatureClasses) > 0 && !containsFold(f.FeatureClasses, featureClass) {
		return false
	}
	if len(f.Countries) > 0 && !containsFold(f.Countries, p.CountryCode) {
		return false
	}
	return p.Population >= f.MinPopulation
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// GeoNamesReader reads places from a tab separated GeoNames dump.
type GeoNamesReader struct {
	r    *csv.Reader
	line int
}

// NewGeoNamesReader wraps r. GeoNames fields are never quoted, so quotes in
// names are kept as they are.
func NewGeoNamesReader(r io.Reader) *GeoNamesReader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &GeoNamesReader{r: cr}
}

// Next returns the next place and its feature class. It returns io.EOF at
// the end of the input and an error wrapping ErrMalformedRow for rows that
// should be skipped.
func (g *GeoNamesReader) Next() (domain.Place, string, error) {
	record, err := g.r.Read()
	g.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Place{}, "", io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return domain.Place{}, "", fmt.Errorf("line %d: %w: %v", g.line, ErrMalformedRow, err)
		}
		return domain.Place{}, "", err
	}
	p, class, err := parseRecord(record)
	if err != nil {
		return domain.Place{}, "", fmt.Errorf("line %d: %w", g.line, err)
	}
	return p, class, nil
}

func parseRecord(record []string) (domain.Place, string, error) {
	if len(record) < minColumns {
		return domain.Place{}, "", fmt.Errorf("%w: %d columns", ErrMalformedRow, len(record))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(record[colID]), 10, 64)
	if err != nil || id <= 0 {
		return domain.Place{}, "", fmt.Errorf("%w: id %q", ErrMalformedRow, record[colID])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(record[colLatitude]), 64)
	if err != nil {
		return domain.Place{}, "", fmt.Errorf("%w: latitude %q", ErrMalformedRow, record[colLatitude])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(record[colLongitude]), 64)
	if err != nil {
		return domain.Place{}, "", fmt.Errorf("%w: longitude %q", ErrMalformedRow, record[colLongitude])
	}

	var population int64
	if s := strings.TrimSpace(record[colPopulation]); s != "" {
		if population, err = strconv.ParseInt(s, 10, 64); err != nil {
			return domain.Place{}, "", fmt.Errorf("%w: population %q", ErrMalformedRow, s)
		}
	}

	name := strings.TrimSpace(record[colName])
	if name == "" {
		name = strings.TrimSpace(record[colASCIIName])
	}

	p := domain.Place{
		ID:          id,
		Name:        name,
		Kind:        strings.TrimSpace(record[colFeatureCode]),
		CountryCode: strings.ToUpper(strings.TrimSpace(record[colCountryCode])),
		Location:    domain.GeoPoint{Lat: lat, Lon: lon},
		Population:  population,
	}
	if err := p.ComputeGeohash(); err != nil {
		return domain.Place{}, "", fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	return p, strings.TrimSpace(record[colFeatureClass]), nil
}
