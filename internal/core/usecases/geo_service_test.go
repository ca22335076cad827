package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/geoindex/internal/core/domain"
	"github.com/samirrijal/geoindex/internal/core/usecases"
	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
)

func TestGeoService_Distance(t *testing.T) {
	svc := usecases.NewGeoService(nil)

	d, err := svc.Distance(domain.GeoPoint{Lat: 51.05, Lon: 13.74}, domain.GeoPoint{Lat: 52.52, Lon: 13.405})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d.Kilometers-165.0723) > 0.001 {
		t.Errorf("expected ~165.0723 km, got %f", d.Kilometers)
	}
	if math.Abs(d.ApproxKilometers-d.Kilometers) > 0.01 {
		t.Errorf("expected approximation close to exact, got %f", d.ApproxKilometers)
	}

	_, err = svc.Distance(domain.GeoPoint{Lat: 95}, domain.GeoPoint{})
	if !errors.Is(err, domain.ErrInvalidQuery) || !errors.Is(err, geospatial.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidQuery wrapping ErrInvalidRange, got %v", err)
	}
}

func TestGeoService_Destination(t *testing.T) {
	svc := usecases.NewGeoService(nil)

	p, err := svc.Destination(domain.GeoPoint{}, 111.19492664455873, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p.Lat-1) > 1e-9 || math.Abs(p.Lon) > 1e-9 {
		t.Errorf("expected (1, 0), got %+v", p)
	}

	if _, err := svc.Destination(domain.GeoPoint{}, -1, 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestGeoService_BoundingBox(t *testing.T) {
	svc := usecases.NewGeoService(nil)

	b, err := svc.BoundingBox(domain.GeoPoint{}, 111.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Bounds{MinLat: -1, MinLon: -1, MaxLat: 1, MaxLon: 1}
	if b != want {
		t.Errorf("expected %+v, got %+v", want, b)
	}
}

func TestGeoService_MidpointAndCenter(t *testing.T) {
	svc := usecases.NewGeoService(nil)
	points := []domain.GeoPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 0}, {Lat: 2, Lon: 0}}

	c, err := svc.Center(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(c.Lat-1) > 1e-6 || math.Abs(c.Lon) > 1e-6 {
		t.Errorf("expected center (1, 0), got %+v", c)
	}

	m, err := svc.Midpoint([]domain.GeoPoint{{Lat: 10, Lon: 10}, {Lat: 20, Lon: 20}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(m.Lat-15.054671) > 1e-6 || math.Abs(m.Lon-14.882489) > 1e-6 {
		t.Errorf("unexpected midpoint %+v", m)
	}

	if _, err := svc.Midpoint(nil); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestGeoService_Geohash(t *testing.T) {
	svc := usecases.NewGeoService(nil)

	hash, err := svc.Encode(domain.GeoPoint{Lat: 42.605, Lon: -5.603}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash != "ezs42" {
		t.Errorf("expected ezs42, got %s", hash)
	}

	hash, err = svc.Encode(domain.GeoPoint{Lat: 42.605, Lon: -5.603}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hash) != usecases.DefaultGeohashLength {
		t.Errorf("expected default length, got %q", hash)
	}

	cell, err := svc.Decode("ezs42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cell.Bounds.MinLat > 42.605 || cell.Bounds.MaxLat < 42.605 {
		t.Errorf("cell %+v does not contain the encoded latitude", cell.Bounds)
	}

	if _, err := svc.Decode("abc"); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for invalid hash, got %v", err)
	}
	if _, err := svc.Encode(domain.GeoPoint{}, 99); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for long hash, got %v", err)
	}
}

func TestGeoService_DMS(t *testing.T) {
	svc := usecases.NewGeoService(nil)

	text, err := svc.FormatDMS(domain.GeoPoint{Lat: 51.0333, Lon: 13.7333})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "51°1′59″N,13°43′59″E" {
		t.Errorf("unexpected DMS %s", text)
	}

	p, err := svc.ParseDMS(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(p.Lat-51.0331) > 1e-3 || math.Abs(p.Lon-13.7331) > 1e-3 {
		t.Errorf("unexpected point %+v", p)
	}

	if _, err := svc.ParseDMS("north"); !errors.Is(err, geospatial.ErrParse) {
		t.Errorf("expected ErrParse, got %v", err)
	}
}

func TestGeoService_Spread(t *testing.T) {
	svc := usecases.NewGeoService(memRepo(saxony...))

	d, err := svc.Spread(context.Background(), []int64{1, 3, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	berlinMunich := geospatial.HaversineKm(52.52, 13.405, 48.137, 11.575)
	if math.Abs(d-berlinMunich) > 1e-9 {
		t.Errorf("expected %f, got %f", berlinMunich, d)
	}

	d, err = svc.Spread(context.Background(), []int64{1, 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != geospatial.MaxDistanceKm {
		t.Errorf("expected max distance for unknown id, got %f", d)
	}

	d, err = svc.Spread(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 0 {
		t.Errorf("expected 0 for single place, got %f", d)
	}
}
