package geospatial_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geoindex/internal/pkg/geospatial"
)

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{200, -160},
		{-200, 160},
		{180, 180},
		{-180, -180},
		{540, 180},
		{-540, -180},
		{360, 0},
		{-360, 0},
		{721, 1},
		{13.5, 13.5},
	}
	for _, tt := range tests {
		got := geospatial.NormalizeLongitude(tt.in)
		assert.Equal(t, tt.want, got, "NormalizeLongitude(%v)", tt.in)
		assert.False(t, math.Signbit(got) && got == 0, "NormalizeLongitude(%v) returned -0", tt.in)
	}
}

func TestNormalizeLatitude(t *testing.T) {
	assert.Equal(t, 90.0, geospatial.NormalizeLatitude(95))
	assert.Equal(t, -90.0, geospatial.NormalizeLatitude(-100))
	assert.Equal(t, 45.5, geospatial.NormalizeLatitude(45.5))
}

func TestApproximateDistance(t *testing.T) {
	got := geospatial.ApproximateDistance(51.05, 13.74, 52.52, 13.405)
	assert.InDelta(t, 165.0729, got, 1e-3)
	assert.InDelta(t, dresden.Distance(berlin), geospatial.ApproximateDistanceOf(dresden, berlin), 0.01)
}

func TestMidpoint(t *testing.T) {
	m, err := geospatial.Midpoint([]geospatial.GeoCoordinate{
		geospatial.MustNew(10, 10), geospatial.MustNew(20, 20),
	})
	require.NoError(t, err)
	assert.InDelta(t, 15.054671, m.Latitude(), 1e-6)
	assert.InDelta(t, 14.882489, m.Longitude(), 1e-6)

	m, err = geospatial.Midpoint([]geospatial.GeoCoordinate{dresden, berlin, munich})
	require.NoError(t, err)
	assert.InDelta(t, 50.573093, m.Latitude(), 1e-6)
	assert.InDelta(t, 12.874351, m.Longitude(), 1e-6)
}

func TestMidpoint_Antipodal(t *testing.T) {
	m, err := geospatial.Midpoint([]geospatial.GeoCoordinate{
		geospatial.MustNew(0, 0), geospatial.MustNew(0, 180),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Latitude())
	assert.Equal(t, 0.0, m.Longitude())
}

func TestMidpoint_SingleAndEmpty(t *testing.T) {
	m, err := geospatial.Midpoint([]geospatial.GeoCoordinate{nil, berlin})
	require.NoError(t, err)
	assert.True(t, m.Equal(berlin))

	_, err = geospatial.Midpoint(nil)
	assert.ErrorIs(t, err, geospatial.ErrInvalidArgument)
}

func TestCenterOfMinimumDistance(t *testing.T) {
	line := []geospatial.GeoCoordinate{
		geospatial.MustNew(0, 0), geospatial.MustNew(1, 0), geospatial.MustNew(2, 0),
	}
	c, err := geospatial.CenterOfMinimumDistance(line)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.Latitude(), 1e-6)
	assert.InDelta(t, 0.0, c.Longitude(), 1e-6)

	cities := []geospatial.GeoCoordinate{dresden, berlin, munich, geospatial.MustNew(53.55, 9.99)}
	center, err := geospatial.CenterOfMinimumDistance(cities)
	require.NoError(t, err)
	mid, err := geospatial.Midpoint(cities)
	require.NoError(t, err)

	sum := func(from geospatial.GeoCoordinate) float64 {
		var s float64
		for _, c := range cities {
			s += from.Distance(c)
		}
		return s
	}
	assert.LessOrEqual(t, sum(center), sum(mid)+1e-9)
	for _, c := range cities {
		assert.LessOrEqual(t, sum(center), sum(c)+1e-9)
	}
}

func TestCenterOfMinimumDistance_Single(t *testing.T) {
	c, err := geospatial.CenterOfMinimumDistance([]geospatial.GeoCoordinate{munich})
	require.NoError(t, err)
	assert.True(t, c.Equal(munich))

	_, err = geospatial.CenterOfMinimumDistance([]geospatial.GeoCoordinate{nil})
	assert.ErrorIs(t, err, geospatial.ErrInvalidArgument)
}

func TestLargestDistance(t *testing.T) {
	assert.Equal(t, 0.0, geospatial.LargestDistance(nil))
	assert.Equal(t, 0.0, geospatial.LargestDistance([]geospatial.GeoCoordinate{dresden}))
	assert.Equal(t, 0.0, geospatial.LargestDistance([]geospatial.GeoCoordinate{dresden, dresden}))

	got := geospatial.LargestDistance([]geospatial.GeoCoordinate{dresden, berlin, munich, berlin})
	assert.InDelta(t, berlin.Distance(munich), got, 1e-9)
}

func TestLargestDistance_Unknown(t *testing.T) {
	assert.Equal(t, geospatial.MaxDistanceKm,
		geospatial.LargestDistance([]geospatial.GeoCoordinate{dresden, nil}))
	assert.Equal(t, geospatial.MaxDistanceKm,
		geospatial.LargestDistance([]geospatial.GeoCoordinate{nil, nil}))
	assert.Equal(t, 0.0, geospatial.LargestDistance([]geospatial.GeoCoordinate{nil}))
}
