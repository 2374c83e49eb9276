package geodesy_test

import (
	"math"
	"testing"

	"github.com/anderzubi/orthopin/internal/core/domain"
	"github.com/anderzubi/orthopin/internal/pkg/geodesy"
)

func TestNormalize_WrapsLongitude(t *testing.T) {
	got := geodesy.Normalize(domain.GeoPoint{Lat: 95, Lon: 190})
	if got.Lon != -170 {
		t.Errorf("expected lon -170, got %v", got.Lon)
	}
	if got.Lat != geodesy.MaxLatitude {
		t.Errorf("expected lat clamped to %v, got %v", geodesy.MaxLatitude, got.Lat)
	}

	got = geodesy.Normalize(domain.GeoPoint{Lat: -95, Lon: -185})
	if got.Lon != 175 {
		t.Errorf("expected lon 175, got %v", got.Lon)
	}
	if got.Lat != -geodesy.MaxLatitude {
		t.Errorf("expected lat clamped to %v, got %v", -geodesy.MaxLatitude, got.Lat)
	}
}

func TestNormalize_LeavesInDomainInput(t *testing.T) {
	p := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	got := geodesy.Normalize(p)
	if got != p {
		t.Errorf("expected %v unchanged, got %v", p, got)
	}
}

func TestNormalize_HalfOpenLongitude(t *testing.T) {
	// +180 wraps to -180 so the range stays half-open.
	got := geodesy.Normalize(domain.GeoPoint{Lat: 0, Lon: 180})
	if got.Lon != -180 {
		t.Errorf("expected lon -180, got %v", got.Lon)
	}
}

func TestToProjected_RejectsInvalid(t *testing.T) {
	cases := []domain.GeoPoint{
		{Lat: math.NaN(), Lon: 0},
		{Lat: 0, Lon: math.Inf(1)},
		{Lat: 90, Lon: 0},
		{Lat: 0, Lon: 200},
	}
	for _, p := range cases {
		if _, err := geodesy.ToProjected(p); err == nil {
			t.Errorf("expected error for %v", p)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	points := []domain.GeoPoint{
		{Lat: 0, Lon: 0},
		{Lat: 43.263, Lon: -2.935},
		{Lat: -33.8688, Lon: 151.2093},
		{Lat: 84.9, Lon: 179.9},
		{Lat: -84.9, Lon: -179.9},
	}
	for _, p := range points {
		n := geodesy.Normalize(p)
		pt, err := geodesy.ToProjected(n)
		if err != nil {
			t.Fatalf("project %v: %v", n, err)
		}
		back := geodesy.ToGeographic(pt)
		if math.Abs(back.Lat-n.Lat) > 1e-6 || math.Abs(back.Lon-n.Lon) > 1e-6 {
			t.Errorf("round trip %v -> %v drifted", n, back)
		}
	}
}

func TestToGeographic_PlaneOrigin(t *testing.T) {
	got := geodesy.ToGeographic(domain.ProjectedPoint{})
	if math.Abs(got.Lat) > 1e-12 || math.Abs(got.Lon) > 1e-12 {
		t.Errorf("expected origin to map to (0,0), got %v", got)
	}
}

func TestHaversine(t *testing.T) {
	// Abando to Moyua, central Bilbao: a few hundred meters.
	a := domain.GeoPoint{Lat: 43.2609, Lon: -2.9263}
	b := domain.GeoPoint{Lat: 43.2627, Lon: -2.9322}
	d := geodesy.Haversine(a, b)
	if d < 300 || d > 800 {
		t.Errorf("implausible distance %v m", d)
	}
}
