// Package geodesy converts between WGS 84 geographic coordinates and the
// spherical web-mercator plane (EPSG:3857). The overlay transform math runs
// on the projected plane because rotation and uniform scale are only
// isotropic there, not in raw degrees.
package geodesy

import (
	"math"

	"github.com/anderzubi/orthopin/internal/core/domain"
)

const (
	earthRadius = 6378137.0 // spherical mercator radius, meters

	// MaxLatitude is the latitude at which the square mercator plane ends.
	// Latitudes beyond it are clamped by Normalize before projection.
	MaxLatitude = 85.0511287798066
)

// Normalize wraps longitude into [-180, 180) and clamps latitude into
// [-MaxLatitude, MaxLatitude]. Every externally supplied or handle-derived
// coordinate goes through here before the projection sees it.
func Normalize(p domain.GeoPoint) domain.GeoPoint {
	lon := math.Mod(math.Mod(p.Lon+180, 360)+360, 360) - 180
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, p.Lat))
	return domain.GeoPoint{Lat: lat, Lon: lon}
}

// Valid reports whether p is finite and inside the projection domain.
func Valid(p domain.GeoPoint) bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && math.Abs(p.Lat) <= MaxLatitude
}

// ToProjected converts a geographic point to plane coordinates in meters.
// Out-of-domain input is an error, never silently substituted: callers are
// expected to Normalize first.
func ToProjected(p domain.GeoPoint) (domain.ProjectedPoint, error) {
	if !Valid(p) {
		return domain.ProjectedPoint{}, &domain.InvalidCoordinateError{Lat: p.Lat, Lon: p.Lon}
	}
	latRad := p.Lat * math.Pi / 180
	return domain.ProjectedPoint{
		X: earthRadius * p.Lon * math.Pi / 180,
		Y: earthRadius * math.Log(math.Tan(math.Pi/4+latRad/2)),
	}, nil
}

// ToGeographic converts a plane point back to geographic degrees.
func ToGeographic(pt domain.ProjectedPoint) domain.GeoPoint {
	lat := (2*math.Atan(math.Exp(pt.Y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	lon := pt.X / earthRadius * 180 / math.Pi
	return Normalize(domain.GeoPoint{Lat: lat, Lon: lon})
}

// Haversine calculates the great-circle distance in meters between two
// geographic points. Used for reporting overlay ground spans.
func Haversine(a, b domain.GeoPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
