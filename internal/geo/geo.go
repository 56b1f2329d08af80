// Package geo validates positions against the school geofence.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000

// DistanceMeters returns the great-circle distance between two WGS84 points
// given in degrees, using the haversine formula.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	Δφ := (lat2 - lat1) * math.Pi / 180
	Δλ := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	// rounding can push a slightly past 1 for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// WithinRadius reports whether distance is inside the geofence. The boundary is inclusive.
func WithinRadius(distance, radiusLimit float64) bool {
	return distance <= radiusLimit
}

// FormatDistance renders meters below 1 km and kilometers with one decimal above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
