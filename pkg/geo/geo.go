// Package geo provides geographic utility functions for trip planning.
//
// All distance calculations use the Haversine formula on WGS-84 coordinates.
// Travel time is estimated using a constant average speed — the routing
// provider overrides these estimates when it is available.
package geo

import (
	"math"

	"github.com/shiva/wayplan/internal/model"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0

	// EarthRadiusM is the mean radius of Earth in meters.
	EarthRadiusM = 6_371_000.0

	// AverageWalkingSpeedKmph is the assumed walking pace between items.
	AverageWalkingSpeedKmph = 4.5

	// AverageDrivingSpeedKmph is the assumed average city driving speed.
	AverageDrivingSpeedKmph = 30.0
)

// ─── Distance ───────────────────────────────────────────────

// HaversineKm returns the great-circle distance between two points in kilometers.
//
// Complexity: O(1)
func HaversineKm(a, b model.Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLng*sinLng

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// HaversineM returns the great-circle distance between two points in meters.
func HaversineM(a, b model.Location) float64 {
	return HaversineKm(a, b) * 1000.0
}

// WithinKm reports whether b lies within radiusKm of a.
func WithinKm(a, b model.Location, radiusKm float64) bool {
	return HaversineKm(a, b) <= radiusKm
}

// ─── Route Calculations ─────────────────────────────────────

// RouteDistanceKm returns the total distance of an ordered sequence of
// stops in kilometers. Used for per-day walking-distance validation.
//
// Complexity: O(S) where S = number of stops.
func RouteDistanceKm(stops []model.Location) float64 {
	total := 0.0
	for i := 0; i < len(stops)-1; i++ {
		total += HaversineKm(stops[i], stops[i+1])
	}
	return total
}

// EstimateTravelMinutes returns the estimated direct travel time between two
// points in minutes for the given transport mode.
//
// Complexity: O(1)
func EstimateTravelMinutes(a, b model.Location, mode model.TransportMode) float64 {
	speed := AverageDrivingSpeedKmph
	if mode == model.ModeWalking {
		speed = AverageWalkingSpeedKmph
	}
	return (HaversineKm(a, b) / speed) * 60.0
}

// ─── Helpers ────────────────────────────────────────────────

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
