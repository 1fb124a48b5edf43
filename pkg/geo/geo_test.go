package geo

import (
	"testing"

	"github.com/shiva/wayplan/internal/model"
)

func TestHaversineKm_SamePoint(t *testing.T) {
	loc := model.Location{Lat: 35.6762, Lng: 139.6503}
	got := HaversineKm(loc, loc)
	if got != 0 {
		t.Errorf("HaversineKm(same point) = %v, want 0", got)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Tokyo Station to Shinjuku Station (~6.2 km)
	tokyo := model.Location{Lat: 35.6812, Lng: 139.7671}
	shinjuku := model.Location{Lat: 35.6896, Lng: 139.7006}
	got := HaversineKm(tokyo, shinjuku)
	wantMin, wantMax := 5.0, 7.5
	if got < wantMin || got > wantMax {
		t.Errorf("HaversineKm(Tokyo→Shinjuku) = %.2f km, want between %.1f and %.1f", got, wantMin, wantMax)
	}
}

func TestWithinKm(t *testing.T) {
	a := model.Location{Lat: 35.6812, Lng: 139.7671}
	near := model.Location{Lat: 35.6850, Lng: 139.7700}
	far := model.Location{Lat: 35.6896, Lng: 139.7006}

	if !WithinKm(a, near, 1.0) {
		t.Error("WithinKm: nearby point should be within 1 km")
	}
	if WithinKm(a, far, 1.0) {
		t.Error("WithinKm: Shinjuku should not be within 1 km of Tokyo Station")
	}
}

func TestRouteDistanceKm(t *testing.T) {
	route := []model.Location{
		{Lat: 35.6812, Lng: 139.7671},
		{Lat: 35.6850, Lng: 139.7300},
		{Lat: 35.6896, Lng: 139.7006},
	}
	got := RouteDistanceKm(route)
	if got <= 0 {
		t.Errorf("RouteDistanceKm = %v, want positive", got)
	}
	direct := HaversineKm(route[0], route[2])
	if got < direct {
		t.Errorf("RouteDistanceKm = %.2f, want >= direct distance %.2f", got, direct)
	}
}

func TestEstimateTravelMinutes(t *testing.T) {
	a := model.Location{Lat: 35.6812, Lng: 139.7671}
	b := model.Location{Lat: 35.6896, Lng: 139.7006}

	walk := EstimateTravelMinutes(a, b, model.ModeWalking)
	drive := EstimateTravelMinutes(a, b, model.ModeDrive)
	if walk <= drive {
		t.Errorf("walking (%.1f min) should be slower than driving (%.1f min)", walk, drive)
	}
	// ~6 km at 4.5 km/h ≈ 80 min
	if walk < 60 || walk > 110 {
		t.Errorf("EstimateTravelMinutes(walking) = %.1f, expected ~80 min", walk)
	}
}
