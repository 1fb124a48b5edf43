// Package routing estimates the travel leg between consecutive itinerary
// items. The default estimator is haversine-based; a real routing provider
// can replace it behind the same interface.
package routing

import (
	"context"

	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/pkg/geo"
)

// Estimate is one computed travel leg.
type Estimate struct {
	Mode            model.TransportMode
	DistanceKm      float64
	DurationMinutes int
}

// Estimator computes travel legs between two points.
type Estimator interface {
	Estimate(ctx context.Context, from, to model.Location, mode model.TransportMode) (Estimate, error)
}

// HaversineEstimator derives distance from the great-circle formula and
// duration from the mode's average speed, rounded up to a whole minute.
type HaversineEstimator struct{}

func NewHaversineEstimator() *HaversineEstimator {
	return &HaversineEstimator{}
}

func (e *HaversineEstimator) Estimate(ctx context.Context, from, to model.Location, mode model.TransportMode) (Estimate, error) {
	distKm := geo.HaversineKm(from, to)
	minutes := geo.EstimateTravelMinutes(from, to, mode)
	whole := int(minutes)
	if minutes > float64(whole) {
		whole++
	}
	return Estimate{
		Mode:            mode,
		DistanceKm:      distKm,
		DurationMinutes: whole,
	}, nil
}

var _ Estimator = (*HaversineEstimator)(nil)
