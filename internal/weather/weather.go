// Package weather is the forecast source the monitor polls. The static
// source backs tests and local development; a real provider implements the
// same interface.
package weather

import (
	"context"
	"sync"

	"github.com/shiva/wayplan/internal/model"
)

// Forecast is one day's expected condition near a location.
type Forecast struct {
	Date      string // YYYY-MM-DD
	Condition string // sunny, light_rain, heavy_rain, cloudy, snow, ...
	Severity  model.Severity
}

// Source answers forecast queries for a location and date.
type Source interface {
	Forecast(ctx context.Context, loc model.Location, date string) (*Forecast, error)
}

// ─── Static source ──────────────────────────────────────────

// StaticSource serves forecasts from a fixed table keyed by date. Dates with
// no entry report sunny/low, so the monitor stays quiet by default.
type StaticSource struct {
	mu       sync.RWMutex
	byDate   map[string]Forecast
	fallback Forecast
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		byDate:   make(map[string]Forecast),
		fallback: Forecast{Condition: "sunny", Severity: model.SeverityLow},
	}
}

// Set registers the forecast for a date.
func (s *StaticSource) Set(date string, f Forecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.Date = date
	s.byDate[date] = f
}

func (s *StaticSource) Forecast(ctx context.Context, loc model.Location, date string) (*Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.byDate[date]; ok {
		return &f, nil
	}
	f := s.fallback
	f.Date = date
	return &f, nil
}

var _ Source = (*StaticSource)(nil)
