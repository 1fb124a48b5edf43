package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/internal/weather"
	"github.com/shiva/wayplan/pkg/timeofday"
)

// ─── Weather monitor ────────────────────────────────────────

// Monitor polls the weather source for watched trips and feeds severe
// forecasts into the event pipeline. It is off unless explicitly started.
type Monitor struct {
	store    repository.Store
	events   *EventService
	source   weather.Source
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	watched map[uuid.UUID]bool
	// alerted dedupes ingestion per trip+date across sweeps.
	alerted map[string]bool
}

func NewMonitor(store repository.Store, events *EventService, source weather.Source, interval time.Duration, log zerolog.Logger) *Monitor {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	return &Monitor{
		store:    store,
		events:   events,
		source:   source,
		interval: interval,
		log:      log.With().Str("component", "monitor").Logger(),
		watched:  make(map[uuid.UUID]bool),
		alerted:  make(map[string]bool),
	}
}

// Watch adds the trip to the polling set.
func (m *Monitor) Watch(tripID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched[tripID] = true
}

// Unwatch removes the trip from the polling set.
func (m *Monitor) Unwatch(tripID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watched, tripID)
}

// Run polls until the context is canceled. Call it from its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	m.log.Info().Dur("interval", m.interval).Msg("weather monitor started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("weather monitor stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) {
	m.mu.Lock()
	trips := make([]uuid.UUID, 0, len(m.watched))
	for id := range m.watched {
		trips = append(trips, id)
	}
	m.mu.Unlock()

	for _, tripID := range trips {
		if err := m.checkTrip(ctx, tripID); err != nil {
			m.log.Warn().Err(err).Str("trip_id", tripID.String()).Msg("weather sweep failed")
		}
	}
}

// checkTrip looks at today's and tomorrow's forecast for each day's first
// located item and ingests a high-severity weather event on heavy rain.
func (m *Monitor) checkTrip(ctx context.Context, tripID uuid.UUID) error {
	prefs, err := m.store.GetPreferences(ctx, tripID)
	if err != nil {
		return err
	}
	items, err := m.store.ListItems(ctx, tripID)
	if err != nil {
		return err
	}
	firstLoc := make(map[int]*model.Location)
	for _, it := range items {
		if it.Location != nil && firstLoc[it.Day] == nil {
			loc := *it.Location
			firstLoc[it.Day] = &loc
		}
	}

	today := time.Now().Format("2006-01-02")
	for offset := 0; offset <= 1; offset++ {
		date, err := timeofday.AddDays(today, offset)
		if err != nil {
			continue
		}
		day := dayOfDate(prefs.Dates.Start, date)
		if day < 1 {
			continue
		}
		loc := firstLoc[day]
		if loc == nil {
			continue
		}

		key := tripID.String() + ":" + date
		m.mu.Lock()
		seen := m.alerted[key]
		m.mu.Unlock()
		if seen {
			continue
		}

		forecast, err := m.source.Forecast(ctx, *loc, date)
		if err != nil || forecast == nil {
			continue
		}
		if forecast.Condition != "heavy_rain" || forecast.Severity != model.SeverityHigh {
			continue
		}

		_, trigger, err := m.events.Ingest(ctx, IngestInput{
			TripID:   tripID,
			Type:     model.EventWeather,
			Severity: model.SeverityHigh,
			Location: *loc,
			TimeSlot: model.EventTimeSlot{
				Date:  date,
				Start: prefs.DailyWindow.Start,
				End:   prefs.DailyWindow.End,
			},
			Details: model.EventDetails{
				Weather: &model.WeatherDetails{Condition: forecast.Condition},
			},
		})
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.alerted[key] = true
		m.mu.Unlock()
		m.log.Info().
			Str("trip_id", tripID.String()).
			Str("date", date).
			Bool("replan_triggered", trigger != nil).
			Msg("severe weather ingested")
	}
	return nil
}
