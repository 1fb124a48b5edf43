package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/weather"
	"github.com/shiva/wayplan/pkg/timeofday"
)

func TestMonitorCheckTrip_IngestsHeavyRainOnce(t *testing.T) {
	e := newTestEnv()
	today := time.Now().Format("2006-01-02")
	tomorrow, err := timeofday.AddDays(today, 1)
	require.NoError(t, err)
	tripID := e.newTrip(t, today, tomorrow)

	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Riverside Park Walk",
		Location: &locLouvre, StartTime: "10:00", EndTime: "12:00",
		DurationMinutes: 120, Order: 0,
	})

	source := weather.NewStaticSource()
	source.Set(today, weather.Forecast{Condition: "heavy_rain", Severity: model.SeverityHigh})

	events := NewEventService(e.store, e.catalog, e.log)
	mon := NewMonitor(e.store, events, source, time.Minute, e.log)
	mon.Watch(tripID)

	require.NoError(t, mon.checkTrip(context.Background(), tripID))

	triggers, err := e.store.ListOpenTriggers(context.Background(), tripID)
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	assert.Equal(t, model.SeverityHigh, triggers[0].Priority)

	// A second sweep of the same trip and date is deduped.
	require.NoError(t, mon.checkTrip(context.Background(), tripID))
	triggers, err = e.store.ListOpenTriggers(context.Background(), tripID)
	require.NoError(t, err)
	assert.Len(t, triggers, 1)
}

func TestMonitorCheckTrip_QuietOnMildWeather(t *testing.T) {
	e := newTestEnv()
	today := time.Now().Format("2006-01-02")
	tripID := e.newTrip(t, today, today)

	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Garden Stroll",
		Location: &locLouvre, StartTime: "10:00", EndTime: "11:00",
		DurationMinutes: 60, Order: 0,
	})

	source := weather.NewStaticSource()
	source.Set(today, weather.Forecast{Condition: "light_rain", Severity: model.SeverityMedium})

	events := NewEventService(e.store, e.catalog, e.log)
	mon := NewMonitor(e.store, events, source, time.Minute, e.log)

	require.NoError(t, mon.checkTrip(context.Background(), tripID))

	triggers, err := e.store.ListOpenTriggers(context.Background(), tripID)
	require.NoError(t, err)
	assert.Empty(t, triggers)
}

func TestMonitorCheckTrip_SkipsDaysWithoutLocation(t *testing.T) {
	e := newTestEnv()
	today := time.Now().Format("2006-01-02")
	tripID := e.newTrip(t, today, today)

	// The only item has no location; nothing to forecast against.
	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemMeal, Name: "Lunch",
		StartTime: "12:00", EndTime: "13:00", DurationMinutes: 60, Order: 0,
	})

	source := weather.NewStaticSource()
	source.Set(today, weather.Forecast{Condition: "heavy_rain", Severity: model.SeverityHigh})

	events := NewEventService(e.store, e.catalog, e.log)
	mon := NewMonitor(e.store, events, source, time.Minute, e.log)

	require.NoError(t, mon.checkTrip(context.Background(), tripID))

	triggers, err := e.store.ListOpenTriggers(context.Background(), tripID)
	require.NoError(t, err)
	assert.Empty(t, triggers)
}
