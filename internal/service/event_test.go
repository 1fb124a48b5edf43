package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
)

func heavyRain(loc model.Location, date string) IngestInput {
	return IngestInput{
		Type:     model.EventWeather,
		Severity: model.SeverityHigh,
		Location: loc,
		TimeSlot: model.EventTimeSlot{Date: date, Start: "09:00", End: "18:00"},
		Details: model.EventDetails{
			Weather: &model.WeatherDetails{Condition: "heavy_rain"},
		},
	}
}

func TestIngest_HeavyRainTriggersReplanForOutdoorItems(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-02")

	outdoor := e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Riverside Park Walk",
		Location: &locLouvre, StartTime: "10:00", EndTime: "12:00",
		DurationMinutes: 120, Order: 0,
	})
	indoor := e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Musee Moderne",
		Location: &locMarais, StartTime: "13:00", EndTime: "15:00",
		DurationMinutes: 120, Order: 1,
	})

	in := heavyRain(locLouvre, "2025-03-01")
	in.TripID = tripID
	event, trigger, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, trigger)
	assert.Equal(t, model.SeverityHigh, trigger.Priority)
	assert.True(t, event.Processed)
	assert.True(t, event.ReplanTriggered)
	assert.Contains(t, event.AffectedItems, outdoor.ID)
	assert.NotContains(t, event.AffectedItems, indoor.ID, "indoor item is not weather-affected")
}

func TestIngest_OutdoorByPOITag(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	// The name gives no hint; the POI's tags do.
	poi := e.poi("Jardin des Plantes", locLouvre, 90, "outdoor", "garden")
	item := e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, POIID: &poi.ID,
		Name: "Jardin des Plantes", Location: &locLouvre,
		StartTime: "10:00", EndTime: "11:30", DurationMinutes: 90, Order: 0,
	})

	in := heavyRain(locLouvre, "2025-03-01")
	in.TripID = tripID
	event, _, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	require.NoError(t, err)
	assert.Contains(t, event.AffectedItems, item.ID)
}

func TestIngest_LowSeverityWeatherDoesNotTrigger(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Park Stroll",
		Location: &locLouvre, StartTime: "10:00", EndTime: "11:00",
		DurationMinutes: 60, Order: 0,
	})

	in := heavyRain(locLouvre, "2025-03-01")
	in.TripID = tripID
	in.Severity = model.SeverityLow
	event, trigger, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, trigger)
	assert.True(t, event.Processed)
	assert.False(t, event.ReplanTriggered)
}

func TestIngest_ClosureUsesTightRadius(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")

	near := e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Cafe Nearby",
		Location: &locLouvre, StartTime: "10:00", EndTime: "11:00",
		DurationMinutes: 60, Order: 0,
	})
	// ~3.5 km away: inside the weather radius but outside the closure one.
	far := e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Gallery Far",
		Location: &locLaVille, StartTime: "11:30", EndTime: "12:30",
		DurationMinutes: 60, Order: 1,
	})

	in := IngestInput{
		TripID:   tripID,
		Type:     model.EventClosure,
		Severity: model.SeverityMedium,
		Location: locLouvre,
		TimeSlot: model.EventTimeSlot{Date: "2025-03-01", Start: "09:00", End: "18:00"},
		Details:  model.EventDetails{Closure: &model.ClosureDetails{Reason: "strike"}},
	}
	event, trigger, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, trigger)
	assert.Contains(t, event.AffectedItems, near.ID)
	assert.NotContains(t, event.AffectedItems, far.ID)
}

func TestIngest_WrongDayOrSlotIsUntouched(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-02")
	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 2, Type: model.ItemPOI, Name: "Day Two Park",
		Location: &locLouvre, StartTime: "10:00", EndTime: "11:00",
		DurationMinutes: 60, Order: 0,
	})

	// Event targets day 1; the day-2 item is out of scope.
	in := heavyRain(locLouvre, "2025-03-01")
	in.TripID = tripID
	event, trigger, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, event.AffectedItems)
	assert.NotNil(t, trigger, "trigger rules look at the event, not the affected set")
}

func TestIngest_RejectsMismatchedDetails(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")

	in := heavyRain(locLouvre, "2025-03-01")
	in.TripID = tripID
	in.Type = model.EventClosure // details say weather
	_, _, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}
