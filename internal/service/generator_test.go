package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
)

func newTestGenerator(e *testEnv) *Generator {
	return NewGenerator(e.store, e.catalog, GeneratorOptions{}, e.log)
}

func TestGenerate_RespectsOpeningHoursAndBuffer(t *testing.T) {
	e := newTestEnv()
	// One-day trip, window 09:00–18:00. The POI opens at 10:00, so the
	// placement is max(window, open) plus the 15-minute buffer.
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	poi := e.catalog.Put(testDestination, model.POI{
		Name:               "Louvre Museum",
		Location:           locLouvre,
		AvgDurationMinutes: 120,
		Hours: model.WeeklyHours{
			"saturday": {Open: "10:00", Close: "20:00"},
		},
	})

	days, err := newTestGenerator(e).Generate(context.Background(), GenerateInput{
		TripID: tripID,
		POIIDs: []uuid.UUID{poi.ID},
	})
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Len(t, days[0].Items, 1)

	item := days[0].Items[0]
	assert.Equal(t, "10:15", item.StartTime)
	assert.Equal(t, "12:15", item.EndTime)
	assert.Equal(t, 0, item.Order)
	assert.Nil(t, item.RouteFromPrevious, "first placement of the day has no travel leg")
}

func TestGenerate_RoundRobinAcrossDays(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-02")
	a := e.poi("Museum A", locLouvre, 60)
	b := e.poi("Museum B", locMarais, 60)
	c := e.poi("Museum C", locOrsay, 60)

	days, err := newTestGenerator(e).Generate(context.Background(), GenerateInput{
		TripID: tripID,
		POIIDs: []uuid.UUID{a.ID, b.ID, c.ID},
	})
	require.NoError(t, err)
	require.Len(t, days, 2, "inclusive date range 03-01..03-02 is two days")

	// Round-robin: A and C land on day 1, B on day 2.
	require.Len(t, days[0].Items, 2)
	require.Len(t, days[1].Items, 1)
	assert.Equal(t, "Museum A", days[0].Items[0].Name)
	assert.Equal(t, "Museum C", days[0].Items[1].Name)
	assert.Equal(t, "Museum B", days[1].Items[0].Name)

	// The second item of day 1 carries a travel placeholder from the first.
	second := days[0].Items[1]
	require.NotNil(t, second.RouteFromPrevious)
	assert.Equal(t, days[0].Items[0].ID, *second.RouteFromPrevious.FromItemID)
	assert.Equal(t, 20, second.RouteFromPrevious.DurationMinutes)
	// buffer + travel after the first item's 10:15 end.
	assert.Equal(t, "10:50", second.StartTime)
}

func TestGenerate_VersionsAndSnapshots(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	a := e.poi("Museum A", locLouvre, 60)

	gen := newTestGenerator(e)
	ctx := context.Background()
	_, err := gen.Generate(ctx, GenerateInput{TripID: tripID, POIIDs: []uuid.UUID{a.ID}})
	require.NoError(t, err)

	itin, err := e.store.GetItinerary(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 1, itin.Version)

	// Regenerating bumps the version and appends a snapshot.
	_, err = gen.Generate(ctx, GenerateInput{TripID: tripID, POIIDs: []uuid.UUID{a.ID}})
	require.NoError(t, err)
	itin, err = e.store.GetItinerary(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, itin.Version)

	versions, err := e.store.ListVersions(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, model.ChangeGenerate, versions[0].ChangeType)
}

func TestGenerate_PreservesPinnedItems(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	a := e.poi("Museum A", locLouvre, 60)

	pinned := e.insertItem(t, &model.ItineraryItem{
		TripID:          tripID,
		Day:             1,
		Type:            model.ItemMeal,
		Name:            "Lunch Reservation",
		StartTime:       "12:00",
		EndTime:         "13:00",
		DurationMinutes: 60,
		IsPinned:        true,
	})

	days, err := newTestGenerator(e).Generate(context.Background(), GenerateInput{
		TripID:         tripID,
		POIIDs:         []uuid.UUID{a.ID},
		PreservePinned: true,
	})
	require.NoError(t, err)
	require.Len(t, days[0].Items, 2)

	assert.Equal(t, pinned.ID, days[0].Items[0].ID)
	assert.Equal(t, "12:00", days[0].Items[0].StartTime, "pinned item keeps its slot")
	// The new item is placed after the pinned block: 13:00 + 15 buffer.
	assert.Equal(t, "13:15", days[0].Items[1].StartTime)
}

func TestGenerate_NoResolvablePOIs(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")

	_, err := newTestGenerator(e).Generate(context.Background(), GenerateInput{
		TripID: tripID,
		POIIDs: []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestGenerate_SkipsClosedPOI(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01") // saturday
	closed := e.catalog.Put(testDestination, model.POI{
		Name:               "Weekday Gallery",
		Location:           locLouvre,
		AvgDurationMinutes: 60,
		Hours:              model.WeeklyHours{"saturday": {Closed: true}},
	})
	open := e.poi("Open Museum", locMarais, 60)

	days, err := newTestGenerator(e).Generate(context.Background(), GenerateInput{
		TripID: tripID,
		POIIDs: []uuid.UUID{closed.ID, open.ID},
	})
	require.NoError(t, err)
	require.Len(t, days[0].Items, 1)
	assert.Equal(t, "Open Museum", days[0].Items[0].Name)
}
