package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shiva/wayplan/internal/catalog"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
)

// ─── Shared fixtures ────────────────────────────────────────

// testEnv bundles the in-memory store and catalog every service test uses.
type testEnv struct {
	store   *repository.MemStore
	catalog *catalog.MemoryCatalog
	log     zerolog.Logger
}

func newTestEnv() *testEnv {
	return &testEnv{
		store:   repository.NewMemStore(),
		catalog: catalog.NewMemoryCatalog(),
		log:     zerolog.Nop(),
	}
}

// newTrip seeds a guest trip to testDestination with the given date range and
// a 09:00–18:00 daily window.
func (e *testEnv) newTrip(t *testing.T, start, end string) uuid.UUID {
	t.Helper()
	guest := uuid.New()
	trip := &model.Trip{GuestSessionID: &guest, Status: model.TripPlanning}
	require.NoError(t, e.store.CreateTrip(context.Background(), trip))
	require.NoError(t, e.store.UpsertPreferences(context.Background(), &model.TripPreferences{
		TripID:      trip.ID,
		Destination: testDestination,
		Dates:       model.DateRange{Start: start, End: end},
		Travelers:   model.Travelers{Adults: 2},
		Budget:      model.Budget{Currency: "EUR"},
		DailyWindow: model.TimeWindow{Start: "09:00", End: "18:00"},
	}))
	return trip.ID
}

const testDestination = "paris"

// poi registers a catalog POI with the given duration, no opening hours.
func (e *testEnv) poi(name string, loc model.Location, durationMinutes int, tags ...string) model.POI {
	return e.catalog.Put(testDestination, model.POI{
		Name:               name,
		Location:           loc,
		Tags:               tags,
		AvgDurationMinutes: durationMinutes,
	})
}

// pricedPOI is poi plus a price band, for cost-estimate paths.
func (e *testEnv) pricedPOI(name string, loc model.Location, durationMinutes int, min, max int64, tags ...string) model.POI {
	return e.catalog.Put(testDestination, model.POI{
		Name:               name,
		Location:           loc,
		Tags:               tags,
		AvgDurationMinutes: durationMinutes,
		PriceRange: &model.PriceRange{
			Min:      decimal.NewFromInt(min),
			Max:      decimal.NewFromInt(max),
			Currency: "EUR",
		},
	})
}

// insertItem puts an item directly into the store, bypassing the generator.
func (e *testEnv) insertItem(t *testing.T, item *model.ItineraryItem) *model.ItineraryItem {
	t.Helper()
	require.NoError(t, e.store.InsertItem(context.Background(), item))
	return item
}

// Central Paris coordinates used across tests; all within walking distance.
var (
	locLouvre  = model.Location{Lat: 48.8606, Lng: 2.3376}
	locMarais  = model.Location{Lat: 48.8566, Lng: 2.3622}
	locOrsay   = model.Location{Lat: 48.8600, Lng: 2.3266}
	locLaVille = model.Location{Lat: 48.8738, Lng: 2.2950} // ~3.5 km out
)
