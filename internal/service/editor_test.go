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

func newTestEditor(e *testEnv) *Editor {
	return NewEditor(e.store, e.catalog, 15, e.log)
}

// seedDay inserts two items on day 1: X at 09:00–10:00 and pinned Y at
// 11:00–11:30.
func seedDay(t *testing.T, e *testEnv, tripID uuid.UUID) (x, y *model.ItineraryItem) {
	x = e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Gallery X",
		StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60, Order: 0,
	})
	y = e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemMeal, Name: "Brunch Y",
		StartTime: "11:00", EndTime: "11:30", DurationMinutes: 30, Order: 1,
		IsPinned: true,
	})
	return x, y
}

func TestReorder_PinnedKeepsSlotOthersReflow(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	x, y := seedDay(t, e, tripID)

	// Put Y first. Pinned Y keeps 11:00–11:30; X re-flows after it.
	err := newTestEditor(e).Reorder(context.Background(), tripID, 1,
		[]uuid.UUID{y.ID, x.ID}, "tester")
	require.NoError(t, err)

	items, err := e.store.ListDayItems(context.Background(), tripID, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, y.ID, items[0].ID)
	assert.Equal(t, "11:00", items[0].StartTime, "pinned item keeps its time")
	assert.Equal(t, x.ID, items[1].ID)
	assert.Equal(t, "11:30", items[1].StartTime)
	assert.Equal(t, "12:30", items[1].EndTime)
}

func TestReorder_RejectsNonPermutation(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	x, _ := seedDay(t, e, tripID)

	ed := newTestEditor(e)
	err := ed.Reorder(context.Background(), tripID, 1, []uuid.UUID{x.ID}, "tester")
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "missing id should be rejected")

	err = ed.Reorder(context.Background(), tripID, 1, []uuid.UUID{x.ID, x.ID}, "tester")
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "duplicate id should be rejected")

	err = ed.Reorder(context.Background(), tripID, 1, []uuid.UUID{x.ID, uuid.New()}, "tester")
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "foreign id should be rejected")
}

func TestSetStartTime_AnchorsEditedItem(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	x, y := seedDay(t, e, tripID)

	// Move X to 14:00; it keeps its new slot, pinned Y is untouched.
	err := newTestEditor(e).SetStartTime(context.Background(), tripID, x.ID, "14:00", "tester")
	require.NoError(t, err)

	got, err := e.store.GetItem(context.Background(), x.ID)
	require.NoError(t, err)
	assert.Equal(t, "14:00", got.StartTime)
	assert.Equal(t, "15:00", got.EndTime)

	gotY, err := e.store.GetItem(context.Background(), y.ID)
	require.NoError(t, err)
	assert.Equal(t, "11:00", gotY.StartTime)
}

func TestSetStartTime_RejectsBadTime(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	x, _ := seedDay(t, e, tripID)

	err := newTestEditor(e).SetStartTime(context.Background(), tripID, x.ID, "9am", "tester")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	// 23:30 + 60 min crosses midnight.
	err = newTestEditor(e).SetStartTime(context.Background(), tripID, x.ID, "23:30", "tester")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestRemove_PinnedItemRefused(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	_, y := seedDay(t, e, tripID)

	err := newTestEditor(e).Remove(context.Background(), tripID, y.ID, "tester")
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "pinned item must be unpinned first")
}

func TestRemove_ReflowsRemainingDay(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	x, y := seedDay(t, e, tripID)

	ed := newTestEditor(e)
	ctx := context.Background()
	require.NoError(t, ed.TogglePin(ctx, tripID, y.ID, false, "tester"))
	require.NoError(t, ed.Remove(ctx, tripID, x.ID, "tester"))

	items, err := e.store.ListDayItems(ctx, tripID, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, y.ID, items[0].ID)
	assert.Equal(t, 0, items[0].Order)
	assert.Equal(t, "09:00", items[0].StartTime, "unpinned survivor packs to window start")
}

func TestAdd_DefaultsAfterLastItem(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	seedDay(t, e, tripID)
	poi := e.pricedPOI("Wine Bar", locMarais, 90, 20, 40)

	item, err := newTestEditor(e).Add(context.Background(), tripID, 1, poi.ID, nil, "tester")
	require.NoError(t, err)
	// Last item ends 11:30; default start is that plus the buffer.
	assert.Equal(t, "11:45", item.StartTime)
	assert.Equal(t, "13:15", item.EndTime)
	assert.Equal(t, 2, item.Order)
	require.NotNil(t, item.CostEstimate)
	assert.Equal(t, "30", item.CostEstimate.Amount.Amount.String())
}

func TestEdits_BumpVersionEachTime(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	x, y := seedDay(t, e, tripID)

	ed := newTestEditor(e)
	ctx := context.Background()
	require.NoError(t, ed.TogglePin(ctx, tripID, x.ID, true, "tester"))
	require.NoError(t, ed.TogglePin(ctx, tripID, y.ID, false, "tester"))

	itin, err := e.store.GetItinerary(ctx, tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, itin.Version)

	versions, err := e.store.ListVersions(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, model.ChangeTogglePin, versions[1].ChangeType)
}
