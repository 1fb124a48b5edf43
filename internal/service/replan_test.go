package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/internal/routing"
)

// replanFixture builds a one-day trip whose generated itinerary has a single
// outdoor tour, plus an indoor alternative in the catalog, then ingests heavy
// rain to produce a trigger.
type replanFixture struct {
	env     *testEnv
	tripID  uuid.UUID
	park    model.POI
	museum  model.POI
	trigger *model.ReplanTrigger
	svc     *ReplanService
}

func newReplanFixture(t *testing.T) *replanFixture {
	t.Helper()
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	park := e.poi("Riverside Park Tour", locLouvre, 120, "outdoor", "park")
	museum := e.poi("Modern Art Museum", locMarais, 120, "indoor", "museum")

	_, err := newTestGenerator(e).Generate(context.Background(), GenerateInput{
		TripID: tripID,
		POIIDs: []uuid.UUID{park.ID},
	})
	require.NoError(t, err)

	in := heavyRain(locLouvre, "2025-03-01")
	in.TripID = tripID
	_, trigger, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, trigger)

	return &replanFixture{
		env:     e,
		tripID:  tripID,
		park:    park,
		museum:  museum,
		trigger: trigger,
		svc: NewReplanService(e.store, e.catalog,
			routing.NewHaversineEstimator(), time.Hour, e.log),
	}
}

func TestPropose_WeatherStrategiesRankedByScore(t *testing.T) {
	f := newReplanFixture(t)

	proposals, err := f.svc.Propose(context.Background(), f.trigger.ID)
	require.NoError(t, err)
	// Replace-indoor and remove; move-day has nowhere to go on a 1-day trip.
	require.Len(t, proposals, 2)

	replace := proposals[0]
	require.Len(t, replace.Changes.Replaced, 1)
	assert.Equal(t, "Modern Art Museum", replace.Changes.Replaced[0].NewItem.Name)
	// One replacement: disruption 0.3, no cost or duration change.
	assert.InDelta(t, 0.3, replace.Impact.DisruptionScore, 1e-9)
	assert.InDelta(t, 0.85, replace.Score, 1e-9)
	assert.Equal(t, 0, replace.Impact.TimeChangeMinutes)

	remove := proposals[1]
	require.Len(t, remove.Changes.Removed, 1)
	assert.InDelta(t, 0.4, remove.Impact.DisruptionScore, 1e-9)
	assert.InDelta(t, 0.8, remove.Score, 1e-9)

	assert.GreaterOrEqual(t, proposals[0].Score, proposals[1].Score)
}

func TestPropose_PinnedItemsAreUntouchable(t *testing.T) {
	f := newReplanFixture(t)
	ctx := context.Background()

	items, err := f.env.store.ListItems(ctx, f.tripID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, newTestEditor(f.env).TogglePin(ctx, f.tripID, items[0].ID, true, "tester"))

	// Re-ingest so the affected set is re-evaluated against the pinned item.
	in := heavyRain(locLouvre, "2025-03-01")
	in.TripID = f.tripID
	_, trigger, err := NewEventService(f.env.store, f.env.catalog, f.env.log).Ingest(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, trigger)

	_, err = f.svc.Propose(ctx, trigger.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeReplanFailed), "only a pinned item was affected")
}

func TestApply_SwapsItemsBumpsVersionOpensRollback(t *testing.T) {
	f := newReplanFixture(t)
	ctx := context.Background()

	proposals, err := f.svc.Propose(ctx, f.trigger.ID)
	require.NoError(t, err)
	replace := proposals[0]

	app, err := f.svc.Apply(ctx, replace.ID, "apply-key-1")
	require.NoError(t, err)
	assert.Equal(t, 2, app.AppliedVersion)
	assert.True(t, app.RollbackAvailableUntil.After(time.Now()))

	items, err := f.env.store.ListItems(ctx, f.tripID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Modern Art Museum", items[0].Name)
	assert.Equal(t, 0, items[0].Order)

	itin, err := f.env.store.GetItinerary(ctx, f.tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, itin.Version)

	// Both the pre-state and post-state snapshots exist.
	v1, err := f.env.store.GetVersion(ctx, f.tripID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Riverside Park Tour", v1.Snapshot[0].Items[0].Name)
	v2, err := f.env.store.GetVersion(ctx, f.tripID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.ChangeReplan, v2.ChangeType)

	// The trigger is consumed.
	trigger, err := f.env.store.GetTrigger(ctx, f.trigger.ID)
	require.NoError(t, err)
	assert.True(t, trigger.Processed)
}

func TestApply_ReplayedKeyIsRejected(t *testing.T) {
	f := newReplanFixture(t)
	ctx := context.Background()

	proposals, err := f.svc.Propose(ctx, f.trigger.ID)
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, proposals[0].ID, "apply-key-dup")
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, proposals[0].ID, "apply-key-dup")
	assert.True(t, apperr.Is(err, apperr.CodeIdempotencyConflict))
}

func TestApply_StorageFailureLeavesNothingBehind(t *testing.T) {
	f := newReplanFixture(t)
	ctx := context.Background()

	proposals, err := f.svc.Propose(ctx, f.trigger.ID)
	require.NoError(t, err)

	f.env.store.FailOnce("UpsertItinerary", repository.ErrUnavailable)
	_, err = f.svc.Apply(ctx, proposals[0].ID, "apply-key-atomic")
	require.Error(t, err)

	// The transaction rolled back: items, version, and applications are as
	// they were before the attempt.
	items, err := f.env.store.ListItems(ctx, f.tripID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Riverside Park Tour", items[0].Name)

	itin, err := f.env.store.GetItinerary(ctx, f.tripID)
	require.NoError(t, err)
	assert.Equal(t, 1, itin.Version)

	_, err = f.env.store.GetApplicationByKey(ctx, "apply-key-atomic")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The key was never consumed, so the same apply succeeds afterwards.
	_, err = f.svc.Apply(ctx, proposals[0].ID, "apply-key-atomic")
	require.NoError(t, err)
}

func TestRollback_RestoresPreApplyState(t *testing.T) {
	f := newReplanFixture(t)
	ctx := context.Background()

	proposals, err := f.svc.Propose(ctx, f.trigger.ID)
	require.NoError(t, err)
	before, err := f.env.store.ListItems(ctx, f.tripID)
	require.NoError(t, err)

	app, err := f.svc.Apply(ctx, proposals[0].ID, "apply-key-rb")
	require.NoError(t, err)

	require.NoError(t, f.svc.Rollback(ctx, app.ID))

	after, err := f.env.store.ListItems(ctx, f.tripID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID, "rollback restores the snapshot exactly, ids included")
	assert.Equal(t, "Riverside Park Tour", after[0].Name)

	itin, err := f.env.store.GetItinerary(ctx, f.tripID)
	require.NoError(t, err)
	assert.Equal(t, 1, itin.Version)

	// A second rollback of the same application is refused.
	err = f.svc.Rollback(ctx, app.ID)
	assert.True(t, apperr.Is(err, apperr.CodeRollbackExpired))
}

func TestRollback_TripStaysMutable(t *testing.T) {
	f := newReplanFixture(t)
	ctx := context.Background()

	proposals, err := f.svc.Propose(ctx, f.trigger.ID)
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	app, err := f.svc.Apply(ctx, proposals[0].ID, "apply-key-undo")
	require.NoError(t, err)
	require.NoError(t, f.svc.Rollback(ctx, app.ID))

	// The undone version is superseded; the next edit takes its slot.
	items, err := f.env.store.ListItems(ctx, f.tripID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, newTestEditor(f.env).TogglePin(ctx, f.tripID, items[0].ID, true, "tester"))

	itin, err := f.env.store.GetItinerary(ctx, f.tripID)
	require.NoError(t, err)
	assert.Equal(t, 2, itin.Version)
	versions, err := f.env.store.ListVersions(ctx, f.tripID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, model.ChangeTogglePin, versions[1].ChangeType)

	// Applying the alternative proposal with a fresh key also succeeds.
	app2, err := f.svc.Apply(ctx, proposals[1].ID, "apply-key-alt")
	require.NoError(t, err)
	assert.Equal(t, 3, app2.AppliedVersion)

	itin, err = f.env.store.GetItinerary(ctx, f.tripID)
	require.NoError(t, err)
	assert.Equal(t, 3, itin.Version)
}

func TestRollback_WindowExpiry(t *testing.T) {
	f := newReplanFixture(t)
	ctx := context.Background()

	proposals, err := f.svc.Propose(ctx, f.trigger.ID)
	require.NoError(t, err)
	app, err := f.svc.Apply(ctx, proposals[0].ID, "apply-key-exp")
	require.NoError(t, err)

	// Age the window out directly in the store.
	app.RollbackAvailableUntil = time.Now().Add(-time.Minute)
	require.NoError(t, f.env.store.UpdateApplication(ctx, app))

	err = f.svc.Rollback(ctx, app.ID)
	assert.True(t, apperr.Is(err, apperr.CodeRollbackExpired))
}

func TestPropose_ClosureReplacesSimilarNearby(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	closedCafe := e.poi("Cafe Lumiere", locLouvre, 60, "cafe", "food")
	altCafe := e.poi("Cafe Rivoli", locOrsay, 60, "cafe", "food")
	_ = altCafe

	_, err := newTestGenerator(e).Generate(context.Background(), GenerateInput{
		TripID: tripID,
		POIIDs: []uuid.UUID{closedCafe.ID},
	})
	require.NoError(t, err)

	in := IngestInput{
		TripID:   tripID,
		Type:     model.EventClosure,
		Severity: model.SeverityHigh,
		Location: locLouvre,
		TimeSlot: model.EventTimeSlot{Date: "2025-03-01", Start: "09:00", End: "18:00"},
		Details:  model.EventDetails{Closure: &model.ClosureDetails{Reason: "burst pipe"}},
	}
	_, trigger, err := NewEventService(e.store, e.catalog, e.log).Ingest(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, trigger)

	svc := NewReplanService(e.store, e.catalog, routing.NewHaversineEstimator(), time.Hour, e.log)
	proposals, err := svc.Propose(context.Background(), trigger.ID)
	require.NoError(t, err)
	require.NotEmpty(t, proposals)

	require.Len(t, proposals[0].Changes.Replaced, 1)
	assert.Equal(t, "Cafe Rivoli", proposals[0].Changes.Replaced[0].NewItem.Name)
}
