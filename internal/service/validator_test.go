package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/wayplan/internal/model"
)

func findIssue(report *Report, typ IssueType) *Issue {
	for i := range report.Issues {
		if report.Issues[i].Type == typ {
			return &report.Issues[i]
		}
	}
	return nil
}

func TestValidate_CleanItinerary(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	seedDay(t, e, tripID)

	report, err := NewValidator(e.store, e.catalog).Validate(context.Background(), tripID)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestValidate_TimeConflictIsError(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")
	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "First",
		StartTime: "09:00", EndTime: "11:00", DurationMinutes: 120, Order: 0,
	})
	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Overlapping",
		StartTime: "10:30", EndTime: "11:30", DurationMinutes: 60, Order: 1,
	})

	report, err := NewValidator(e.store, e.catalog).Validate(context.Background(), tripID)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	issue := findIssue(report, IssueTimeConflict)
	require.NotNil(t, issue)
	assert.Equal(t, SeverityError, issue.Severity)
}

func TestValidate_OpeningHoursViolation(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01") // saturday
	poi := e.catalog.Put(testDestination, model.POI{
		Name:               "Late Museum",
		Location:           locLouvre,
		AvgDurationMinutes: 60,
		Hours:              model.WeeklyHours{"saturday": {Open: "12:00", Close: "17:00"}},
	})
	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, POIID: &poi.ID,
		Name: poi.Name, StartTime: "09:00", EndTime: "10:00",
		DurationMinutes: 60, Order: 0,
	})

	report, err := NewValidator(e.store, e.catalog).Validate(context.Background(), tripID)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	issue := findIssue(report, IssueOpeningHours)
	require.NotNil(t, issue)
	assert.Equal(t, SeverityError, issue.Severity)
}

func TestValidate_WindowAndBudgetAreWarnings(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")

	// Cap the per-day budget below the item's estimate.
	prefs, err := e.store.GetPreferences(context.Background(), tripID)
	require.NoError(t, err)
	perDay := decimal.NewFromInt(10)
	prefs.Budget.PerDay = &perDay
	require.NoError(t, e.store.UpsertPreferences(context.Background(), prefs))

	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Early Riser Tour",
		StartTime: "07:00", EndTime: "08:00", DurationMinutes: 60, Order: 0,
		CostEstimate: &model.CostEstimate{
			Amount:     model.Money{Amount: decimal.NewFromInt(45), Currency: "EUR"},
			Confidence: model.CostEstimated,
		},
	})

	report, err := NewValidator(e.store, e.catalog).Validate(context.Background(), tripID)
	require.NoError(t, err)
	assert.True(t, report.Valid, "warnings alone keep the report valid")
	require.NotNil(t, findIssue(report, IssueTimeWindow))
	require.NotNil(t, findIssue(report, IssueBudget))
}

func TestValidate_WalkingDistanceWarning(t *testing.T) {
	e := newTestEnv()
	tripID := e.newTrip(t, "2025-03-01", "2025-03-01")

	prefs, err := e.store.GetPreferences(context.Background(), tripID)
	require.NoError(t, err)
	maxKm := 1.0
	prefs.Constraints.MaxWalkingKmPerDay = &maxKm
	require.NoError(t, e.store.UpsertPreferences(context.Background(), prefs))

	e.insertItem(t, &model.ItineraryItem{
		TripID: tripID, Day: 1, Type: model.ItemPOI, Name: "Far Walk",
		StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60, Order: 0,
		RouteFromPrevious: &model.RouteSegment{
			Mode:            model.ModeWalking,
			DistanceKm:      3.4,
			DurationMinutes: 45,
		},
	})

	report, err := NewValidator(e.store, e.catalog).Validate(context.Background(), tripID)
	require.NoError(t, err)
	issue := findIssue(report, IssueDistance)
	require.NotNil(t, issue)
	assert.Equal(t, SeverityWarning, issue.Severity)
}
