package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/provider"
)

// newBookingEnv wires a trip, a mock provider with one bookable tour, and
// the booking service.
func newBookingEnv(t *testing.T) (*testEnv, *provider.MockProvider, *BookingService, *model.Trip) {
	t.Helper()
	e := newTestEnv()

	mock := provider.NewMockProvider("mock-activities", "activity")
	mock.AddItem(provider.Details{
		ID:           "TOUR-1",
		Name:         "Seine River Cruise",
		Location:     &locLouvre,
		Price:        model.Money{Amount: decimal.NewFromInt(35), Currency: "EUR"},
		Availability: true,
	})
	registry := provider.NewRegistry()
	registry.Register(mock)

	svc := NewBookingService(e.store, registry, 0, e.log)

	tripID := e.newTrip(t, "2025-03-01", "2025-03-02")
	trip, err := e.store.GetTrip(context.Background(), tripID)
	require.NoError(t, err)
	return e, mock, svc, trip
}

func tourInput(trip *model.Trip, key string) CreateBookingInput {
	return CreateBookingInput{
		TripID:         trip.ID,
		ProviderID:     "mock-activities",
		ProviderItemID: "TOUR-1",
		Date:           "2025-03-01",
		Travelers:      model.Travelers{Adults: 2},
		ContactInfo:    model.ContactInfo{Name: "Ada", Email: "ada@example.com"},
		IdempotencyKey: key,
		ChangedBy:      "ada",
	}
}

func TestBookingCreate_ConfirmedWithHistory(t *testing.T) {
	e, _, svc, trip := newBookingEnv(t)
	ctx := context.Background()

	booking, err := svc.Create(ctx, tourInput(trip, "key-1"))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.NotEmpty(t, booking.ExternalBookingID)
	assert.NotEmpty(t, booking.ConfirmationNumber)
	assert.Equal(t, "35", booking.Price.Amount.String())

	history, err := e.store.ListBookingHistory(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].FromStatus, "first entry is the null → pending transition")
	assert.Equal(t, model.BookingPending, history[0].ToStatus)
	assert.Equal(t, model.BookingConfirmed, history[1].ToStatus)
}

func TestBookingCreate_IdempotentReplay(t *testing.T) {
	_, _, svc, trip := newBookingEnv(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, tourInput(trip, "key-replay"))
	require.NoError(t, err)

	second, err := svc.Create(ctx, tourInput(trip, "key-replay"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same key returns the original booking")

	bookings, err := svc.ListForTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1, "no duplicate booking row")
}

func TestBookingCreate_RequiresIdempotencyKey(t *testing.T) {
	_, _, svc, trip := newBookingEnv(t)
	_, err := svc.Create(context.Background(), tourInput(trip, ""))
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestBookingCreate_ProviderFailureThenRetry(t *testing.T) {
	e, mock, svc, trip := newBookingEnv(t)
	ctx := context.Background()
	mock.FailCreateBooking("TOUR-1", errors.New("inventory gone"))

	booking, err := svc.Create(ctx, tourInput(trip, "key-fail"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeBookingFailed))
	require.NotNil(t, booking)
	assert.Equal(t, model.BookingFailed, booking.Status)

	// Retrying while the provider still fails keeps the booking failed.
	_, err = svc.Retry(ctx, booking.ID, tourInput(trip, ""))
	assert.True(t, apperr.Is(err, apperr.CodeBookingFailed))

	// Clear the fault; retry drives failed → pending → confirmed.
	mock.FailCreateBooking("TOUR-1", nil)
	retried, err := svc.Retry(ctx, booking.ID, tourInput(trip, ""))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, retried.Status)

	history, err := e.store.ListBookingHistory(ctx, booking.ID)
	require.NoError(t, err)
	// pending, failed, pending (retry), failed, pending (retry), confirmed.
	assert.Equal(t, model.BookingConfirmed, history[len(history)-1].ToStatus)
}

func TestBookingRetry_OnlyFromFailed(t *testing.T) {
	_, _, svc, trip := newBookingEnv(t)
	ctx := context.Background()

	booking, err := svc.Create(ctx, tourInput(trip, "key-confirmed"))
	require.NoError(t, err)

	_, err = svc.Retry(ctx, booking.ID, tourInput(trip, ""))
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
	assert.True(t, errors.Is(err, ErrRetryNotFailed))
}

func TestBookingCancel_OnlyConfirmed(t *testing.T) {
	e, mock, svc, trip := newBookingEnv(t)
	ctx := context.Background()

	// A failed booking cannot be canceled.
	mock.FailCreateBooking("TOUR-1", errors.New("down"))
	failed, _ := svc.Create(ctx, tourInput(trip, "key-c1"))
	_, err := svc.Cancel(ctx, failed.ID, "ada")
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	mock.FailCreateBooking("TOUR-1", nil)
	confirmed, err := svc.Create(ctx, tourInput(trip, "key-c2"))
	require.NoError(t, err)

	canceled, err := svc.Cancel(ctx, confirmed.ID, "ada")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCanceled, canceled.Status)

	history, err := e.store.ListBookingHistory(ctx, confirmed.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, model.BookingCanceled, last.ToStatus)
	assert.Contains(t, last.Reason, "refund full")
}

func TestBookingWebhook_CancelAndReplay(t *testing.T) {
	_, _, svc, trip := newBookingEnv(t)
	ctx := context.Background()

	booking, err := svc.Create(ctx, tourInput(trip, "key-wh"))
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]any{
		"event_type": "booking_canceled",
		"booking_id": booking.ExternalBookingID,
	})
	require.NoError(t, svc.HandleWebhook(ctx, "mock-activities", payload))

	got, err := svc.Get(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCanceled, got.Status)

	// Replaying the same webhook is a no-op, not an invalid transition.
	require.NoError(t, svc.HandleWebhook(ctx, "mock-activities", payload))
}

func TestFindAlternatives_RankedByPriceDelta(t *testing.T) {
	_, mock, svc, trip := newBookingEnv(t)
	ctx := context.Background()

	mock.AddItem(provider.Details{
		ID: "TOUR-2", Name: "Evening Cruise", Location: &locMarais,
		Price: model.Money{Amount: decimal.NewFromInt(38), Currency: "EUR"}, Availability: true,
	})
	mock.AddItem(provider.Details{
		ID: "TOUR-3", Name: "Dinner Cruise", Location: &locOrsay,
		Price: model.Money{Amount: decimal.NewFromInt(90), Currency: "EUR"}, Availability: true,
	})

	booking, err := svc.Create(ctx, tourInput(trip, "key-alt"))
	require.NoError(t, err)

	alts, err := svc.FindAlternatives(ctx, booking.ID, 2)
	require.NoError(t, err)
	require.NotEmpty(t, alts)
	assert.LessOrEqual(t, len(alts), 2)
	// Closest price first.
	for i := 1; i < len(alts); i++ {
		assert.LessOrEqual(t, alts[i-1].PriceDelta, alts[i].PriceDelta)
	}
}

func TestCanTransition_Graph(t *testing.T) {
	pending := model.BookingPending
	confirmed := model.BookingConfirmed
	failed := model.BookingFailed
	canceled := model.BookingCanceled
	refunded := model.BookingRefunded

	assert.True(t, model.CanTransition(nil, pending))
	assert.False(t, model.CanTransition(nil, confirmed))
	assert.True(t, model.CanTransition(&pending, confirmed))
	assert.True(t, model.CanTransition(&pending, failed))
	assert.True(t, model.CanTransition(&failed, pending))
	assert.False(t, model.CanTransition(&failed, confirmed))
	assert.True(t, model.CanTransition(&confirmed, canceled))
	assert.True(t, model.CanTransition(&confirmed, refunded))
	assert.True(t, model.CanTransition(&canceled, refunded))
	assert.False(t, model.CanTransition(&refunded, pending))
	assert.False(t, model.CanTransition(&canceled, pending))
}
