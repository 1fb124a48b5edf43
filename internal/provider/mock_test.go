package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shiva/wayplan/internal/model"
)

func newMock() *MockProvider {
	p := NewMockProvider("mock-activities", "activity")
	p.AddItem(Details{
		ID:           "TOUR-1",
		Name:         "City Tour",
		Price:        model.Money{Amount: decimal.NewFromInt(25), Currency: "EUR"},
		Availability: true,
	})
	return p
}

func bookingReq(key string) CreateBookingRequest {
	return CreateBookingRequest{
		ProviderItemID: "TOUR-1",
		Date:           "2025-03-01",
		Travelers:      model.Travelers{Adults: 2},
		IdempotencyKey: key,
	}
}

func TestCreateBooking_IdempotentOnKey(t *testing.T) {
	p := newMock()
	ctx := context.Background()

	first, err := p.CreateBooking(ctx, bookingReq("k1"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != model.BookingConfirmed || first.BookingID == "" {
		t.Fatalf("unexpected result %+v", first)
	}

	replay, err := p.CreateBooking(ctx, bookingReq("k1"))
	if err != nil {
		t.Fatal(err)
	}
	if replay.BookingID != first.BookingID {
		t.Fatalf("replay created a new booking: %s vs %s", replay.BookingID, first.BookingID)
	}

	other, err := p.CreateBooking(ctx, bookingReq("k2"))
	if err != nil {
		t.Fatal(err)
	}
	if other.BookingID == first.BookingID {
		t.Fatal("distinct keys must create distinct bookings")
	}
}

func TestCreateBooking_InjectedFailureClears(t *testing.T) {
	p := newMock()
	ctx := context.Background()
	boom := errors.New("sold out upstream")

	p.FailCreateBooking("TOUR-1", boom)
	if _, err := p.CreateBooking(ctx, bookingReq("k1")); !errors.Is(err, boom) {
		t.Fatalf("want injected error, got %v", err)
	}

	p.FailCreateBooking("TOUR-1", nil)
	if _, err := p.CreateBooking(ctx, bookingReq("k1")); err != nil {
		t.Fatalf("cleared failure should book: %v", err)
	}
}

func TestCancelBooking_FullRefund(t *testing.T) {
	p := newMock()
	ctx := context.Background()

	res, err := p.CreateBooking(ctx, bookingReq("k1"))
	if err != nil {
		t.Fatal(err)
	}
	cancel, err := p.CancelBooking(ctx, res.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if cancel.RefundStatus != RefundFull {
		t.Fatalf("want full refund, got %s", cancel.RefundStatus)
	}
	if cancel.RefundAmount == nil || !cancel.RefundAmount.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("refund should equal the booked price, got %+v", cancel.RefundAmount)
	}

	status, err := p.GetBookingStatus(ctx, res.BookingID)
	if err != nil {
		t.Fatal(err)
	}
	if status != model.BookingCanceled {
		t.Fatalf("status after cancel = %s", status)
	}
}

func TestHandleWebhook_ParsesKnownEvents(t *testing.T) {
	p := newMock()
	ctx := context.Background()

	ev, err := p.HandleWebhook(ctx, []byte(`{"event_type":"booking_canceled","booking_id":"BKG-9"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != WebhookBookingCanceled || ev.ProviderBookingID != "BKG-9" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("missing timestamp should default to now")
	}

	if _, err := p.HandleWebhook(ctx, []byte(`{"event_type":"mystery"}`)); err == nil {
		t.Fatal("unknown event type must be rejected")
	}
	if _, err := p.HandleWebhook(ctx, []byte(`not json`)); err == nil {
		t.Fatal("malformed payload must be rejected")
	}
}

func TestPriceDelta(t *testing.T) {
	a := model.Money{Amount: decimal.NewFromInt(30), Currency: "EUR"}
	b := model.Money{Amount: decimal.NewFromInt(42), Currency: "EUR"}
	if d := PriceDelta(a, b); d != 12 {
		t.Fatalf("PriceDelta = %v, want 12", d)
	}
	if d := PriceDelta(b, a); d != 12 {
		t.Fatalf("PriceDelta should be symmetric, got %v", d)
	}
}
