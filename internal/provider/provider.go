// Package provider defines the booking-provider capability set and the
// registry that dispatches on provider id.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/shiva/wayplan/internal/model"
)

// ErrUnknownProvider is returned when a provider id does not resolve.
var ErrUnknownProvider = errors.New("unknown provider")

// ─── Wire types ─────────────────────────────────────────────

// SearchOptions filters a provider's inventory.
type SearchOptions struct {
	Query     string
	Location  *model.Location
	WithinKm  float64 // used only when Location is set
	Date      string  // YYYY-MM-DD
	Travelers model.Travelers
	Limit     int
}

// SearchResult is one inventory entry.
type SearchResult struct {
	ID          string
	Name        string
	Description string
	Location    *model.Location
	Price       model.Money
	Rating      *float64
}

// Details is the full record for one inventory entry.
type Details struct {
	ID           string
	Name         string
	Location     *model.Location
	Price        model.Money
	Availability bool
	Policies     model.BookingPolicies
	Rating       *float64
}

// Slot is one bookable time on a date.
type Slot struct {
	Time      string // HH:MM
	Available bool
	Price     *model.Money
}

// Availability is the answer to a date/traveler availability check.
type Availability struct {
	Available bool
	Slots     []Slot
}

// CreateBookingRequest carries everything a provider needs to book.
// IdempotencyKey makes retried calls return the original booking.
type CreateBookingRequest struct {
	ProviderItemID string
	Date           string  // YYYY-MM-DD
	TimeSlot       *string // HH:MM
	Travelers      model.Travelers
	ContactInfo    model.ContactInfo
	IdempotencyKey string
}

// CreateBookingResult is the provider's answer to a booking request.
// Status is confirmed or pending.
type CreateBookingResult struct {
	BookingID          string
	Status             model.BookingStatus
	Price              model.Money
	Policies           model.BookingPolicies
	VoucherURL         string
	VoucherData        string
	ConfirmationNumber string
	ExpiresAt          *time.Time
}

// RefundStatus classifies a cancellation's refund.
type RefundStatus string

const (
	RefundFull    RefundStatus = "full"
	RefundPartial RefundStatus = "partial"
	RefundNone    RefundStatus = "none"
)

// CancelResult is the provider's answer to a cancellation.
type CancelResult struct {
	BookingID    string
	RefundAmount *model.Money
	RefundStatus RefundStatus
}

// WebhookEventType enumerates the neutral webhook events every adapter
// normalizes to.
type WebhookEventType string

const (
	WebhookBookingConfirmed    WebhookEventType = "booking_confirmed"
	WebhookBookingCanceled     WebhookEventType = "booking_canceled"
	WebhookPriceChanged        WebhookEventType = "price_changed"
	WebhookAvailabilityChanged WebhookEventType = "availability_changed"
)

// WebhookEvent is the provider-neutral form of a webhook payload.
type WebhookEvent struct {
	Type              WebhookEventType
	ProviderBookingID string
	Timestamp         time.Time
	Payload           map[string]any
}

// ─── Capability set ─────────────────────────────────────────

// Provider is the adapter every booking provider implements.
type Provider interface {
	ID() string
	Type() string // activity, hotel, transport, ...

	Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error)
	GetDetails(ctx context.Context, itemID string) (*Details, error)
	CheckAvailability(ctx context.Context, itemID, date string, travelers model.Travelers) (*Availability, error)
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*CreateBookingResult, error)
	GetBookingStatus(ctx context.Context, bookingID string) (model.BookingStatus, error)
	CancelBooking(ctx context.Context, bookingID string) (*CancelResult, error)
	HandleWebhook(ctx context.Context, payload []byte) (*WebhookEvent, error)
	HealthCheck(ctx context.Context) bool
}

// ─── Registry ───────────────────────────────────────────────

// Registry maps provider ids to adapters. It is initialized at startup and
// read-mostly afterwards, so no locking is needed.
type Registry struct {
	byID  map[string]Provider
	order []string // registration order, used for alternatives fan-out
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Provider)}
}

// Register adds the adapter; a duplicate id replaces the previous one.
func (r *Registry) Register(p Provider) {
	if _, ok := r.byID[p.ID()]; !ok {
		r.order = append(r.order, p.ID())
	}
	r.byID[p.ID()] = p
}

// Get resolves a provider id.
func (r *Registry) Get(id string) (Provider, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// List returns providers in registration order.
func (r *Registry) List() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
