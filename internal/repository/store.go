// Package repository provides persistence for the plan aggregate.
//
// Two implementations exist: PGStore on PostgreSQL (pgx) and MemStore, an
// in-memory store with the same transactional semantics used by unit tests.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/shiva/wayplan/internal/model"
)

// ─── Store errors ───────────────────────────────────────────

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned on uniqueness or state conflicts
	// (duplicate idempotency key, version regression).
	ErrConflict = errors.New("storage conflict")

	// ErrUnavailable is returned when the store cannot commit. It is
	// surfaced, not retried, at this layer.
	ErrUnavailable = errors.New("storage unavailable")
)

// ─── Contracts ──────────────────────────────────────────────

// TxStore is the full entity surface of the plan store. Inside InTripTx the
// same interface runs against the open transaction; effects are atomic.
type TxStore interface {
	// Trips.
	CreateTrip(ctx context.Context, trip *model.Trip) error
	GetTrip(ctx context.Context, id uuid.UUID) (*model.Trip, error)
	UpdateTripStatus(ctx context.Context, id uuid.UUID, status model.TripStatus) error
	DeleteTrip(ctx context.Context, id uuid.UUID) error

	// Preferences (1:1 with trip).
	UpsertPreferences(ctx context.Context, prefs *model.TripPreferences) error
	GetPreferences(ctx context.Context, tripID uuid.UUID) (*model.TripPreferences, error)

	// Itinerary record and items. ListItems returns (day asc, "order" asc).
	GetItinerary(ctx context.Context, tripID uuid.UUID) (*model.Itinerary, error)
	UpsertItinerary(ctx context.Context, itin *model.Itinerary) error
	// SetItineraryVersion sets the version unconditionally. Rollback is the
	// only caller; everything else goes through UpsertItinerary, which
	// rejects regressions.
	SetItineraryVersion(ctx context.Context, tripID uuid.UUID, version int) error
	ListItems(ctx context.Context, tripID uuid.UUID) ([]model.ItineraryItem, error)
	ListDayItems(ctx context.Context, tripID uuid.UUID, day int) ([]model.ItineraryItem, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*model.ItineraryItem, error)
	InsertItem(ctx context.Context, item *model.ItineraryItem) error
	UpdateItem(ctx context.Context, item *model.ItineraryItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteUnpinnedItems(ctx context.Context, tripID uuid.UUID) error

	// Versions. InsertVersion is append-only and rejects non-monotonic
	// writes; DeleteVersionsAbove is the one exception, letting rollback
	// supersede the versions it undid so the history stays contiguous with
	// the itinerary pointer.
	InsertVersion(ctx context.Context, v *model.ItineraryVersion) error
	GetVersion(ctx context.Context, tripID uuid.UUID, version int) (*model.ItineraryVersion, error)
	ListVersions(ctx context.Context, tripID uuid.UUID) ([]model.ItineraryVersion, error)
	DeleteVersionsAbove(ctx context.Context, tripID uuid.UUID, version int) error

	// Bookings, history (append-only), idempotency records.
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	GetBookingByExternalID(ctx context.Context, externalID string) (*model.Booking, error)
	ListTripBookings(ctx context.Context, tripID uuid.UUID) ([]model.Booking, error)
	UpdateBooking(ctx context.Context, b *model.Booking) error
	AppendBookingHistory(ctx context.Context, h *model.BookingStateHistory) error
	ListBookingHistory(ctx context.Context, bookingID uuid.UUID) ([]model.BookingStateHistory, error)
	PutIdempotencyRecord(ctx context.Context, rec *model.IdempotencyRecord) error
	GetIdempotencyRecord(ctx context.Context, key string) (*model.IdempotencyRecord, error)

	// Event signals, triggers, proposals, applications.
	InsertEventSignal(ctx context.Context, e *model.EventSignal) error
	GetEventSignal(ctx context.Context, id uuid.UUID) (*model.EventSignal, error)
	MarkEventProcessed(ctx context.Context, id uuid.UUID, replanTriggered bool) error
	ListUnprocessedEvents(ctx context.Context, tripID uuid.UUID) ([]model.EventSignal, error)
	InsertTrigger(ctx context.Context, t *model.ReplanTrigger) error
	GetTrigger(ctx context.Context, id uuid.UUID) (*model.ReplanTrigger, error)
	MarkTriggerProcessed(ctx context.Context, id uuid.UUID) error
	ListOpenTriggers(ctx context.Context, tripID uuid.UUID) ([]model.ReplanTrigger, error)
	InsertProposal(ctx context.Context, p *model.ReplanProposal) error
	GetProposal(ctx context.Context, id uuid.UUID) (*model.ReplanProposal, error)
	ListProposalsByTrigger(ctx context.Context, triggerID uuid.UUID) ([]model.ReplanProposal, error)
	InsertApplication(ctx context.Context, a *model.ReplanApplication) error
	GetApplication(ctx context.Context, id uuid.UUID) (*model.ReplanApplication, error)
	GetApplicationByKey(ctx context.Context, idempotencyKey string) (*model.ReplanApplication, error)
	UpdateApplication(ctx context.Context, a *model.ReplanApplication) error
}

// Store is the plan store. InTripTx runs fn inside a transaction serialized
// per trip: the trip row is the locking sentinel, so concurrent multi-row
// itinerary mutations for the same trip cannot interleave. On error the
// transaction's effects are discarded atomically.
type Store interface {
	TxStore
	InTripTx(ctx context.Context, tripID uuid.UUID, fn func(tx TxStore) error) error
	HealthCheck(ctx context.Context) error
}
