package model

import (
	"time"

	"github.com/google/uuid"
)

// ─── Booking state machine ──────────────────────────────────

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingFailed    BookingStatus = "failed"
	BookingCanceled  BookingStatus = "canceled"
	BookingRefunded  BookingStatus = "refunded"
)

// bookingTransitions is the valid transition graph:
//
//	null → pending
//	pending → confirmed | failed
//	failed → pending         (retry)
//	confirmed → canceled | refunded
//	canceled → refunded
//	refunded → (terminal)
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingFailed},
	BookingFailed:    {BookingPending},
	BookingConfirmed: {BookingCanceled, BookingRefunded},
	BookingCanceled:  {BookingRefunded},
	BookingRefunded:  {},
}

// CanTransition reports whether from → to is a legal booking transition.
// A nil from means the initial transition; only pending is reachable then.
func CanTransition(from *BookingStatus, to BookingStatus) bool {
	if from == nil {
		return to == BookingPending
	}
	for _, next := range bookingTransitions[*from] {
		if next == to {
			return true
		}
	}
	return false
}

// ─── Booking entity ─────────────────────────────────────────

// BookingPolicies carries the provider's cancellation/refund terms.
type BookingPolicies struct {
	Cancellation         string     `json:"cancellation,omitempty"`
	Refund               string     `json:"refund,omitempty"`
	CancellationDeadline *time.Time `json:"cancellation_deadline,omitempty"`
}

// ContactInfo identifies the person the provider should contact.
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Booking maps to the `bookings` table.
type Booking struct {
	ID                 uuid.UUID       `json:"id"`
	TripID             uuid.UUID       `json:"trip_id"`
	ItemID             *uuid.UUID      `json:"item_id,omitempty"`
	ProviderID         string          `json:"provider_id"`
	ProviderType       string          `json:"provider_type"`
	ExternalBookingID  string          `json:"external_booking_id,omitempty"`
	Status             BookingStatus   `json:"status"`
	Price              Money           `json:"price"`
	Policies           BookingPolicies `json:"policies"`
	VoucherURL         string          `json:"voucher_url,omitempty"`
	VoucherData        string          `json:"voucher_data,omitempty"`
	ConfirmationNumber string          `json:"confirmation_number,omitempty"`
	TravelerDetails    Travelers       `json:"traveler_details"`
	BookingDate        string          `json:"booking_date"`           // YYYY-MM-DD
	BookingTime        *string         `json:"booking_time,omitempty"` // HH:MM
	ContactInfo        ContactInfo     `json:"contact_info"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// BookingStateHistory maps to the append-only `booking_state_history` table.
// FromStatus is nil for the initial null → pending row.
type BookingStateHistory struct {
	ID         uuid.UUID      `json:"id"`
	BookingID  uuid.UUID      `json:"booking_id"`
	FromStatus *BookingStatus `json:"from_status,omitempty"`
	ToStatus   BookingStatus  `json:"to_status"`
	Reason     string         `json:"reason,omitempty"`
	ChangedBy  string         `json:"changed_by,omitempty"`
	Timestamp  time.Time      `json:"ts"`
}

// IdempotencyRecord maps a caller-supplied key to the booking it created.
// Reusing the key returns the original booking instead of creating another.
type IdempotencyRecord struct {
	Key       string    `json:"key"`
	BookingID uuid.UUID `json:"booking_id"`
	CreatedAt time.Time `json:"created_at"`
}
