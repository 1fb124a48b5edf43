package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/provider"
	"github.com/shiva/wayplan/internal/repository"
)

// ─── Booking errors ─────────────────────────────────────────

var (
	// ErrInvalidTransition is returned when a booking state change is not
	// in the transition graph.
	ErrInvalidTransition = errors.New("invalid booking state transition")

	// ErrRetryNotFailed is returned when retry is called on a booking that
	// is not in failed state.
	ErrRetryNotFailed = errors.New("retry is only permitted from failed state")
)

// ─── BookingService ─────────────────────────────────────────

// BookingService drives the booking state machine with idempotent creation.
//
// Concurrency model:
//   - All state mutations run inside the trip transaction, so transitions
//     for one booking serialize via the store.
//   - Provider calls happen OUTSIDE any transaction: network I/O never
//     holds database locks. The pending row commits first, the provider is
//     called, and the outcome lands in a second transaction.
type BookingService struct {
	store     repository.Store
	providers *provider.Registry
	timeout   time.Duration
	log       zerolog.Logger
}

func NewBookingService(store repository.Store, providers *provider.Registry, providerTimeout time.Duration, log zerolog.Logger) *BookingService {
	if providerTimeout == 0 {
		providerTimeout = 10 * time.Second
	}
	return &BookingService{
		store:     store,
		providers: providers,
		timeout:   providerTimeout,
		log:       log.With().Str("component", "booking").Logger(),
	}
}

// CreateBookingInput is the caller's booking request. IdempotencyKey is
// required; replaying it returns the original booking.
type CreateBookingInput struct {
	TripID         uuid.UUID
	ItemID         *uuid.UUID
	ProviderID     string
	ProviderItemID string
	Date           string  // YYYY-MM-DD
	TimeSlot       *string // HH:MM
	Travelers      model.Travelers
	ContactInfo    model.ContactInfo
	IdempotencyKey string
	ChangedBy      string
}

// Create books through the provider. Flow:
//  1. Idempotency lookup — a known key returns the original booking.
//  2. Commit the pending row, its history entry, and the idempotency
//     record in one transaction.
//  3. Call the provider with the same key, bounded by the timeout.
//  4. Record the outcome: confirmed (or still pending) with the provider's
//     terms, or failed with the error text.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if in.IdempotencyKey == "" {
		return nil, apperr.New(apperr.CodeValidation, "idempotency key is required")
	}

	// ── Step 1: replay check ────────────────────────────
	if rec, err := s.store.GetIdempotencyRecord(ctx, in.IdempotencyKey); err == nil {
		existing, err := s.store.GetBooking(ctx, rec.BookingID)
		if err != nil {
			return nil, classifyStoreErr(err, "load booking for idempotency key")
		}
		s.log.Info().
			Str("booking_id", existing.ID.String()).
			Str("key", in.IdempotencyKey).
			Msg("idempotent replay, returning original booking")
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, classifyStoreErr(err, "idempotency lookup")
	}

	// ── Step 2: commit pending row ──────────────────────
	booking := &model.Booking{
		TripID:          in.TripID,
		ItemID:          in.ItemID,
		ProviderID:      in.ProviderID,
		Status:          model.BookingPending,
		TravelerDetails: in.Travelers,
		BookingDate:     in.Date,
		BookingTime:     in.TimeSlot,
		ContactInfo:     in.ContactInfo,
	}
	adapter, err := s.providers.Get(in.ProviderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "provider %s", in.ProviderID)
	}
	booking.ProviderType = adapter.Type()

	err = s.store.InTripTx(ctx, in.TripID, func(tx repository.TxStore) error {
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return err
		}
		if err := tx.AppendBookingHistory(ctx, &model.BookingStateHistory{
			BookingID: booking.ID,
			ToStatus:  model.BookingPending,
			ChangedBy: in.ChangedBy,
		}); err != nil {
			return err
		}
		return tx.PutIdempotencyRecord(ctx, &model.IdempotencyRecord{
			Key:       in.IdempotencyKey,
			BookingID: booking.ID,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// A concurrent request with the same key won the race.
			return nil, apperr.Wrap(apperr.CodeIdempotencyConflict, err,
				"idempotency key %s already in use", in.IdempotencyKey)
		}
		return nil, classifyStoreErr(err, "create pending booking")
	}

	// ── Steps 3-5: provider call, outcome ───────────────
	return s.callProvider(ctx, booking, adapter, provider.CreateBookingRequest{
		ProviderItemID: in.ProviderItemID,
		Date:           in.Date,
		TimeSlot:       in.TimeSlot,
		Travelers:      in.Travelers,
		ContactInfo:    in.ContactInfo,
		IdempotencyKey: in.IdempotencyKey,
	}, in.ChangedBy)
}

// callProvider runs the provider booking call outside any transaction and
// records the outcome as a state transition.
func (s *BookingService) callProvider(ctx context.Context, booking *model.Booking, adapter provider.Provider, req provider.CreateBookingRequest, changedBy string) (*model.Booking, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	res, perr := adapter.CreateBooking(callCtx, req)
	cancel()

	if perr != nil {
		s.log.Warn().
			Str("booking_id", booking.ID.String()).
			Err(perr).
			Msg("provider booking failed")
		if terr := s.transition(ctx, booking, model.BookingFailed, perr.Error(), changedBy, nil); terr != nil {
			return nil, terr
		}
		return booking, apperr.Wrap(apperr.CodeBookingFailed, perr, "provider %s rejected booking", adapter.ID())
	}

	if res.Status == model.BookingPending {
		// Provider accepted but has not confirmed; record its terms and
		// wait for the webhook.
		if err := s.recordProviderResult(ctx, booking, res); err != nil {
			return nil, err
		}
		return booking, nil
	}

	if err := s.transition(ctx, booking, model.BookingConfirmed, "provider confirmed", changedBy, res); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("external_id", booking.ExternalBookingID).
		Msg("booking confirmed")
	return booking, nil
}

// Retry re-drives a failed booking with a FRESH idempotency key: the failed
// provider call must not be replayed.
func (s *BookingService) Retry(ctx context.Context, bookingID uuid.UUID, in CreateBookingInput) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, classifyStoreErr(err, "get booking")
	}
	if booking.Status != model.BookingFailed {
		return nil, apperr.Wrap(apperr.CodeConflict, ErrRetryNotFailed,
			"booking %s is %s", bookingID, booking.Status)
	}
	adapter, err := s.providers.Get(booking.ProviderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "provider %s", booking.ProviderID)
	}

	if err := s.transition(ctx, booking, model.BookingPending, "retry", in.ChangedBy, nil); err != nil {
		return nil, err
	}

	freshKey := uuid.New().String()
	return s.callProvider(ctx, booking, adapter, provider.CreateBookingRequest{
		ProviderItemID: in.ProviderItemID,
		Date:           booking.BookingDate,
		TimeSlot:       booking.BookingTime,
		Travelers:      booking.TravelerDetails,
		ContactInfo:    booking.ContactInfo,
		IdempotencyKey: freshKey,
	}, in.ChangedBy)
}

// Cancel cancels a confirmed booking through its provider.
func (s *BookingService) Cancel(ctx context.Context, bookingID uuid.UUID, changedBy string) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, classifyStoreErr(err, "get booking")
	}
	if booking.Status != model.BookingConfirmed {
		return nil, apperr.Wrap(apperr.CodeConflict, ErrInvalidTransition,
			"cannot cancel booking in %s state", booking.Status)
	}
	adapter, err := s.providers.Get(booking.ProviderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "provider %s", booking.ProviderID)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	res, perr := adapter.CancelBooking(callCtx, booking.ExternalBookingID)
	cancel()
	if perr != nil {
		return nil, apperr.Wrap(apperr.CodeProviderError, perr, "provider %s cancel failed", adapter.ID())
	}

	reason := "canceled, refund " + string(res.RefundStatus)
	if err := s.transition(ctx, booking, model.BookingCanceled, reason, changedBy, nil); err != nil {
		return nil, err
	}
	return booking, nil
}

// HandleWebhook routes a provider webhook payload to the booking it names
// and applies the matching transition.
func (s *BookingService) HandleWebhook(ctx context.Context, providerID string, payload []byte) error {
	adapter, err := s.providers.Get(providerID)
	if err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "provider %s", providerID)
	}
	event, err := adapter.HandleWebhook(ctx, payload)
	if err != nil {
		return apperr.Wrap(apperr.CodeProviderError, err, "parse webhook")
	}

	booking, err := s.store.GetBookingByExternalID(ctx, event.ProviderBookingID)
	if err != nil {
		return classifyStoreErr(err, "locate booking for webhook")
	}

	switch event.Type {
	case provider.WebhookBookingConfirmed:
		if booking.Status == model.BookingConfirmed {
			return nil // already there, webhook replay
		}
		// A booking that failed on timeout reconciles through pending.
		if booking.Status == model.BookingFailed {
			if err := s.transition(ctx, booking, model.BookingPending, "webhook reconcile", "webhook", nil); err != nil {
				return err
			}
		}
		return s.transition(ctx, booking, model.BookingConfirmed, "webhook confirmed", "webhook", nil)
	case provider.WebhookBookingCanceled:
		if booking.Status == model.BookingCanceled {
			return nil
		}
		return s.transition(ctx, booking, model.BookingCanceled, "webhook canceled", "webhook", nil)
	case provider.WebhookPriceChanged, provider.WebhookAvailabilityChanged:
		s.log.Info().
			Str("booking_id", booking.ID.String()).
			Str("event", string(event.Type)).
			Msg("informational webhook")
		return nil
	default:
		return apperr.New(apperr.CodeValidation, "unknown webhook event %q", event.Type)
	}
}

// ─── Alternatives ───────────────────────────────────────────

// Alternative is a candidate replacement for a failed booking.
type Alternative struct {
	ProviderID string
	Result     provider.SearchResult
	PriceDelta float64
}

// FindAlternatives searches the booking's own provider first, then the rest,
// for comparable inventory, ranked by absolute price delta.
func (s *BookingService) FindAlternatives(ctx context.Context, bookingID uuid.UUID, max int) ([]Alternative, error) {
	if max <= 0 {
		max = 3
	}
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, classifyStoreErr(err, "get booking")
	}

	var loc *model.Location
	if booking.ItemID != nil {
		if item, err := s.store.GetItem(ctx, *booking.ItemID); err == nil {
			loc = item.Location
		}
	}
	opts := provider.SearchOptions{
		Location:  loc,
		WithinKm:  5,
		Date:      booking.BookingDate,
		Travelers: booking.TravelerDetails,
		Limit:     max * 2,
	}

	// Same provider first, then the rest in registration order.
	ordered := make([]provider.Provider, 0)
	if own, err := s.providers.Get(booking.ProviderID); err == nil {
		ordered = append(ordered, own)
	}
	for _, p := range s.providers.List() {
		if p.ID() != booking.ProviderID {
			ordered = append(ordered, p)
		}
	}

	var alts []Alternative
	for _, p := range ordered {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		results, err := p.Search(callCtx, opts)
		cancel()
		if err != nil {
			s.log.Warn().Str("provider", p.ID()).Err(err).Msg("alternatives search failed")
			continue
		}
		for _, r := range results {
			alts = append(alts, Alternative{
				ProviderID: p.ID(),
				Result:     r,
				PriceDelta: provider.PriceDelta(r.Price, booking.Price),
			})
		}
	}

	sort.Slice(alts, func(i, j int) bool { return alts[i].PriceDelta < alts[j].PriceDelta })
	if len(alts) > max {
		alts = alts[:max]
	}
	return alts, nil
}

// ─── State machine core ─────────────────────────────────────

// transition applies one state change with its history entry in a single
// transaction. When res is non-nil the provider's terms are recorded on the
// same update.
func (s *BookingService) transition(ctx context.Context, booking *model.Booking, to model.BookingStatus, reason, changedBy string, res *provider.CreateBookingResult) error {
	from := booking.Status
	if !model.CanTransition(&from, to) {
		return apperr.Wrap(apperr.CodeConflict, ErrInvalidTransition,
			"%s → %s is not a valid booking transition", from, to)
	}

	err := s.store.InTripTx(ctx, booking.TripID, func(tx repository.TxStore) error {
		booking.Status = to
		if res != nil {
			applyProviderResult(booking, res)
		}
		if err := tx.UpdateBooking(ctx, booking); err != nil {
			return err
		}
		return tx.AppendBookingHistory(ctx, &model.BookingStateHistory{
			BookingID:  booking.ID,
			FromStatus: &from,
			ToStatus:   to,
			Reason:     reason,
			ChangedBy:  changedBy,
		})
	})
	if err != nil {
		booking.Status = from
		return classifyStoreErr(err, "booking transition")
	}
	return nil
}

// recordProviderResult stores provider terms without a state change (the
// booking stays pending until the webhook lands).
func (s *BookingService) recordProviderResult(ctx context.Context, booking *model.Booking, res *provider.CreateBookingResult) error {
	err := s.store.InTripTx(ctx, booking.TripID, func(tx repository.TxStore) error {
		applyProviderResult(booking, res)
		return tx.UpdateBooking(ctx, booking)
	})
	if err != nil {
		return classifyStoreErr(err, "record provider result")
	}
	return nil
}

// ─── Reads ──────────────────────────────────────────────────

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, classifyStoreErr(err, "get booking")
	}
	return booking, nil
}

// ListForTrip returns the trip's bookings, oldest first.
func (s *BookingService) ListForTrip(ctx context.Context, tripID uuid.UUID) ([]model.Booking, error) {
	bookings, err := s.store.ListTripBookings(ctx, tripID)
	if err != nil {
		return nil, classifyStoreErr(err, "list bookings")
	}
	return bookings, nil
}

// History returns the booking's state transitions, oldest first.
func (s *BookingService) History(ctx context.Context, bookingID uuid.UUID) ([]model.BookingStateHistory, error) {
	if _, err := s.store.GetBooking(ctx, bookingID); err != nil {
		return nil, classifyStoreErr(err, "get booking")
	}
	history, err := s.store.ListBookingHistory(ctx, bookingID)
	if err != nil {
		return nil, classifyStoreErr(err, "list booking history")
	}
	return history, nil
}

func applyProviderResult(booking *model.Booking, res *provider.CreateBookingResult) {
	booking.ExternalBookingID = res.BookingID
	booking.Price = res.Price
	booking.Policies = res.Policies
	booking.VoucherURL = res.VoucherURL
	booking.VoucherData = res.VoucherData
	booking.ConfirmationNumber = res.ConfirmationNumber
}
