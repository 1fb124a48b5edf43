package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shiva/wayplan/internal/model"
)

// ─── Bookings ───────────────────────────────────────────────

const bookingColumns = `
	id, trip_id, item_id, provider_id, provider_type, external_booking_id,
	status, price, policies, voucher_url, voucher_data, confirmation_number,
	traveler_details, booking_date, booking_time, contact_info,
	created_at, updated_at`

func (s *PGStore) scanBooking(row pgx.Row) (*model.Booking, error) {
	b := &model.Booking{}
	var price, policies, travelers, contact []byte
	err := row.Scan(
		&b.ID, &b.TripID, &b.ItemID, &b.ProviderID, &b.ProviderType, &b.ExternalBookingID,
		&b.Status, &price, &policies, &b.VoucherURL, &b.VoucherData, &b.ConfirmationNumber,
		&travelers, &b.BookingDate, &b.BookingTime, &contact,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(price, &b.Price); err != nil {
		return nil, err
	}
	if err := fromJSON(policies, &b.Policies); err != nil {
		return nil, err
	}
	if err := fromJSON(travelers, &b.TravelerDetails); err != nil {
		return nil, err
	}
	if err := fromJSON(contact, &b.ContactInfo); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PGStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	price, err := toJSON(b.Price)
	if err != nil {
		return err
	}
	policies, err := toJSON(b.Policies)
	if err != nil {
		return err
	}
	travelers, err := toJSON(b.TravelerDetails)
	if err != nil {
		return err
	}
	contact, err := toJSON(b.ContactInfo)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO bookings
			(id, trip_id, item_id, provider_id, provider_type, external_booking_id,
			 status, price, policies, voucher_url, voucher_data, confirmation_number,
			 traveler_details, booking_date, booking_time, contact_info)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at
	`, b.ID, b.TripID, b.ItemID, b.ProviderID, b.ProviderType, b.ExternalBookingID,
		b.Status, price, policies, b.VoucherURL, b.VoucherData, b.ConfirmationNumber,
		travelers, b.BookingDate, b.BookingTime, contact).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create booking: %w", mapPGErr(err))
	}
	return nil
}

func (s *PGStore) GetBooking(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := s.scanBooking(s.db.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, mapPGErr(err))
	}
	return b, nil
}

func (s *PGStore) GetBookingByExternalID(ctx context.Context, externalID string) (*model.Booking, error) {
	if externalID == "" {
		return nil, ErrNotFound
	}
	b, err := s.scanBooking(s.db.QueryRow(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE external_booking_id = $1
	`, externalID))
	if err != nil {
		return nil, fmt.Errorf("get booking by external id %s: %w", externalID, mapPGErr(err))
	}
	return b, nil
}

func (s *PGStore) ListTripBookings(ctx context.Context, tripID uuid.UUID) ([]model.Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE trip_id = $1
		ORDER BY created_at ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for trip %s: %w", tripID, mapPGErr(err))
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := s.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (s *PGStore) UpdateBooking(ctx context.Context, b *model.Booking) error {
	price, err := toJSON(b.Price)
	if err != nil {
		return err
	}
	policies, err := toJSON(b.Policies)
	if err != nil {
		return err
	}
	travelers, err := toJSON(b.TravelerDetails)
	if err != nil {
		return err
	}
	contact, err := toJSON(b.ContactInfo)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings SET
			item_id = $2, provider_id = $3, provider_type = $4, external_booking_id = $5,
			status = $6, price = $7, policies = $8, voucher_url = $9, voucher_data = $10,
			confirmation_number = $11, traveler_details = $12, booking_date = $13,
			booking_time = $14, contact_info = $15, updated_at = now()
		WHERE id = $1
	`, b.ID, b.ItemID, b.ProviderID, b.ProviderType, b.ExternalBookingID,
		b.Status, price, policies, b.VoucherURL, b.VoucherData,
		b.ConfirmationNumber, travelers, b.BookingDate, b.BookingTime, contact)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.ID, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── State history (append-only) ────────────────────────────

func (s *PGStore) AppendBookingHistory(ctx context.Context, h *model.BookingStateHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO booking_state_history (id, booking_id, from_status, to_status, reason, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ts
	`, h.ID, h.BookingID, h.FromStatus, h.ToStatus, h.Reason, h.ChangedBy).
		Scan(&h.Timestamp)
	if err != nil {
		return fmt.Errorf("append booking history for %s: %w", h.BookingID, mapPGErr(err))
	}
	return nil
}

func (s *PGStore) ListBookingHistory(ctx context.Context, bookingID uuid.UUID) ([]model.BookingStateHistory, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, reason, changed_by, ts
		FROM booking_state_history
		WHERE booking_id = $1
		ORDER BY ts ASC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list booking history for %s: %w", bookingID, mapPGErr(err))
	}
	defer rows.Close()

	var history []model.BookingStateHistory
	for rows.Next() {
		var h model.BookingStateHistory
		if err := rows.Scan(&h.ID, &h.BookingID, &h.FromStatus, &h.ToStatus,
			&h.Reason, &h.ChangedBy, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("scan booking history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ─── Idempotency records ────────────────────────────────────

func (s *PGStore) PutIdempotencyRecord(ctx context.Context, rec *model.IdempotencyRecord) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO booking_idempotency (key, booking_id)
		VALUES ($1, $2)
		RETURNING created_at
	`, rec.Key, rec.BookingID).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("put idempotency record %q: %w", rec.Key, mapPGErr(err))
	}
	return nil
}

func (s *PGStore) GetIdempotencyRecord(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	rec := &model.IdempotencyRecord{}
	err := s.db.QueryRow(ctx, `
		SELECT key, booking_id, created_at FROM booking_idempotency WHERE key = $1
	`, key).Scan(&rec.Key, &rec.BookingID, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get idempotency record %q: %w", key, mapPGErr(err))
	}
	return rec, nil
}
