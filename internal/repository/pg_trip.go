package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shiva/wayplan/internal/model"
)

// ─── Trips ──────────────────────────────────────────────────

func (s *PGStore) CreateTrip(ctx context.Context, trip *model.Trip) error {
	if err := trip.Validate(); err != nil {
		return err
	}
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO trips (id, owner_user_id, guest_session_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, trip.ID, trip.OwnerUserID, trip.GuestSessionID, trip.Status).
		Scan(&trip.CreatedAt, &trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create trip: %w", mapPGErr(err))
	}
	return nil
}

func (s *PGStore) GetTrip(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	trip := &model.Trip{}
	err := s.db.QueryRow(ctx, `
		SELECT id, owner_user_id, guest_session_id, status, created_at, updated_at
		FROM trips WHERE id = $1
	`, id).Scan(
		&trip.ID, &trip.OwnerUserID, &trip.GuestSessionID,
		&trip.Status, &trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", id, mapPGErr(err))
	}
	return trip, nil
}

func (s *PGStore) UpdateTripStatus(ctx context.Context, id uuid.UUID, status model.TripStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update trip %s status: %w", id, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTrip removes the trip; children cascade via foreign keys.
func (s *PGStore) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trip %s: %w", id, mapPGErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Preferences ────────────────────────────────────────────

func (s *PGStore) UpsertPreferences(ctx context.Context, prefs *model.TripPreferences) error {
	dates, err := toJSON(prefs.Dates)
	if err != nil {
		return err
	}
	travelers, err := toJSON(prefs.Travelers)
	if err != nil {
		return err
	}
	budget, err := toJSON(prefs.Budget)
	if err != nil {
		return err
	}
	window, err := toJSON(prefs.DailyWindow)
	if err != nil {
		return err
	}
	constraints, err := toJSON(prefs.Constraints)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO trip_preferences
			(trip_id, destination, dates, travelers, budget, style, daily_window, constraints)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trip_id) DO UPDATE SET
			destination = EXCLUDED.destination,
			dates = EXCLUDED.dates,
			travelers = EXCLUDED.travelers,
			budget = EXCLUDED.budget,
			style = EXCLUDED.style,
			daily_window = EXCLUDED.daily_window,
			constraints = EXCLUDED.constraints
	`, prefs.TripID, prefs.Destination, dates, travelers, budget, prefs.Style, window, constraints)
	if err != nil {
		return fmt.Errorf("upsert preferences for trip %s: %w", prefs.TripID, mapPGErr(err))
	}
	return nil
}

func (s *PGStore) GetPreferences(ctx context.Context, tripID uuid.UUID) (*model.TripPreferences, error) {
	prefs := &model.TripPreferences{}
	var dates, travelers, budget, window, constraints []byte

	err := s.db.QueryRow(ctx, `
		SELECT trip_id, destination, dates, travelers, budget, style, daily_window, constraints
		FROM trip_preferences WHERE trip_id = $1
	`, tripID).Scan(
		&prefs.TripID, &prefs.Destination, &dates, &travelers, &budget,
		&prefs.Style, &window, &constraints,
	)
	if err != nil {
		return nil, fmt.Errorf("get preferences for trip %s: %w", tripID, mapPGErr(err))
	}

	if err := fromJSON(dates, &prefs.Dates); err != nil {
		return nil, err
	}
	if err := fromJSON(travelers, &prefs.Travelers); err != nil {
		return nil, err
	}
	if err := fromJSON(budget, &prefs.Budget); err != nil {
		return nil, err
	}
	if err := fromJSON(window, &prefs.DailyWindow); err != nil {
		return nil, err
	}
	if err := fromJSON(constraints, &prefs.Constraints); err != nil {
		return nil, err
	}
	return prefs, nil
}
