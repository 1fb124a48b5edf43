// Package service implements the plan lifecycle: generation, editing,
// validation, booking orchestration, and the event-to-replan pipeline.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
)

// ─── TripService ────────────────────────────────────────────

// TripService owns the trip aggregate root and its preferences.
type TripService struct {
	store repository.Store
	log   zerolog.Logger
}

func NewTripService(store repository.Store, log zerolog.Logger) *TripService {
	return &TripService{
		store: store,
		log:   log.With().Str("component", "trip").Logger(),
	}
}

// CreateTripInput carries everything needed to open a trip.
type CreateTripInput struct {
	OwnerUserID    *uuid.UUID
	GuestSessionID *uuid.UUID
	Preferences    model.TripPreferences
}

// CreateTrip creates the trip row and its preferences in one transaction.
func (s *TripService) CreateTrip(ctx context.Context, in CreateTripInput) (*model.Trip, error) {
	trip := &model.Trip{
		ID:             uuid.New(),
		OwnerUserID:    in.OwnerUserID,
		GuestSessionID: in.GuestSessionID,
		Status:         model.TripDraft,
	}
	if err := trip.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "invalid trip")
	}
	if err := in.Preferences.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "invalid preferences")
	}

	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, classifyStoreErr(err, "create trip")
	}
	prefs := in.Preferences
	prefs.TripID = trip.ID
	if err := s.store.UpsertPreferences(ctx, &prefs); err != nil {
		return nil, classifyStoreErr(err, "save preferences")
	}

	s.log.Info().Str("trip_id", trip.ID.String()).Msg("trip created")
	return trip, nil
}

// GetTrip returns the trip by id.
func (s *TripService) GetTrip(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, classifyStoreErr(err, "get trip")
	}
	return trip, nil
}

// GetPreferences returns the trip's preferences.
func (s *TripService) GetPreferences(ctx context.Context, tripID uuid.UUID) (*model.TripPreferences, error) {
	prefs, err := s.store.GetPreferences(ctx, tripID)
	if err != nil {
		return nil, classifyStoreErr(err, "get preferences")
	}
	return prefs, nil
}

// UpdatePreferences replaces the trip's preferences.
func (s *TripService) UpdatePreferences(ctx context.Context, prefs model.TripPreferences) error {
	if err := prefs.Validate(); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid preferences")
	}
	if err := s.store.UpsertPreferences(ctx, &prefs); err != nil {
		return classifyStoreErr(err, "save preferences")
	}
	return nil
}

// UpdateStatus moves the trip to the given lifecycle status.
func (s *TripService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TripStatus) error {
	switch status {
	case model.TripDraft, model.TripPlanning, model.TripBooked,
		model.TripActive, model.TripCompleted, model.TripCancelled:
	default:
		return apperr.New(apperr.CodeValidation, "unknown trip status %q", status)
	}
	if err := s.store.UpdateTripStatus(ctx, id, status); err != nil {
		return classifyStoreErr(err, "update trip status")
	}
	return nil
}

// DeleteTrip removes the trip and all children.
func (s *TripService) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteTrip(ctx, id); err != nil {
		return classifyStoreErr(err, "delete trip")
	}
	s.log.Info().Str("trip_id", id.String()).Msg("trip deleted")
	return nil
}

// ─── Shared helpers ─────────────────────────────────────────

// classifyStoreErr translates store sentinels into coded errors.
func classifyStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, "%s", op)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Wrap(apperr.CodeConflict, err, "%s", op)
	case errors.Is(err, repository.ErrUnavailable):
		return apperr.Wrap(apperr.CodeStorageUnavailable, err, "%s", op)
	default:
		return apperr.Wrap(apperr.CodeStorageUnavailable, err, "%s", op)
	}
}

// writeSnapshot records the trip's current items as an append-only version.
// The caller bumps the itinerary record; both must run inside the trip tx.
func writeSnapshot(ctx context.Context, tx repository.TxStore, tripID uuid.UUID, version int, change model.ChangeType, changedBy string, diff *model.VersionDiff) error {
	items, err := tx.ListItems(ctx, tripID)
	if err != nil {
		return fmt.Errorf("snapshot items: %w", err)
	}
	v := &model.ItineraryVersion{
		TripID:     tripID,
		Version:    version,
		ChangeType: change,
		ChangedBy:  changedBy,
		Snapshot:   model.SnapshotDays(items, 0),
		Diff:       diff,
	}
	if err := tx.InsertVersion(ctx, v); err != nil {
		return fmt.Errorf("insert version %d: %w", version, err)
	}
	return nil
}
