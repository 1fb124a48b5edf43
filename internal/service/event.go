package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/catalog"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/pkg/geo"
	"github.com/shiva/wayplan/pkg/timeofday"
)

// ─── Event ingest ───────────────────────────────────────────

const (
	// weatherRadiusKm bounds which items a weather event can touch.
	weatherRadiusKm = 5.0
	// closureRadiusKm bounds which items a closure can touch.
	closureRadiusKm = 0.5
)

// outdoorHints mark an item as weather-sensitive when its name or POI tags
// match any of them.
var outdoorHints = []string{"outdoor", "park", "beach", "hiking", "walking", "tour", "market"}

// IngestInput is one disruption signal from the outside world.
type IngestInput struct {
	TripID   uuid.UUID
	Type     model.EventType
	Severity model.Severity
	Location model.Location
	TimeSlot model.EventTimeSlot
	Details  model.EventDetails
}

// EventService turns raw disruption signals into persisted events and, when
// the trigger rules fire, replan triggers.
type EventService struct {
	store   repository.Store
	catalog catalog.Catalog
	log     zerolog.Logger
}

func NewEventService(store repository.Store, cat catalog.Catalog, log zerolog.Logger) *EventService {
	return &EventService{
		store:   store,
		catalog: cat,
		log:     log.With().Str("component", "events").Logger(),
	}
}

// Ingest validates the signal, computes the affected items, persists the
// event, and emits a replan trigger when the rules fire. The returned trigger
// is nil when no replan is warranted.
func (s *EventService) Ingest(ctx context.Context, in IngestInput) (*model.EventSignal, *model.ReplanTrigger, error) {
	if err := in.Details.Validate(in.Type); err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeValidation, err, "invalid event details")
	}
	if err := in.Location.Validate(); err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeValidation, err, "invalid event location")
	}
	if !timeofday.IsValid(in.TimeSlot.Start) || !timeofday.IsValid(in.TimeSlot.End) {
		return nil, nil, apperr.New(apperr.CodeValidation, "invalid event time slot %s..%s",
			in.TimeSlot.Start, in.TimeSlot.End)
	}

	prefs, err := s.store.GetPreferences(ctx, in.TripID)
	if err != nil {
		return nil, nil, classifyStoreErr(err, "load preferences")
	}
	items, err := s.store.ListItems(ctx, in.TripID)
	if err != nil {
		return nil, nil, classifyStoreErr(err, "load items")
	}

	affected := s.affectedItems(ctx, in, prefs, items)

	event := &model.EventSignal{
		TripID:        in.TripID,
		Type:          in.Type,
		Severity:      in.Severity,
		Location:      in.Location,
		TimeSlot:      in.TimeSlot,
		Details:       in.Details,
		AffectedItems: affected,
	}

	trigger := s.buildTrigger(event)
	err = s.store.InTripTx(ctx, in.TripID, func(tx repository.TxStore) error {
		if err := tx.InsertEventSignal(ctx, event); err != nil {
			return err
		}
		if trigger != nil {
			trigger.EventSignalID = event.ID
			if err := tx.InsertTrigger(ctx, trigger); err != nil {
				return err
			}
		}
		return tx.MarkEventProcessed(ctx, event.ID, trigger != nil)
	})
	if err != nil {
		return nil, nil, classifyStoreErr(err, "persist event")
	}
	event.Processed = true
	event.ReplanTriggered = trigger != nil

	s.log.Info().
		Str("trip_id", in.TripID.String()).
		Str("type", string(in.Type)).
		Str("severity", string(in.Severity)).
		Int("affected", len(affected)).
		Bool("replan_triggered", trigger != nil).
		Msg("event ingested")
	return event, trigger, nil
}

// affectedItems applies the per-type affect rules. Items on other days, or
// outside the event's radius, are untouched.
func (s *EventService) affectedItems(ctx context.Context, in IngestInput, prefs *model.TripPreferences, items []model.ItineraryItem) []uuid.UUID {
	day := dayOfDate(prefs.Dates.Start, in.TimeSlot.Date)
	if day < 1 {
		return nil
	}

	var affected []uuid.UUID
	for _, it := range items {
		if it.Day != day || it.Location == nil {
			continue
		}
		if !overlaps(it.StartTime, it.EndTime, in.TimeSlot.Start, in.TimeSlot.End) {
			continue
		}
		switch in.Type {
		case model.EventWeather:
			if geo.WithinKm(*it.Location, in.Location, weatherRadiusKm) && s.looksOutdoor(ctx, it) {
				affected = append(affected, it.ID)
			}
		case model.EventClosure:
			if geo.WithinKm(*it.Location, in.Location, closureRadiusKm) {
				affected = append(affected, it.ID)
			}
		}
	}
	return affected
}

// buildTrigger applies the trigger rules; nil means no replan.
func (s *EventService) buildTrigger(event *model.EventSignal) *model.ReplanTrigger {
	switch event.Type {
	case model.EventWeather:
		if event.Severity == model.SeverityHigh &&
			event.Details.Weather != nil &&
			event.Details.Weather.Condition == "heavy_rain" {
			return &model.ReplanTrigger{
				TripID:   event.TripID,
				Reason:   "heavy rain forecast over scheduled outdoor items",
				Priority: model.SeverityHigh,
			}
		}
	case model.EventClosure:
		if event.Severity == model.SeverityMedium || event.Severity == model.SeverityHigh {
			return &model.ReplanTrigger{
				TripID:   event.TripID,
				Reason:   "venue closure affecting scheduled items",
				Priority: event.Severity,
			}
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────

// dayOfDate maps a calendar date to the 1-based trip day, or 0 when the date
// falls outside the trip.
func dayOfDate(tripStart, date string) int {
	start, err := timeofday.ParseDate(tripStart)
	if err != nil {
		return 0
	}
	d, err := timeofday.ParseDate(date)
	if err != nil {
		return 0
	}
	day := int(d.Sub(start).Hours()/24) + 1
	if day < 1 {
		return 0
	}
	return day
}

// overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return timeofday.Before(aStart, bEnd) && timeofday.Before(bStart, aEnd)
}

// looksOutdoor applies the outdoor heuristic: the item name contains an
// outdoor hint, or its POI carries one as a tag.
func (s *EventService) looksOutdoor(ctx context.Context, it model.ItineraryItem) bool {
	name := strings.ToLower(it.Name)
	for _, hint := range outdoorHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	if it.POIID != nil {
		if poi, err := s.catalog.GetPOI(ctx, *it.POIID); err == nil {
			for _, hint := range outdoorHints {
				if poi.HasTag(hint) {
					return true
				}
			}
		}
	}
	return false
}
