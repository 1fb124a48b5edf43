package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/catalog"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/pkg/geo"
	"github.com/shiva/wayplan/pkg/timeofday"
)

// ─── Generator ──────────────────────────────────────────────

// GeneratorOptions tune the scheduling pass.
type GeneratorOptions struct {
	// BufferMinutes is the slack added before every placement (default 15).
	BufferMinutes int
	// TravelPlaceholderMinutes stands in for the routing provider between
	// consecutive located items (default 20).
	TravelPlaceholderMinutes int
}

func (o GeneratorOptions) withDefaults() GeneratorOptions {
	if o.BufferMinutes == 0 {
		o.BufferMinutes = 15
	}
	if o.TravelPlaceholderMinutes == 0 {
		o.TravelPlaceholderMinutes = 20
	}
	return o
}

// GenerateInput selects the POIs and regeneration mode.
type GenerateInput struct {
	TripID         uuid.UUID
	POIIDs         []uuid.UUID
	PreservePinned bool
	// Incremental marks a regenerate over an existing itinerary; the
	// snapshot records it as an edit instead of a fresh generate.
	Incremental bool
	ChangedBy   string
}

// Generator schedules selected POIs into day buckets under the trip's daily
// window, preserving pinned items across regenerations. Re-running on
// identical inputs is deterministic.
type Generator struct {
	store   repository.Store
	catalog catalog.Catalog
	opts    GeneratorOptions
	log     zerolog.Logger
}

func NewGenerator(store repository.Store, cat catalog.Catalog, opts GeneratorOptions, log zerolog.Logger) *Generator {
	return &Generator{
		store:   store,
		catalog: cat,
		opts:    opts.withDefaults(),
		log:     log.With().Str("component", "generator").Logger(),
	}
}

// Generate builds a fresh itinerary and persists it atomically: non-pinned
// items are replaced, the version bumps, and a snapshot is written.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) ([]model.ItineraryDay, error) {
	prefs, err := g.store.GetPreferences(ctx, in.TripID)
	if err != nil {
		return nil, classifyStoreErr(err, "load preferences")
	}

	// Resolve the POI selection up front. An empty resolvable set is a
	// contract violation, not a quiet no-op.
	pois := make([]model.POI, 0, len(in.POIIDs))
	for _, id := range in.POIIDs {
		poi, err := g.catalog.GetPOI(ctx, id)
		if err != nil {
			g.log.Warn().Str("poi_id", id.String()).Msg("poi not resolvable, skipping")
			continue
		}
		pois = append(pois, *poi)
	}
	if len(pois) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "no resolvable poi in selection")
	}

	numDays, err := timeofday.DaysBetween(prefs.Dates.Start, prefs.Dates.End)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err, "invalid trip dates")
	}

	// Pinned items survive regeneration in place.
	pinnedByDay := make(map[int][]model.ItineraryItem)
	if in.PreservePinned {
		existing, err := g.store.ListItems(ctx, in.TripID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, classifyStoreErr(err, "load existing items")
		}
		for _, it := range existing {
			if it.IsPinned {
				pinnedByDay[it.Day] = append(pinnedByDay[it.Day], it.Clone())
			}
		}
	}

	// Round-robin the selection into day buckets. Duplicate POI ids are
	// preserved per occurrence; callers own de-duplication.
	buckets := make([][]model.POI, numDays)
	for i, poi := range pois {
		d := i % numDays
		buckets[d] = append(buckets[d], poi)
	}

	days := make([]model.ItineraryDay, numDays)
	for day := 1; day <= numDays; day++ {
		date, err := timeofday.AddDays(prefs.Dates.Start, day-1)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, err, "invalid trip dates")
		}
		scheduled := g.scheduleDay(in.TripID, day, date, buckets[day-1], pinnedByDay[day], prefs)
		days[day-1] = model.ItineraryDay{Day: day, Items: scheduled}
	}

	if err := g.persist(ctx, in, days); err != nil {
		return nil, err
	}
	return days, nil
}

// scheduleDay places one day's bucket after its pinned items. An empty day is
// kept, not an error.
func (g *Generator) scheduleDay(tripID uuid.UUID, day int, date string, bucket []model.POI, pinned []model.ItineraryItem, prefs *model.TripPreferences) []model.ItineraryItem {
	out := make([]model.ItineraryItem, 0, len(pinned)+len(bucket))

	// Pinned items keep their times; the cursor starts past the latest
	// pinned end so new placements never collide with them.
	cursor := prefs.DailyWindow.Start
	var prev *model.ItineraryItem
	for i := range pinned {
		p := pinned[i]
		out = append(out, p)
		cursor = timeofday.Max(cursor, p.EndTime)
		if p.Location != nil {
			prev = &out[len(out)-1]
		}
	}

	weekday, err := timeofday.Weekday(date)
	if err != nil {
		g.log.Warn().Str("date", date).Err(err).Msg("bad day date, skipping bucket")
		return renumber(out)
	}

	for _, poi := range bucket {
		hours, hasHours := poi.Hours[weekday]
		if hasHours && hours.Closed {
			g.log.Warn().
				Str("poi", poi.Name).
				Str("weekday", weekday).
				Int("day", day).
				Msg("poi closed, skipping")
			continue
		}

		candidateStart := cursor
		if hasHours && hours.Open != "" {
			candidateStart = timeofday.Max(candidateStart, hours.Open)
		}

		// Travel placeholder between consecutive located items; the fixed
		// buffer applies to every placement, including the first of the day.
		lead := g.opts.BufferMinutes
		var route *model.RouteSegment
		if prev != nil && prev.Location != nil && poi.Location.Validate() == nil {
			lead += g.opts.TravelPlaceholderMinutes
			route = &model.RouteSegment{
				FromItemID:      &prev.ID,
				Mode:            model.ModeWalking,
				DistanceKm:      geo.HaversineKm(*prev.Location, poi.Location),
				DurationMinutes: g.opts.TravelPlaceholderMinutes,
			}
		}

		candidateStart, err := timeofday.Add(candidateStart, lead)
		if err != nil {
			g.log.Warn().Str("poi", poi.Name).Int("day", day).Msg("placement crosses midnight, skipping")
			continue
		}
		candidateEnd, err := timeofday.Add(candidateStart, poi.AvgDurationMinutes)
		if err != nil {
			g.log.Warn().Str("poi", poi.Name).Int("day", day).Msg("placement crosses midnight, skipping")
			continue
		}
		if hasHours && hours.Close != "" && timeofday.Before(hours.Close, candidateEnd) {
			g.log.Warn().Str("poi", poi.Name).Int("day", day).Msg("would end after closing, skipping")
			continue
		}
		if timeofday.Before(prefs.DailyWindow.End, candidateEnd) {
			g.log.Warn().Str("poi", poi.Name).Int("day", day).Msg("would end after daily window, skipping")
			continue
		}

		poiID := poi.ID
		loc := poi.Location
		item := model.ItineraryItem{
			TripID:            tripID,
			Day:               day,
			Type:              model.ItemPOI,
			POIID:             &poiID,
			Name:              poi.Name,
			Location:          &loc,
			StartTime:         candidateStart,
			EndTime:           candidateEnd,
			DurationMinutes:   poi.AvgDurationMinutes,
			RouteFromPrevious: route,
		}
		if poi.PriceRange != nil {
			item.CostEstimate = &model.CostEstimate{
				Amount:     poi.PriceRange.Midpoint(),
				Confidence: model.CostEstimated,
			}
		}
		out = append(out, item)
		cursor = candidateEnd
		prev = &out[len(out)-1]
	}

	return renumber(out)
}

// persist swaps non-pinned items for the new plan in one transaction.
func (g *Generator) persist(ctx context.Context, in GenerateInput, days []model.ItineraryDay) error {
	change := model.ChangeGenerate
	if in.Incremental {
		change = model.ChangeEdit
	}

	err := g.store.InTripTx(ctx, in.TripID, func(tx repository.TxStore) error {
		version := 1
		if prior, err := tx.GetItinerary(ctx, in.TripID); err == nil {
			version = prior.Version + 1
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := tx.DeleteUnpinnedItems(ctx, in.TripID); err != nil {
			return err
		}

		for d := range days {
			for i := range days[d].Items {
				item := &days[d].Items[i]
				item.TripID = in.TripID
				if item.ID == uuid.Nil {
					if err := tx.InsertItem(ctx, item); err != nil {
						return err
					}
				} else {
					// Pinned survivor: only its order may have moved.
					if err := tx.UpdateItem(ctx, item); err != nil {
						return err
					}
				}
			}
		}

		if err := tx.UpsertItinerary(ctx, &model.Itinerary{
			TripID:      in.TripID,
			Version:     version,
			GeneratedAt: time.Now(),
		}); err != nil {
			return err
		}
		return writeSnapshot(ctx, tx, in.TripID, version, change, in.ChangedBy, nil)
	})
	if err != nil {
		if apperr.Is(err, apperr.CodeValidation) {
			return err
		}
		return classifyStoreErr(err, "persist itinerary")
	}

	g.log.Info().Str("trip_id", in.TripID.String()).Int("days", len(days)).Msg("itinerary generated")
	return nil
}

// renumber assigns order 0..n-1 in slice order.
func renumber(items []model.ItineraryItem) []model.ItineraryItem {
	for i := range items {
		items[i].Order = i
	}
	return items
}
