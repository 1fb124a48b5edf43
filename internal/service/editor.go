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
	"github.com/shiva/wayplan/pkg/timeofday"
)

// ─── Editor ─────────────────────────────────────────────────

// Editor mutates itinerary items one operation at a time. Every mutation runs
// in the trip transaction, bumps the version, and appends a snapshot named
// after the operation.
type Editor struct {
	store   repository.Store
	catalog catalog.Catalog
	buffer  int // minutes added after the last item when appending
	log     zerolog.Logger
}

func NewEditor(store repository.Store, cat catalog.Catalog, bufferMinutes int, log zerolog.Logger) *Editor {
	if bufferMinutes == 0 {
		bufferMinutes = 15
	}
	return &Editor{
		store:   store,
		catalog: cat,
		buffer:  bufferMinutes,
		log:     log.With().Str("component", "editor").Logger(),
	}
}

// Reorder sets each item's order to its position in orderedIDs and re-flows
// the day. The ids must be a permutation of the day's items.
func (e *Editor) Reorder(ctx context.Context, tripID uuid.UUID, day int, orderedIDs []uuid.UUID, changedBy string) error {
	prefs, err := e.store.GetPreferences(ctx, tripID)
	if err != nil {
		return classifyStoreErr(err, "load preferences")
	}

	err = e.store.InTripTx(ctx, tripID, func(tx repository.TxStore) error {
		items, err := tx.ListDayItems(ctx, tripID, day)
		if err != nil {
			return err
		}
		if len(items) != len(orderedIDs) {
			return apperr.New(apperr.CodeValidation,
				"reorder needs all %d items of day %d, got %d ids", len(items), day, len(orderedIDs))
		}
		byID := make(map[uuid.UUID]*model.ItineraryItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}

		reordered := make([]model.ItineraryItem, 0, len(items))
		seen := make(map[uuid.UUID]bool, len(orderedIDs))
		for _, id := range orderedIDs {
			item, ok := byID[id]
			if !ok || seen[id] {
				return apperr.New(apperr.CodeValidation,
					"reorder ids must be a permutation of day %d items", day)
			}
			seen[id] = true
			reordered = append(reordered, item.Clone())
		}

		reordered = renumber(reordered)
		if err := reflowDay(reordered, prefs.DailyWindow, uuid.Nil); err != nil {
			return err
		}
		for i := range reordered {
			if err := tx.UpdateItem(ctx, &reordered[i]); err != nil {
				return err
			}
		}
		return e.commitEdit(ctx, tx, tripID, model.ChangeReorder, changedBy)
	})
	return e.wrapEditErr(err, "reorder")
}

// TogglePin sets the item's pinned flag.
func (e *Editor) TogglePin(ctx context.Context, tripID, itemID uuid.UUID, pinned bool, changedBy string) error {
	err := e.store.InTripTx(ctx, tripID, func(tx repository.TxStore) error {
		item, err := e.tripItem(ctx, tx, tripID, itemID)
		if err != nil {
			return err
		}
		item.IsPinned = pinned
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}
		return e.commitEdit(ctx, tx, tripID, model.ChangeTogglePin, changedBy)
	})
	return e.wrapEditErr(err, "toggle pin")
}

// SetStartTime moves the item to startTime, keeps its duration, and re-flows
// the rest of the day around it.
func (e *Editor) SetStartTime(ctx context.Context, tripID, itemID uuid.UUID, startTime, changedBy string) error {
	if !timeofday.IsValid(startTime) {
		return apperr.New(apperr.CodeValidation, "invalid start time %q, want HH:MM", startTime)
	}
	prefs, err := e.store.GetPreferences(ctx, tripID)
	if err != nil {
		return classifyStoreErr(err, "load preferences")
	}

	err = e.store.InTripTx(ctx, tripID, func(tx repository.TxStore) error {
		item, err := e.tripItem(ctx, tx, tripID, itemID)
		if err != nil {
			return err
		}
		endTime, err := timeofday.Add(startTime, item.DurationMinutes)
		if err != nil {
			return apperr.Wrap(apperr.CodeValidation, err, "item would cross midnight")
		}
		item.StartTime = startTime
		item.EndTime = endTime
		if err := tx.UpdateItem(ctx, item); err != nil {
			return err
		}

		items, err := tx.ListDayItems(ctx, tripID, item.Day)
		if err != nil {
			return err
		}
		// The edited item anchors the re-flow at its new times.
		if err := reflowDay(items, prefs.DailyWindow, itemID); err != nil {
			return err
		}
		for i := range items {
			if err := tx.UpdateItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return e.commitEdit(ctx, tx, tripID, model.ChangeSetStartTime, changedBy)
	})
	return e.wrapEditErr(err, "set start time")
}

// Remove deletes the item and re-flows the day. Pinned items must be unpinned
// first.
func (e *Editor) Remove(ctx context.Context, tripID, itemID uuid.UUID, changedBy string) error {
	prefs, err := e.store.GetPreferences(ctx, tripID)
	if err != nil {
		return classifyStoreErr(err, "load preferences")
	}

	err = e.store.InTripTx(ctx, tripID, func(tx repository.TxStore) error {
		item, err := e.tripItem(ctx, tx, tripID, itemID)
		if err != nil {
			return err
		}
		if item.IsPinned {
			return apperr.New(apperr.CodeValidation, "item is pinned, unpin first")
		}
		day := item.Day
		if err := tx.DeleteItem(ctx, itemID); err != nil {
			return err
		}

		items, err := tx.ListDayItems(ctx, tripID, day)
		if err != nil {
			return err
		}
		items = renumber(items)
		if err := reflowDay(items, prefs.DailyWindow, uuid.Nil); err != nil {
			return err
		}
		for i := range items {
			if err := tx.UpdateItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return e.commitEdit(ctx, tx, tripID, model.ChangeRemoveItem, changedBy)
	})
	return e.wrapEditErr(err, "remove item")
}

// Add appends a POI to the day. When startTime is nil it defaults to the last
// item's end plus the buffer, or the window start on an empty day.
func (e *Editor) Add(ctx context.Context, tripID uuid.UUID, day int, poiID uuid.UUID, startTime *string, changedBy string) (*model.ItineraryItem, error) {
	prefs, err := e.store.GetPreferences(ctx, tripID)
	if err != nil {
		return nil, classifyStoreErr(err, "load preferences")
	}
	poi, err := e.catalog.GetPOI(ctx, poiID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeNotFound, err, "poi %s", poiID)
	}

	var added *model.ItineraryItem
	err = e.store.InTripTx(ctx, tripID, func(tx repository.TxStore) error {
		items, err := tx.ListDayItems(ctx, tripID, day)
		if err != nil {
			return err
		}

		start := prefs.DailyWindow.Start
		if startTime != nil {
			if !timeofday.IsValid(*startTime) {
				return apperr.New(apperr.CodeValidation, "invalid start time %q, want HH:MM", *startTime)
			}
			start = *startTime
		} else if len(items) > 0 {
			start, err = timeofday.Add(items[len(items)-1].EndTime, e.buffer)
			if err != nil {
				return apperr.Wrap(apperr.CodeValidation, err, "no room left in day %d", day)
			}
		}
		end, err := timeofday.Add(start, poi.AvgDurationMinutes)
		if err != nil {
			return apperr.Wrap(apperr.CodeValidation, err, "item would cross midnight")
		}

		loc := poi.Location
		pid := poi.ID
		item := model.ItineraryItem{
			TripID:          tripID,
			Day:             day,
			Type:            model.ItemPOI,
			POIID:           &pid,
			Name:            poi.Name,
			Location:        &loc,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: poi.AvgDurationMinutes,
			Order:           len(items),
		}
		if poi.PriceRange != nil {
			item.CostEstimate = &model.CostEstimate{
				Amount:     poi.PriceRange.Midpoint(),
				Confidence: model.CostEstimated,
			}
		}
		if err := tx.InsertItem(ctx, &item); err != nil {
			return err
		}
		added = &item
		return e.commitEdit(ctx, tx, tripID, model.ChangeAddItem, changedBy)
	})
	if err != nil {
		return nil, e.wrapEditErr(err, "add item")
	}
	return added, nil
}

// ─── Internals ──────────────────────────────────────────────

// tripItem loads the item and checks it belongs to the trip.
func (e *Editor) tripItem(ctx context.Context, tx repository.TxStore, tripID, itemID uuid.UUID) (*model.ItineraryItem, error) {
	item, err := tx.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.TripID != tripID {
		return nil, repository.ErrNotFound
	}
	return item, nil
}

// commitEdit bumps the itinerary version and writes the snapshot. Runs last
// inside each edit transaction.
func (e *Editor) commitEdit(ctx context.Context, tx repository.TxStore, tripID uuid.UUID, change model.ChangeType, changedBy string) error {
	version := 1
	if prior, err := tx.GetItinerary(ctx, tripID); err == nil {
		version = prior.Version + 1
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err := tx.UpsertItinerary(ctx, &model.Itinerary{
		TripID:      tripID,
		Version:     version,
		GeneratedAt: time.Now(),
	}); err != nil {
		return err
	}
	return writeSnapshot(ctx, tx, tripID, version, change, changedBy, nil)
}

func (e *Editor) wrapEditErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.CodeOf(err); ok {
		return err
	}
	return classifyStoreErr(err, op)
}

// reflowDay recomputes item times in order. Pinned items — and the anchor, if
// any — keep their times and only push the cursor forward; everything else is
// packed sequentially from the daily window start.
func reflowDay(items []model.ItineraryItem, window model.TimeWindow, anchor uuid.UUID) error {
	cursor := window.Start
	for i := range items {
		it := &items[i]
		fixed := it.IsPinned || (anchor != uuid.Nil && it.ID == anchor)
		if fixed {
			cursor = timeofday.Max(cursor, it.EndTime)
			continue
		}
		end, err := timeofday.Add(cursor, it.DurationMinutes)
		if err != nil {
			return apperr.Wrap(apperr.CodeValidation, err, "item %q would cross midnight", it.Name)
		}
		it.StartTime = cursor
		it.EndTime = end
		cursor = end
	}
	return nil
}
