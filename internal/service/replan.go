package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/catalog"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/internal/routing"
	"github.com/shiva/wayplan/pkg/timeofday"
)

// ─── ReplanService ──────────────────────────────────────────

const (
	// replaceRadiusKm bounds the search for replacement POIs.
	replaceRadiusKm = 3.0
	// defaultMaxProposals caps the proposals returned per trigger.
	defaultMaxProposals = 3
	// defaultRollbackWindow bounds how long an apply can be undone.
	defaultRollbackWindow = 24 * time.Hour
)

// ReplanService turns triggers into ranked repair proposals and applies the
// chosen one atomically with a bounded rollback window.
type ReplanService struct {
	store          repository.Store
	catalog        catalog.Catalog
	routing        routing.Estimator
	rollbackWindow time.Duration
	maxProposals   int
	log            zerolog.Logger
}

func NewReplanService(store repository.Store, cat catalog.Catalog, est routing.Estimator, rollbackWindow time.Duration, log zerolog.Logger) *ReplanService {
	if rollbackWindow == 0 {
		rollbackWindow = defaultRollbackWindow
	}
	return &ReplanService{
		store:          store,
		catalog:        cat,
		routing:        est,
		rollbackWindow: rollbackWindow,
		maxProposals:   defaultMaxProposals,
		log:            log.With().Str("component", "replan").Logger(),
	}
}

// ─── Propose ────────────────────────────────────────────────

// Propose generates up to maxProposals candidate repairs for the trigger,
// persists all of them, and returns the best first. Pinned items are never
// touched by any strategy.
func (s *ReplanService) Propose(ctx context.Context, triggerID uuid.UUID) ([]model.ReplanProposal, error) {
	trigger, err := s.store.GetTrigger(ctx, triggerID)
	if err != nil {
		return nil, classifyStoreErr(err, "get trigger")
	}
	event, err := s.store.GetEventSignal(ctx, trigger.EventSignalID)
	if err != nil {
		return nil, classifyStoreErr(err, "get event signal")
	}
	prefs, err := s.store.GetPreferences(ctx, trigger.TripID)
	if err != nil {
		return nil, classifyStoreErr(err, "load preferences")
	}
	items, err := s.store.ListItems(ctx, trigger.TripID)
	if err != nil {
		return nil, classifyStoreErr(err, "load items")
	}

	// Resolve affected ids against the current itinerary and drop pinned.
	byID := make(map[uuid.UUID]model.ItineraryItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	var affected []model.ItineraryItem
	for _, id := range event.AffectedItems {
		if it, ok := byID[id]; ok && !it.IsPinned {
			affected = append(affected, it)
		}
	}
	if len(affected) == 0 {
		return nil, apperr.New(apperr.CodeReplanFailed, "trigger %s has no actionable items", triggerID)
	}

	var proposals []model.ReplanProposal
	addProposal := func(changes model.ProposalChanges, explanation string) {
		if changes.IsEmpty() {
			return
		}
		impact := s.computeImpact(changes, byID)
		proposals = append(proposals, model.ReplanProposal{
			TripID:      trigger.TripID,
			TriggerID:   trigger.ID,
			Score:       scoreProposal(impact),
			Explanation: explanation,
			Changes:     changes,
			Impact:      impact,
		})
	}

	switch event.Type {
	case model.EventWeather:
		addProposal(s.replaceWithTagged(ctx, affected, prefs, []string{"indoor"}, nil),
			"replace weather-exposed items with indoor alternatives nearby")
		addProposal(s.moveToOtherDay(affected, items, prefs),
			"move affected items to another day with room")
		addProposal(removeItems(affected),
			"remove the affected items")
	case model.EventClosure:
		addProposal(s.replaceSimilar(ctx, affected, prefs),
			"replace closed venues with similar ones nearby")
		addProposal(s.moveAfterSlot(affected, event.TimeSlot, prefs),
			"shift affected items to a later slot the same day")
	default:
		return nil, apperr.New(apperr.CodeReplanFailed, "no replan strategy for event type %q", event.Type)
	}

	if len(proposals) == 0 {
		return nil, apperr.New(apperr.CodeReplanFailed, "no strategy produced changes for trigger %s", triggerID)
	}

	for i := range proposals {
		if err := s.store.InsertProposal(ctx, &proposals[i]); err != nil {
			return nil, classifyStoreErr(err, "persist proposal")
		}
	}

	sort.SliceStable(proposals, func(i, j int) bool { return proposals[i].Score > proposals[j].Score })
	if len(proposals) > s.maxProposals {
		proposals = proposals[:s.maxProposals]
	}
	s.log.Info().
		Str("trigger_id", triggerID.String()).
		Int("proposals", len(proposals)).
		Float64("top_score", proposals[0].Score).
		Msg("proposals generated")
	return proposals, nil
}

// replaceWithTagged swaps each affected item for the nearest POI carrying any
// of the wanted tags within the replace radius. excluded POIs are skipped.
func (s *ReplanService) replaceWithTagged(ctx context.Context, affected []model.ItineraryItem, prefs *model.TripPreferences, tags []string, exclude map[uuid.UUID]bool) model.ProposalChanges {
	var changes model.ProposalChanges
	for _, it := range affected {
		if it.Location == nil {
			continue
		}
		candidates, err := s.catalog.Search(ctx, catalog.Query{
			Destination: prefs.Destination,
			Tags:        tags,
			NearBy:      it.Location,
			WithinKm:    replaceRadiusKm,
		})
		if err != nil || len(candidates) == 0 {
			continue
		}

		// Rank candidates by walking time from the displaced item's spot.
		var best *model.POI
		bestMinutes := -1
		for i := range candidates {
			c := candidates[i]
			if it.POIID != nil && c.ID == *it.POIID {
				continue
			}
			if exclude != nil && exclude[c.ID] {
				continue
			}
			est, err := s.routing.Estimate(ctx, *it.Location, c.Location, model.ModeWalking)
			if err != nil {
				continue
			}
			if bestMinutes < 0 || est.DurationMinutes < bestMinutes {
				bestMinutes = est.DurationMinutes
				best = &candidates[i]
			}
		}
		if best == nil {
			continue
		}

		newItem, ok := itemFromPOI(it, *best)
		if !ok {
			continue
		}
		changes.Replaced = append(changes.Replaced, model.ReplacedItem{
			OldItemID: it.ID,
			NewItem:   newItem,
		})
	}
	return changes
}

// replaceSimilar swaps each affected item for a nearby POI sharing its tags.
func (s *ReplanService) replaceSimilar(ctx context.Context, affected []model.ItineraryItem, prefs *model.TripPreferences) model.ProposalChanges {
	var changes model.ProposalChanges
	for _, it := range affected {
		if it.POIID == nil || it.Location == nil {
			continue
		}
		poi, err := s.catalog.GetPOI(ctx, *it.POIID)
		if err != nil || len(poi.Tags) == 0 {
			continue
		}
		sub := s.replaceWithTagged(ctx, []model.ItineraryItem{it}, prefs, poi.Tags, map[uuid.UUID]bool{poi.ID: true})
		changes.Replaced = append(changes.Replaced, sub.Replaced...)
	}
	return changes
}

// moveToOtherDay reschedules each affected item to the first other day with a
// free slot inside the trip's daily window.
func (s *ReplanService) moveToOtherDay(affected []model.ItineraryItem, items []model.ItineraryItem, prefs *model.TripPreferences) model.ProposalChanges {
	numDays, err := timeofday.DaysBetween(prefs.Dates.Start, prefs.Dates.End)
	if err != nil {
		return model.ProposalChanges{}
	}

	lastEnd := make(map[int]string, numDays)
	for _, it := range items {
		if cur, ok := lastEnd[it.Day]; !ok || timeofday.Before(cur, it.EndTime) {
			lastEnd[it.Day] = it.EndTime
		}
	}

	var changes model.ProposalChanges
	for _, it := range affected {
		for day := 1; day <= numDays; day++ {
			if day == it.Day {
				continue
			}
			start := prefs.DailyWindow.Start
			if end, ok := lastEnd[day]; ok {
				next, err := timeofday.Add(end, 15)
				if err != nil {
					continue
				}
				start = next
			}
			end, err := timeofday.Add(start, it.DurationMinutes)
			if err != nil || timeofday.Before(prefs.DailyWindow.End, end) {
				continue
			}
			changes.Moved = append(changes.Moved, model.MovedItem{
				ItemID:       it.ID,
				FromDay:      it.Day,
				ToDay:        day,
				NewStartTime: start,
			})
			lastEnd[day] = end
			break
		}
	}
	return changes
}

// moveAfterSlot shifts each affected item past the event slot on its own day.
func (s *ReplanService) moveAfterSlot(affected []model.ItineraryItem, slot model.EventTimeSlot, prefs *model.TripPreferences) model.ProposalChanges {
	var changes model.ProposalChanges
	for _, it := range affected {
		start := timeofday.Max(slot.End, it.StartTime)
		if start == it.StartTime {
			continue
		}
		end, err := timeofday.Add(start, it.DurationMinutes)
		if err != nil || timeofday.Before(prefs.DailyWindow.End, end) {
			continue
		}
		changes.Moved = append(changes.Moved, model.MovedItem{
			ItemID:       it.ID,
			FromDay:      it.Day,
			ToDay:        it.Day,
			NewStartTime: start,
		})
	}
	return changes
}

func removeItems(affected []model.ItineraryItem) model.ProposalChanges {
	var changes model.ProposalChanges
	for _, it := range affected {
		changes.Removed = append(changes.Removed, it.ID)
	}
	return changes
}

// itemFromPOI builds the replacement item in the old item's slot: same day
// and start, duration from the new POI.
func itemFromPOI(old model.ItineraryItem, poi model.POI) (model.ItineraryItem, bool) {
	end, err := timeofday.Add(old.StartTime, poi.AvgDurationMinutes)
	if err != nil {
		return model.ItineraryItem{}, false
	}
	pid := poi.ID
	loc := poi.Location
	item := model.ItineraryItem{
		TripID:          old.TripID,
		Day:             old.Day,
		Type:            model.ItemPOI,
		POIID:           &pid,
		Name:            poi.Name,
		Location:        &loc,
		StartTime:       old.StartTime,
		EndTime:         end,
		DurationMinutes: poi.AvgDurationMinutes,
		Order:           old.Order,
	}
	if poi.PriceRange != nil {
		item.CostEstimate = &model.CostEstimate{
			Amount:     poi.PriceRange.Midpoint(),
			Confidence: model.CostEstimated,
		}
	}
	return item, true
}

// ─── Impact and scoring ─────────────────────────────────────

// computeImpact derives the estimated effect of the change set.
// distance_change_km stays 0: route distances are not recomputed here.
func (s *ReplanService) computeImpact(changes model.ProposalChanges, byID map[uuid.UUID]model.ItineraryItem) model.ProposalImpact {
	timeChange := 0
	costChange := decimal.Zero

	for _, r := range changes.Replaced {
		if old, ok := byID[r.OldItemID]; ok {
			timeChange += r.NewItem.DurationMinutes - old.DurationMinutes
			if old.CostEstimate != nil {
				costChange = costChange.Sub(old.CostEstimate.Amount.Amount)
			}
		}
		if r.NewItem.CostEstimate != nil {
			costChange = costChange.Add(r.NewItem.CostEstimate.Amount.Amount)
		}
	}
	for _, id := range changes.Removed {
		if old, ok := byID[id]; ok && old.CostEstimate != nil {
			costChange = costChange.Sub(old.CostEstimate.Amount.Amount)
		}
	}
	for _, added := range changes.Added {
		if added.CostEstimate != nil {
			costChange = costChange.Add(added.CostEstimate.Amount.Amount)
		}
	}

	disruption := 0.3*float64(len(changes.Replaced)) +
		0.2*float64(len(changes.Moved)) +
		0.4*float64(len(changes.Removed)) +
		0.1*float64(len(changes.Added))
	if disruption > 1 {
		disruption = 1
	}

	return model.ProposalImpact{
		TimeChangeMinutes: timeChange,
		CostChange:        costChange,
		DistanceChangeKm:  0,
		DisruptionScore:   disruption,
	}
}

// scoreProposal starts at 1.0 and applies the disruption, cost, and time
// adjustments, clamped to [0,1].
func scoreProposal(impact model.ProposalImpact) float64 {
	score := 1.0 - 0.5*impact.DisruptionScore
	if impact.CostChange.IsNegative() {
		score += 0.2
	} else if impact.CostChange.IsPositive() {
		score -= 0.1
	}
	if impact.TimeChangeMinutes > 60 || impact.TimeChangeMinutes < -60 {
		score -= 0.1
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// ─── Apply ──────────────────────────────────────────────────

// Apply materializes a proposal in one transaction: snapshot the pre-state,
// swap the items, renumber affected days, bump the version, and open the
// rollback window. Replaying an idempotency key is a conflict.
func (s *ReplanService) Apply(ctx context.Context, proposalID uuid.UUID, idempotencyKey string) (*model.ReplanApplication, error) {
	if idempotencyKey == "" {
		return nil, apperr.New(apperr.CodeValidation, "idempotency key is required")
	}
	if existing, err := s.store.GetApplicationByKey(ctx, idempotencyKey); err == nil {
		return nil, apperr.New(apperr.CodeIdempotencyConflict,
			"idempotency key already applied proposal %s", existing.ProposalID)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, classifyStoreErr(err, "idempotency lookup")
	}

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, classifyStoreErr(err, "get proposal")
	}

	app := &model.ReplanApplication{
		TripID:         proposal.TripID,
		ProposalID:     proposal.ID,
		IdempotencyKey: idempotencyKey,
	}

	err = s.store.InTripTx(ctx, proposal.TripID, func(tx repository.TxStore) error {
		itin, err := tx.GetItinerary(ctx, proposal.TripID)
		if err != nil {
			return err
		}
		v := itin.Version

		// The pre-state snapshot normally already exists from the mutation
		// that produced version v; write it only if it is missing.
		if _, err := tx.GetVersion(ctx, proposal.TripID, v); errors.Is(err, repository.ErrNotFound) {
			if err := writeSnapshot(ctx, tx, proposal.TripID, v, model.ChangeReplan, "replan", nil); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		touchedDays := make(map[int]bool)
		var diff model.VersionDiff

		// Remove old and removed items.
		for _, r := range proposal.Changes.Replaced {
			old, err := tx.GetItem(ctx, r.OldItemID)
			if err != nil {
				return fmt.Errorf("replaced item %s: %w", r.OldItemID, err)
			}
			touchedDays[old.Day] = true
			if err := tx.DeleteItem(ctx, r.OldItemID); err != nil {
				return err
			}
			diff.RemovedItemIDs = append(diff.RemovedItemIDs, r.OldItemID)
		}
		for _, id := range proposal.Changes.Removed {
			old, err := tx.GetItem(ctx, id)
			if err != nil {
				return fmt.Errorf("removed item %s: %w", id, err)
			}
			touchedDays[old.Day] = true
			if err := tx.DeleteItem(ctx, id); err != nil {
				return err
			}
			diff.RemovedItemIDs = append(diff.RemovedItemIDs, id)
		}

		// Insert replacements and additions.
		for _, r := range proposal.Changes.Replaced {
			item := r.NewItem.Clone()
			item.ID = uuid.Nil
			item.TripID = proposal.TripID
			if err := tx.InsertItem(ctx, &item); err != nil {
				return err
			}
			touchedDays[item.Day] = true
			diff.AddedItemIDs = append(diff.AddedItemIDs, item.ID)
		}
		for _, a := range proposal.Changes.Added {
			item := a.Clone()
			item.ID = uuid.Nil
			item.TripID = proposal.TripID
			if err := tx.InsertItem(ctx, &item); err != nil {
				return err
			}
			touchedDays[item.Day] = true
			diff.AddedItemIDs = append(diff.AddedItemIDs, item.ID)
		}

		// Reschedule moved items; duration is preserved, the end recomputed.
		for _, m := range proposal.Changes.Moved {
			item, err := tx.GetItem(ctx, m.ItemID)
			if err != nil {
				return fmt.Errorf("moved item %s: %w", m.ItemID, err)
			}
			end, err := timeofday.Add(m.NewStartTime, item.DurationMinutes)
			if err != nil {
				return apperr.Wrap(apperr.CodeValidation, err, "move crosses midnight")
			}
			touchedDays[m.FromDay] = true
			touchedDays[m.ToDay] = true
			item.Day = m.ToDay
			item.StartTime = m.NewStartTime
			item.EndTime = end
			if err := tx.UpdateItem(ctx, item); err != nil {
				return err
			}
			diff.ChangedItemIDs = append(diff.ChangedItemIDs, m.ItemID)
		}

		// Renumber every touched day by ascending start time.
		for day := range touchedDays {
			dayItems, err := tx.ListDayItems(ctx, proposal.TripID, day)
			if err != nil {
				return err
			}
			sort.SliceStable(dayItems, func(i, j int) bool {
				return dayItems[i].StartTime < dayItems[j].StartTime
			})
			for i := range dayItems {
				if dayItems[i].Order != i {
					dayItems[i].Order = i
					if err := tx.UpdateItem(ctx, &dayItems[i]); err != nil {
						return err
					}
				}
			}
		}

		newVersion := v + 1
		if err := tx.UpsertItinerary(ctx, &model.Itinerary{
			TripID:      proposal.TripID,
			Version:     newVersion,
			GeneratedAt: time.Now(),
		}); err != nil {
			return err
		}

		app.AppliedVersion = newVersion
		app.RollbackAvailableUntil = time.Now().Add(s.rollbackWindow)
		if err := tx.InsertApplication(ctx, app); err != nil {
			return err
		}
		if err := tx.MarkTriggerProcessed(ctx, proposal.TriggerID); err != nil {
			return err
		}
		return writeSnapshot(ctx, tx, proposal.TripID, newVersion, model.ChangeReplan, "replan", &diff)
	})
	if err != nil {
		if _, ok := apperr.CodeOf(err); ok {
			return nil, err
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Wrap(apperr.CodeIdempotencyConflict, err, "apply replay rejected")
		}
		return nil, apperr.Wrap(apperr.CodeReplanFailed, err, "apply proposal %s", proposalID)
	}

	s.validateApplied(ctx, proposal.TripID)
	s.log.Info().
		Str("trip_id", proposal.TripID.String()).
		Str("proposal_id", proposalID.String()).
		Int("version", app.AppliedVersion).
		Msg("proposal applied")
	return app, nil
}

// validateApplied runs the post-commit sanity pass: stale poi references and
// intra-day overlaps are logged as warnings, never reverted.
func (s *ReplanService) validateApplied(ctx context.Context, tripID uuid.UUID) {
	items, err := s.store.ListItems(ctx, tripID)
	if err != nil {
		s.log.Warn().Err(err).Msg("post-apply validation skipped")
		return
	}
	byDay := make(map[int][]model.ItineraryItem)
	for _, it := range items {
		if it.POIID != nil {
			if _, err := s.catalog.GetPOI(ctx, *it.POIID); err != nil {
				s.log.Warn().
					Str("item", it.Name).
					Str("poi_id", it.POIID.String()).
					Msg("applied item references unresolvable poi")
			}
		}
		byDay[it.Day] = append(byDay[it.Day], it)
	}
	for day, dayItems := range byDay {
		for i := 1; i < len(dayItems); i++ {
			if timeofday.Before(dayItems[i].StartTime, dayItems[i-1].EndTime) {
				s.log.Warn().
					Int("day", day).
					Str("item", dayItems[i].Name).
					Msg("applied itinerary has intra-day time conflict")
			}
		}
	}
}

// ─── Rollback ───────────────────────────────────────────────

// Rollback restores the pre-apply snapshot exactly and supersedes every
// version above it, so the next mutation's version cannot collide with an
// undone snapshot. It is refused once the window has passed or the
// application was already rolled back.
func (s *ReplanService) Rollback(ctx context.Context, applicationID uuid.UUID) error {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return classifyStoreErr(err, "get application")
	}
	if app.RolledBack {
		return apperr.New(apperr.CodeRollbackExpired, "application %s already rolled back", applicationID)
	}
	if !time.Now().Before(app.RollbackAvailableUntil) {
		return apperr.New(apperr.CodeRollbackExpired, "rollback window for %s closed at %s",
			applicationID, app.RollbackAvailableUntil.Format(time.RFC3339))
	}

	prior := app.AppliedVersion - 1
	err = s.store.InTripTx(ctx, app.TripID, func(tx repository.TxStore) error {
		snap, err := tx.GetVersion(ctx, app.TripID, prior)
		if err != nil {
			return fmt.Errorf("snapshot version %d: %w", prior, err)
		}

		current, err := tx.ListItems(ctx, app.TripID)
		if err != nil {
			return err
		}
		for _, it := range current {
			if err := tx.DeleteItem(ctx, it.ID); err != nil {
				return err
			}
		}
		for _, it := range model.FlattenDays(snap.Snapshot) {
			restored := it
			if err := tx.InsertItem(ctx, &restored); err != nil {
				return err
			}
		}

		if err := tx.SetItineraryVersion(ctx, app.TripID, prior); err != nil {
			return err
		}
		if err := tx.DeleteVersionsAbove(ctx, app.TripID, prior); err != nil {
			return err
		}

		now := time.Now()
		app.RolledBack = true
		app.RolledBackAt = &now
		return tx.UpdateApplication(ctx, app)
	})
	if err != nil {
		app.RolledBack = false
		app.RolledBackAt = nil
		return apperr.Wrap(apperr.CodeReplanFailed, err, "rollback application %s", applicationID)
	}

	s.log.Info().
		Str("trip_id", app.TripID.String()).
		Str("application_id", applicationID.String()).
		Int("restored_version", prior).
		Msg("replan rolled back")
	return nil
}
