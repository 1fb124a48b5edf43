package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiva/wayplan/internal/catalog"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/pkg/timeofday"
)

// ─── Validator ──────────────────────────────────────────────

// IssueType classifies a validation finding.
type IssueType string

const (
	IssueTimeConflict IssueType = "time_conflict"
	IssueOpeningHours IssueType = "opening_hours"
	IssueTimeWindow   IssueType = "time_window"
	IssueDistance     IssueType = "distance"
	IssueBudget       IssueType = "budget"
)

// IssueSeverity is error or warning; only errors make the report invalid.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Type       IssueType     `json:"type"`
	Severity   IssueSeverity `json:"severity"`
	Message    string        `json:"message"`
	ItemID     *uuid.UUID    `json:"item_id,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// Report is the full validation result for a trip.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Validator checks an itinerary against timing, opening-hours, walking
// distance, and budget constraints.
type Validator struct {
	store   repository.Store
	catalog catalog.Catalog
}

func NewValidator(store repository.Store, cat catalog.Catalog) *Validator {
	return &Validator{store: store, catalog: cat}
}

// Validate inspects the trip's current items and returns every issue found.
// The report is valid when no error-severity issue exists.
func (v *Validator) Validate(ctx context.Context, tripID uuid.UUID) (*Report, error) {
	prefs, err := v.store.GetPreferences(ctx, tripID)
	if err != nil {
		return nil, classifyStoreErr(err, "load preferences")
	}
	items, err := v.store.ListItems(ctx, tripID)
	if err != nil {
		return nil, classifyStoreErr(err, "load items")
	}

	report := &Report{Valid: true}
	byDay := make(map[int][]model.ItineraryItem)
	for _, it := range items {
		byDay[it.Day] = append(byDay[it.Day], it)
	}

	totalCost := decimal.Zero
	for day, dayItems := range byDay {
		v.checkDayTiming(report, dayItems)
		v.checkOpeningHours(ctx, report, day, dayItems, prefs)
		v.checkTimeWindow(report, dayItems, prefs.DailyWindow)
		v.checkWalkingDistance(report, day, dayItems, prefs.Constraints)

		dayCost := decimal.Zero
		for _, it := range dayItems {
			if it.CostEstimate != nil {
				dayCost = dayCost.Add(it.CostEstimate.Amount.Amount)
			}
		}
		totalCost = totalCost.Add(dayCost)
		if prefs.Budget.PerDay != nil && dayCost.GreaterThan(*prefs.Budget.PerDay) {
			report.add(Issue{
				Type:     IssueBudget,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("day %d estimate %s exceeds per-day budget %s %s",
					day, dayCost, prefs.Budget.PerDay, prefs.Budget.Currency),
			})
		}
	}
	if prefs.Budget.Total != nil && totalCost.GreaterThan(*prefs.Budget.Total) {
		report.add(Issue{
			Type:     IssueBudget,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("trip estimate %s exceeds budget %s %s",
				totalCost, prefs.Budget.Total, prefs.Budget.Currency),
		})
	}

	return report, nil
}

func (r *Report) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.Valid = false
	}
}

// checkDayTiming flags items that start before the previous item ends.
func (v *Validator) checkDayTiming(report *Report, dayItems []model.ItineraryItem) {
	for i := 1; i < len(dayItems); i++ {
		prev, cur := dayItems[i-1], dayItems[i]
		if timeofday.Before(cur.StartTime, prev.EndTime) {
			id := cur.ID
			report.add(Issue{
				Type:     IssueTimeConflict,
				Severity: SeverityError,
				Message: fmt.Sprintf("%q starts at %s before %q ends at %s",
					cur.Name, cur.StartTime, prev.Name, prev.EndTime),
				ItemID:     &id,
				Suggestion: "reorder the day or move the item later",
			})
		}
	}
}

// checkOpeningHours flags items scheduled while their POI is closed.
func (v *Validator) checkOpeningHours(ctx context.Context, report *Report, day int, dayItems []model.ItineraryItem, prefs *model.TripPreferences) {
	date, err := timeofday.AddDays(prefs.Dates.Start, day-1)
	if err != nil {
		return
	}
	weekday, err := timeofday.Weekday(date)
	if err != nil {
		return
	}

	for _, it := range dayItems {
		if it.POIID == nil {
			continue
		}
		poi, err := v.catalog.GetPOI(ctx, *it.POIID)
		if err != nil {
			continue
		}
		hours, ok := poi.Hours[weekday]
		if !ok {
			continue
		}
		id := it.ID
		if hours.Closed {
			report.add(Issue{
				Type:     IssueOpeningHours,
				Severity: SeverityError,
				Message:  fmt.Sprintf("%q is closed on %s", it.Name, weekday),
				ItemID:   &id,
			})
			continue
		}
		if (hours.Open != "" && timeofday.Before(it.StartTime, hours.Open)) ||
			(hours.Close != "" && timeofday.Before(hours.Close, it.EndTime)) {
			report.add(Issue{
				Type:     IssueOpeningHours,
				Severity: SeverityError,
				Message: fmt.Sprintf("%q scheduled %s–%s outside opening hours %s–%s",
					it.Name, it.StartTime, it.EndTime, hours.Open, hours.Close),
				ItemID:     &id,
				Suggestion: "move the item inside the opening hours",
			})
		}
	}
}

// checkTimeWindow flags items outside the daily window.
func (v *Validator) checkTimeWindow(report *Report, dayItems []model.ItineraryItem, window model.TimeWindow) {
	for _, it := range dayItems {
		if timeofday.Before(it.StartTime, window.Start) || timeofday.Before(window.End, it.EndTime) {
			id := it.ID
			report.add(Issue{
				Type:     IssueTimeWindow,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("%q scheduled %s–%s outside daily window %s–%s",
					it.Name, it.StartTime, it.EndTime, window.Start, window.End),
				ItemID: &id,
			})
		}
	}
}

// checkWalkingDistance flags days whose walking legs exceed the constraint.
func (v *Validator) checkWalkingDistance(report *Report, day int, dayItems []model.ItineraryItem, constraints model.Constraints) {
	if constraints.MaxWalkingKmPerDay == nil {
		return
	}
	total := 0.0
	for _, it := range dayItems {
		if it.RouteFromPrevious != nil && it.RouteFromPrevious.Mode == model.ModeWalking {
			total += it.RouteFromPrevious.DistanceKm
		}
	}
	if total > *constraints.MaxWalkingKmPerDay {
		report.add(Issue{
			Type:     IssueDistance,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("day %d walking distance %.1f km exceeds limit %.1f km",
				day, total, *constraints.MaxWalkingKmPerDay),
			Suggestion: "switch a leg to transit or taxi",
		})
	}
}
