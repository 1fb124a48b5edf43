// Package model contains domain models for the trip planning engine.
// These structs map to the PostgreSQL schema defined in migrations/001_create_schema.up.sql.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Enums ──────────────────────────────────────────────────

type TripStatus string

const (
	TripDraft     TripStatus = "draft"
	TripPlanning  TripStatus = "planning"
	TripBooked    TripStatus = "booked"
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

type ItemType string

const (
	ItemPOI       ItemType = "poi"
	ItemActivity  ItemType = "activity"
	ItemHotel     ItemType = "hotel"
	ItemTransport ItemType = "transport"
	ItemMeal      ItemType = "meal"
	ItemFreeTime  ItemType = "free_time"
)

type TransportMode string

const (
	ModeWalking TransportMode = "walking"
	ModeTransit TransportMode = "transit"
	ModeTaxi    TransportMode = "taxi"
	ModeDrive   TransportMode = "drive"
)

type CostConfidence string

const (
	CostFixed     CostConfidence = "fixed"
	CostEstimated CostConfidence = "estimated"
)

// ChangeType names the operation that produced an itinerary version snapshot.
type ChangeType string

const (
	ChangeGenerate     ChangeType = "generate"
	ChangeEdit         ChangeType = "edit"
	ChangeReorder      ChangeType = "reorder"
	ChangeTogglePin    ChangeType = "toggle_pin"
	ChangeSetStartTime ChangeType = "set_start_time"
	ChangeAddItem      ChangeType = "add_item"
	ChangeRemoveItem   ChangeType = "remove_item"
	ChangeReplan       ChangeType = "replan"
	ChangeRollback     ChangeType = "rollback"
)

// ─── Value types ────────────────────────────────────────────

// Location represents a WGS-84 geographic point (EPSG:4326).
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Validate checks the coordinate ranges: lat ∈ [-90,90], lng ∈ (-180,180].
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("location: lat %v out of range [-90,90]", l.Lat)
	}
	if l.Lng <= -180 || l.Lng > 180 {
		return fmt.Errorf("location: lng %v out of range (-180,180]", l.Lng)
	}
	return nil
}

// Money is a decimal amount with an ISO-4217 currency code.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Add returns m + other. Currencies must match; mixing is a programming error
// surfaced to the caller.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("money: currency mismatch %s vs %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// CostEstimate is a price attached to an itinerary item.
type CostEstimate struct {
	Amount     Money          `json:"amount"`
	Confidence CostConfidence `json:"confidence"`
}

// ─── Trip aggregate root ────────────────────────────────────

// Trip maps to the `trips` table. Exactly one of OwnerUserID and
// GuestSessionID is set (enforced by a CHECK constraint and by Validate).
type Trip struct {
	ID             uuid.UUID  `json:"id"`
	OwnerUserID    *uuid.UUID `json:"owner_user_id,omitempty"`
	GuestSessionID *uuid.UUID `json:"guest_session_id,omitempty"`
	Status         TripStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Validate enforces exclusive ownership.
func (t Trip) Validate() error {
	if (t.OwnerUserID == nil) == (t.GuestSessionID == nil) {
		return fmt.Errorf("trip: exactly one of owner_user_id and guest_session_id must be set")
	}
	return nil
}

// DateRange is an inclusive [Start, End] pair of "YYYY-MM-DD" dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeWindow is a [Start, End) pair of "HH:MM" times within one day.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Travelers is the traveler mix for a trip.
type Travelers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Seniors  int `json:"seniors"`
}

// Budget holds the optional total / per-day limits.
type Budget struct {
	Total    *decimal.Decimal `json:"total,omitempty"`
	PerDay   *decimal.Decimal `json:"per_day,omitempty"`
	Currency string           `json:"currency"`
}

// Constraints are soft planning constraints carried on the preferences.
type Constraints struct {
	MaxWalkingKmPerDay *float64 `json:"max_walking_km_per_day,omitempty"`
	HasChildren        bool     `json:"has_children"`
	HasSeniors         bool     `json:"has_seniors"`
	NeedsRestTime      bool     `json:"needs_rest_time"`
	AvoidCrowds        bool     `json:"avoid_crowds"`
}

// TripPreferences maps to the `trip_preferences` table (1:1 with trips).
type TripPreferences struct {
	TripID      uuid.UUID   `json:"trip_id"`
	Destination string      `json:"destination"`
	Dates       DateRange   `json:"dates"`
	Travelers   Travelers   `json:"travelers"`
	Budget      Budget      `json:"budget"`
	Style       string      `json:"style,omitempty"`
	DailyWindow TimeWindow  `json:"daily_window"`
	Constraints Constraints `json:"constraints"`
}

// Validate checks the structural invariants of the preferences.
func (p TripPreferences) Validate() error {
	if p.Travelers.Adults < 1 {
		return fmt.Errorf("preferences: at least one adult traveler required")
	}
	if p.Travelers.Children < 0 || p.Travelers.Seniors < 0 {
		return fmt.Errorf("preferences: traveler counts must be non-negative")
	}
	if p.Dates.Start == "" || p.Dates.End == "" || p.Dates.Start > p.Dates.End {
		return fmt.Errorf("preferences: invalid date range %s..%s", p.Dates.Start, p.Dates.End)
	}
	if p.DailyWindow.Start >= p.DailyWindow.End {
		return fmt.Errorf("preferences: daily window %s..%s is empty", p.DailyWindow.Start, p.DailyWindow.End)
	}
	return nil
}

// ─── POI (external reference, read-only for the core) ───────

// DayHours is a POI's opening hours for one weekday.
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// WeeklyHours is keyed by lowercase weekday name ("sunday".."saturday").
type WeeklyHours map[string]DayHours

// PriceRange is a POI's published price band.
type PriceRange struct {
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Currency string          `json:"currency"`
}

// Midpoint returns (min + max) / 2, the estimate used for day-cost sums.
func (p PriceRange) Midpoint() Money {
	return Money{
		Amount:   p.Min.Add(p.Max).Div(decimal.NewFromInt(2)),
		Currency: p.Currency,
	}
}

// POI is a point of interest from the external catalog.
type POI struct {
	ID                 uuid.UUID   `json:"id"`
	PlaceID            string      `json:"place_id"`
	Name               string      `json:"name"`
	Location           Location    `json:"location"`
	Hours              WeeklyHours `json:"hours,omitempty"`
	Tags               []string    `json:"tags,omitempty"`
	AvgDurationMinutes int         `json:"avg_duration_minutes"`
	PriceRange         *PriceRange `json:"price_range,omitempty"`
}

// HasTag reports whether the POI carries the given lowercase tag.
func (p POI) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ─── Itinerary ──────────────────────────────────────────────

// RouteSegment is the travel leg from the previous item of the day,
// embedded on the destination item.
type RouteSegment struct {
	FromItemID      *uuid.UUID    `json:"from_item_id,omitempty"`
	ToItemID        uuid.UUID     `json:"to_item_id"`
	Mode            TransportMode `json:"mode"`
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes int           `json:"duration_minutes"`
	CostEstimate    *CostEstimate `json:"cost_estimate,omitempty"`
}

// ItineraryItem maps to the `itinerary_items` table.
type ItineraryItem struct {
	ID                uuid.UUID     `json:"id"`
	TripID            uuid.UUID     `json:"trip_id"`
	Day               int           `json:"day"` // 1..N
	Type              ItemType      `json:"type"`
	POIID             *uuid.UUID    `json:"poi_id,omitempty"`
	Name              string        `json:"name"`
	Location          *Location     `json:"location,omitempty"`
	StartTime         string        `json:"start_time"` // HH:MM
	EndTime           string        `json:"end_time"`   // HH:MM
	DurationMinutes   int           `json:"duration_minutes"`
	IsPinned          bool          `json:"is_pinned"`
	Order             int           `json:"order"`
	RouteFromPrevious *RouteSegment `json:"route_from_previous,omitempty"`
	CostEstimate      *CostEstimate `json:"cost_estimate,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// Clone returns a deep copy. Snapshots and replan staging mutate copies,
// never the stored rows.
func (it ItineraryItem) Clone() ItineraryItem {
	out := it
	if it.POIID != nil {
		v := *it.POIID
		out.POIID = &v
	}
	if it.Location != nil {
		v := *it.Location
		out.Location = &v
	}
	if it.RouteFromPrevious != nil {
		v := *it.RouteFromPrevious
		if it.RouteFromPrevious.FromItemID != nil {
			f := *it.RouteFromPrevious.FromItemID
			v.FromItemID = &f
		}
		if it.RouteFromPrevious.CostEstimate != nil {
			c := *it.RouteFromPrevious.CostEstimate
			v.CostEstimate = &c
		}
		out.RouteFromPrevious = &v
	}
	if it.CostEstimate != nil {
		v := *it.CostEstimate
		out.CostEstimate = &v
	}
	return out
}

// Itinerary maps to the `itineraries` table (1:1 with trips).
type Itinerary struct {
	TripID      uuid.UUID `json:"trip_id"`
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ItineraryDay is one day of a snapshot: the items of that day in order.
type ItineraryDay struct {
	Day   int             `json:"day"`
	Items []ItineraryItem `json:"items"`
}

// ItineraryVersion maps to the append-only `itinerary_versions` table.
type ItineraryVersion struct {
	ID         uuid.UUID      `json:"id"`
	TripID     uuid.UUID      `json:"trip_id"`
	Version    int            `json:"version"`
	ChangeType ChangeType     `json:"change_type"`
	ChangedBy  string         `json:"changed_by,omitempty"`
	Snapshot   []ItineraryDay `json:"snapshot"`
	Diff       *VersionDiff   `json:"diff,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// VersionDiff summarizes item-level differences from the prior snapshot.
type VersionDiff struct {
	AddedItemIDs   []uuid.UUID `json:"added_item_ids,omitempty"`
	RemovedItemIDs []uuid.UUID `json:"removed_item_ids,omitempty"`
	ChangedItemIDs []uuid.UUID `json:"changed_item_ids,omitempty"`
}

// SnapshotDays groups a flat (day asc, order asc) item slice into days.
func SnapshotDays(items []ItineraryItem, numDays int) []ItineraryDay {
	if numDays < 1 {
		for _, it := range items {
			if it.Day > numDays {
				numDays = it.Day
			}
		}
	}
	days := make([]ItineraryDay, numDays)
	for i := range days {
		days[i] = ItineraryDay{Day: i + 1}
	}
	for _, it := range items {
		if it.Day < 1 || it.Day > numDays {
			continue
		}
		days[it.Day-1].Items = append(days[it.Day-1].Items, it.Clone())
	}
	return days
}

// FlattenDays is the inverse of SnapshotDays: a (day, order) ordered slice.
func FlattenDays(days []ItineraryDay) []ItineraryItem {
	var out []ItineraryItem
	for _, d := range days {
		for _, it := range d.Items {
			out = append(out, it.Clone())
		}
	}
	return out
}
