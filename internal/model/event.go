package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Disruption events ──────────────────────────────────────

type EventType string

const (
	EventWeather             EventType = "weather"
	EventClosure             EventType = "closure"
	EventSoldOut             EventType = "sold_out"
	EventDelay               EventType = "delay"
	EventAvailabilityChanged EventType = "availability_changed"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// EventTimeSlot is the real-world window the event covers: a date plus a
// time-of-day interval on that date.
type EventTimeSlot struct {
	Date  string `json:"date"`  // YYYY-MM-DD
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

// ─── Event details (tagged union) ───────────────────────────
//
// Exactly one branch is set, and it must match the signal's Type. The JSON
// shape mirrors the branch names so payloads stay self-describing.

type WeatherDetails struct {
	Condition   string   `json:"condition"` // sunny, light_rain, heavy_rain, cloudy, snow, ...
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	WindSpeed   *float64 `json:"wind_speed,omitempty"`
	Impact      string   `json:"impact,omitempty"`
}

type ClosureDetails struct {
	Reason string     `json:"reason,omitempty"`
	Until  *time.Time `json:"until,omitempty"`
}

type SoldOutDetails struct {
	Until *time.Time `json:"until,omitempty"`
}

type DelayDetails struct {
	Minutes int    `json:"minutes"`
	Reason  string `json:"reason,omitempty"`
}

type AvailabilityDetails struct {
	Status string `json:"status"` // sold_out, closed, fully_booked, reopened
}

// EventDetails carries the per-type payload of an event signal.
type EventDetails struct {
	Weather      *WeatherDetails      `json:"weather,omitempty"`
	Closure      *ClosureDetails      `json:"closure,omitempty"`
	SoldOut      *SoldOutDetails      `json:"sold_out,omitempty"`
	Delay        *DelayDetails        `json:"delay,omitempty"`
	Availability *AvailabilityDetails `json:"availability,omitempty"`
}

// Validate checks that exactly one branch is set and that it matches typ.
func (d EventDetails) Validate(typ EventType) error {
	set := 0
	var match bool
	if d.Weather != nil {
		set++
		match = typ == EventWeather
	}
	if d.Closure != nil {
		set++
		match = typ == EventClosure
	}
	if d.SoldOut != nil {
		set++
		match = typ == EventSoldOut
	}
	if d.Delay != nil {
		set++
		match = typ == EventDelay
	}
	if d.Availability != nil {
		set++
		match = typ == EventAvailabilityChanged
	}
	if set != 1 {
		return fmt.Errorf("event details: exactly one branch must be set, got %d", set)
	}
	if !match {
		return fmt.Errorf("event details: branch does not match event type %q", typ)
	}
	return nil
}

// EventSignal maps to the `event_signals` table.
type EventSignal struct {
	ID             uuid.UUID     `json:"id"`
	TripID         uuid.UUID     `json:"trip_id"`
	Type           EventType     `json:"type"`
	Severity       Severity      `json:"severity"`
	Location       Location      `json:"location"`
	TimeSlot       EventTimeSlot `json:"time_slot"`
	Details        EventDetails  `json:"details"`
	AffectedItems  []uuid.UUID   `json:"affected_items"`
	Processed      bool          `json:"processed"`
	ReplanTriggered bool         `json:"replan_triggered"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ReplanTrigger maps to the `replan_triggers` table.
type ReplanTrigger struct {
	ID            uuid.UUID `json:"id"`
	TripID        uuid.UUID `json:"trip_id"`
	EventSignalID uuid.UUID `json:"event_signal_id"`
	Reason        string    `json:"reason"`
	Priority      Severity  `json:"priority"`
	Processed     bool      `json:"processed"`
	CreatedAt     time.Time `json:"created_at"`
}

// ─── Proposals ──────────────────────────────────────────────

// ReplacedItem swaps an existing item for a new one in the same slot.
type ReplacedItem struct {
	OldItemID uuid.UUID     `json:"old_item_id"`
	NewItem   ItineraryItem `json:"new_item"`
}

// MovedItem reschedules an existing item; duration is preserved and the end
// time is recomputed on apply.
type MovedItem struct {
	ItemID       uuid.UUID `json:"item_id"`
	FromDay      int       `json:"from_day"`
	ToDay        int       `json:"to_day"`
	NewStartTime string    `json:"new_start_time"` // HH:MM
}

// ProposalChanges enumerates every item-level change a proposal makes.
type ProposalChanges struct {
	Replaced []ReplacedItem  `json:"replaced_items"`
	Moved    []MovedItem     `json:"moved_items"`
	Removed  []uuid.UUID     `json:"removed_items"`
	Added    []ItineraryItem `json:"added_items"`
}

// IsEmpty reports whether the proposal changes nothing.
func (c ProposalChanges) IsEmpty() bool {
	return len(c.Replaced) == 0 && len(c.Moved) == 0 && len(c.Removed) == 0 && len(c.Added) == 0
}

// ProposalImpact is the estimated effect of applying a proposal.
type ProposalImpact struct {
	TimeChangeMinutes int             `json:"time_change_minutes"`
	CostChange        decimal.Decimal `json:"cost_change"`
	DistanceChangeKm  float64         `json:"distance_change_km"` // reported as 0; routing recompute not wired
	DisruptionScore   float64         `json:"disruption_score"`   // [0,1]
}

// ReplanProposal maps to the `replan_proposals` table.
type ReplanProposal struct {
	ID          uuid.UUID       `json:"id"`
	TripID      uuid.UUID       `json:"trip_id"`
	TriggerID   uuid.UUID       `json:"trigger_id"`
	Score       float64         `json:"score"` // [0,1]
	Explanation string          `json:"explanation"`
	Changes     ProposalChanges `json:"changes"`
	Impact      ProposalImpact  `json:"impact"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ReplanApplication maps to the `replan_applications` table. IdempotencyKey is
// unique: replaying an apply with a used key is rejected as a conflict.
type ReplanApplication struct {
	ID                     uuid.UUID  `json:"id"`
	TripID                 uuid.UUID  `json:"trip_id"`
	ProposalID             uuid.UUID  `json:"proposal_id"`
	IdempotencyKey         string     `json:"idempotency_key"`
	AppliedVersion         int        `json:"applied_version"`
	RollbackAvailableUntil time.Time  `json:"rollback_available_until"`
	RolledBack             bool       `json:"rolled_back"`
	RolledBackAt           *time.Time `json:"rolled_back_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}
