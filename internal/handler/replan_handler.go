package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/internal/service"
)

// EventHandler handles disruption event ingestion and trigger listing.
type EventHandler struct {
	events *service.EventService
	store  repository.Store
	log    zerolog.Logger
}

func NewEventHandler(events *service.EventService, store repository.Store, log zerolog.Logger) *EventHandler {
	return &EventHandler{events: events, store: store, log: log.With().Str("handler", "event").Logger()}
}

type ingestEventRequest struct {
	Type     model.EventType     `json:"type"`
	Severity model.Severity      `json:"severity"`
	Location model.Location      `json:"location"`
	TimeSlot model.EventTimeSlot `json:"time_slot"`
	Details  model.EventDetails  `json:"details"`
}

type ingestEventResponse struct {
	Event   *model.EventSignal   `json:"event"`
	Trigger *model.ReplanTrigger `json:"trigger,omitempty"`
}

// Ingest handles POST /api/v1/trips/{trip_id}/events
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req ingestEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	event, trigger, err := h.events.Ingest(r.Context(), service.IngestInput{
		TripID:   tripID,
		Type:     req.Type,
		Severity: req.Severity,
		Location: req.Location,
		TimeSlot: req.TimeSlot,
		Details:  req.Details,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingestEventResponse{Event: event, Trigger: trigger})
}

// ListTriggers handles GET /api/v1/trips/{trip_id}/triggers
//
// Only open (unprocessed) triggers are returned.
func (h *EventHandler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	triggers, err := h.store.ListOpenTriggers(r.Context(), tripID)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "list triggers"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"triggers": triggers})
}

// ReplanHandler handles proposal generation, apply, and rollback.
type ReplanHandler struct {
	replanner *service.ReplanService
	log       zerolog.Logger
}

func NewReplanHandler(replanner *service.ReplanService, log zerolog.Logger) *ReplanHandler {
	return &ReplanHandler{replanner: replanner, log: log.With().Str("handler", "replan").Logger()}
}

// Propose handles POST /api/v1/triggers/{trigger_id}/proposals
func (h *ReplanHandler) Propose(w http.ResponseWriter, r *http.Request) {
	triggerID, err := pathUUID(r, "trigger_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	proposals, err := h.replanner.Propose(r.Context(), triggerID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"proposals": proposals})
}

type applyRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
}

// Apply handles POST /api/v1/proposals/{proposal_id}/apply
//
// The idempotency key can come from the Idempotency-Key header or the body;
// the header wins when both are present.
func (h *ReplanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	proposalID, err := pathUUID(r, "proposal_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = req.IdempotencyKey
	}

	app, err := h.replanner.Apply(r.Context(), proposalID, key)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Rollback handles POST /api/v1/applications/{application_id}/rollback
func (h *ReplanHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	applicationID, err := pathUUID(r, "application_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.replanner.Rollback(r.Context(), applicationID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rolled_back"})
}
