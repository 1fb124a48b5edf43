package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/repository"
	"github.com/shiva/wayplan/internal/service"
)

// ItineraryHandler handles itinerary generation, editing, validation, and
// version history HTTP requests.
type ItineraryHandler struct {
	store     repository.Store
	generator *service.Generator
	editor    *service.Editor
	validator *service.Validator
	log       zerolog.Logger
}

func NewItineraryHandler(store repository.Store, gen *service.Generator, ed *service.Editor, val *service.Validator, log zerolog.Logger) *ItineraryHandler {
	return &ItineraryHandler{
		store:     store,
		generator: gen,
		editor:    ed,
		validator: val,
		log:       log.With().Str("handler", "itinerary").Logger(),
	}
}

type generateRequest struct {
	POIIDs         []uuid.UUID `json:"poi_ids"`
	PreservePinned bool        `json:"preserve_pinned"`
	Incremental    bool        `json:"incremental"`
	ChangedBy      string      `json:"changed_by,omitempty"`
}

// Generate handles POST /api/v1/trips/{trip_id}/itinerary/generate
func (h *ItineraryHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	days, err := h.generator.Generate(r.Context(), service.GenerateInput{
		TripID:         tripID,
		POIIDs:         req.POIIDs,
		PreservePinned: req.PreservePinned,
		Incremental:    req.Incremental,
		ChangedBy:      req.ChangedBy,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"days": days})
}

// itineraryResponse is the current itinerary grouped by day.
type itineraryResponse struct {
	TripID  uuid.UUID            `json:"trip_id"`
	Version int                  `json:"version"`
	Days    []model.ItineraryDay `json:"days"`
}

// Get handles GET /api/v1/trips/{trip_id}/itinerary
func (h *ItineraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	itin, err := h.store.GetItinerary(r.Context(), tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, h.log, apperr.New(apperr.CodeNotFound, "trip %s has no itinerary", tripID))
			return
		}
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "load itinerary"))
		return
	}
	items, err := h.store.ListItems(r.Context(), tripID)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "load items"))
		return
	}

	numDays := 0
	for _, it := range items {
		if it.Day > numDays {
			numDays = it.Day
		}
	}
	writeJSON(w, http.StatusOK, itineraryResponse{
		TripID:  tripID,
		Version: itin.Version,
		Days:    model.SnapshotDays(items, numDays),
	})
}

// Validate handles POST /api/v1/trips/{trip_id}/itinerary/validate
func (h *ItineraryHandler) Validate(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	report, err := h.validator.Validate(r.Context(), tripID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type reorderRequest struct {
	Day        int         `json:"day"`
	OrderedIDs []uuid.UUID `json:"ordered_ids"`
	ChangedBy  string      `json:"changed_by,omitempty"`
}

// Reorder handles POST /api/v1/trips/{trip_id}/itinerary/reorder
func (h *ItineraryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.editor.Reorder(r.Context(), tripID, req.Day, req.OrderedIDs, req.ChangedBy); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeDay(w, r, tripID, req.Day)
}

type togglePinRequest struct {
	Pinned    bool   `json:"pinned"`
	ChangedBy string `json:"changed_by,omitempty"`
}

// TogglePin handles POST /api/v1/trips/{trip_id}/items/{item_id}/pin
func (h *ItineraryHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	tripID, itemID, err := h.tripItemIDs(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req togglePinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.editor.TogglePin(r.Context(), tripID, itemID, req.Pinned, req.ChangedBy); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pinned": req.Pinned})
}

type setStartTimeRequest struct {
	StartTime string `json:"start_time"` // HH:MM
	ChangedBy string `json:"changed_by,omitempty"`
}

// SetStartTime handles POST /api/v1/trips/{trip_id}/items/{item_id}/start-time
func (h *ItineraryHandler) SetStartTime(w http.ResponseWriter, r *http.Request) {
	tripID, itemID, err := h.tripItemIDs(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req setStartTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.editor.SetStartTime(r.Context(), tripID, itemID, req.StartTime, req.ChangedBy); err != nil {
		writeError(w, h.log, err)
		return
	}
	item, err := h.store.GetItem(r.Context(), itemID)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "reload item"))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /api/v1/trips/{trip_id}/items/{item_id}
func (h *ItineraryHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	tripID, itemID, err := h.tripItemIDs(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	changedBy := r.URL.Query().Get("changed_by")
	if err := h.editor.Remove(r.Context(), tripID, itemID, changedBy); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	Day       int       `json:"day"`
	POIID     uuid.UUID `json:"poi_id"`
	StartTime *string   `json:"start_time,omitempty"` // HH:MM
	ChangedBy string    `json:"changed_by,omitempty"`
}

// AddItem handles POST /api/v1/trips/{trip_id}/items
func (h *ItineraryHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	item, err := h.editor.Add(r.Context(), tripID, req.Day, req.POIID, req.StartTime, req.ChangedBy)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ListVersions handles GET /api/v1/trips/{trip_id}/itinerary/versions
func (h *ItineraryHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	versions, err := h.store.ListVersions(r.Context(), tripID)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "list versions"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

// GetVersion handles GET /api/v1/trips/{trip_id}/itinerary/versions/{version}
func (h *ItineraryHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	raw := mux.Vars(r)["version"]
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		writeError(w, h.log, apperr.New(apperr.CodeValidation, "invalid version %q", raw))
		return
	}
	v, err := h.store.GetVersion(r.Context(), tripID, version)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, h.log, apperr.New(apperr.CodeNotFound, "version %d not found", version))
			return
		}
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "load version"))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ─── Helpers ────────────────────────────────────────────────

func (h *ItineraryHandler) tripItemIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	itemID, err := pathUUID(r, "item_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return tripID, itemID, nil
}

func (h *ItineraryHandler) writeDay(w http.ResponseWriter, r *http.Request, tripID uuid.UUID, day int) {
	items, err := h.store.ListDayItems(r.Context(), tripID, day)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "reload day"))
		return
	}
	writeJSON(w, http.StatusOK, model.ItineraryDay{Day: day, Items: items})
}
