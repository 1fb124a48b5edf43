package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/service"
)

// TripHandler handles trip lifecycle HTTP requests.
type TripHandler struct {
	trips *service.TripService
	log   zerolog.Logger
}

func NewTripHandler(trips *service.TripService, log zerolog.Logger) *TripHandler {
	return &TripHandler{trips: trips, log: log.With().Str("handler", "trip").Logger()}
}

type createTripRequest struct {
	OwnerUserID    *uuid.UUID            `json:"owner_user_id,omitempty"`
	GuestSessionID *uuid.UUID            `json:"guest_session_id,omitempty"`
	Preferences    model.TripPreferences `json:"preferences"`
}

// CreateTrip handles POST /api/v1/trips
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	trip, err := h.trips.CreateTrip(r.Context(), service.CreateTripInput{
		OwnerUserID:    req.OwnerUserID,
		GuestSessionID: req.GuestSessionID,
		Preferences:    req.Preferences,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// GetTrip handles GET /api/v1/trips/{trip_id}
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	trip, err := h.trips.GetTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// GetPreferences handles GET /api/v1/trips/{trip_id}/preferences
func (h *TripHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	prefs, err := h.trips.GetPreferences(r.Context(), tripID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/v1/trips/{trip_id}/preferences
func (h *TripHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var prefs model.TripPreferences
	if err := decodeJSON(r, &prefs); err != nil {
		writeError(w, h.log, err)
		return
	}
	prefs.TripID = tripID
	if err := h.trips.UpdatePreferences(r.Context(), prefs); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type updateStatusRequest struct {
	Status model.TripStatus `json:"status"`
}

// UpdateStatus handles PATCH /api/v1/trips/{trip_id}/status
func (h *TripHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.Status == "" {
		writeError(w, h.log, apperr.New(apperr.CodeValidation, "status is required"))
		return
	}
	if err := h.trips.UpdateStatus(r.Context(), tripID, req.Status); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

// DeleteTrip handles DELETE /api/v1/trips/{trip_id}
func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.trips.DeleteTrip(r.Context(), tripID); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
