package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/model"
	"github.com/shiva/wayplan/internal/service"
)

// BookingHandler handles booking HTTP requests, including provider webhooks.
type BookingHandler struct {
	bookings *service.BookingService
	log      zerolog.Logger
}

func NewBookingHandler(bookings *service.BookingService, log zerolog.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, log: log.With().Str("handler", "booking").Logger()}
}

type createBookingRequest struct {
	ItemID         *uuid.UUID        `json:"item_id,omitempty"`
	ProviderID     string            `json:"provider_id"`
	ProviderItemID string            `json:"provider_item_id"`
	Date           string            `json:"date"`                // YYYY-MM-DD
	TimeSlot       *string           `json:"time_slot,omitempty"` // HH:MM
	Travelers      model.Travelers   `json:"travelers"`
	ContactInfo    model.ContactInfo `json:"contact_info"`
	IdempotencyKey string            `json:"idempotency_key"`
	ChangedBy      string            `json:"changed_by,omitempty"`
}

// Create handles POST /api/v1/trips/{trip_id}/bookings
//
// The idempotency key can come from the Idempotency-Key header or the body;
// the header wins when both are present.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = req.IdempotencyKey
	}

	booking, err := h.bookings.Create(r.Context(), service.CreateBookingInput{
		TripID:         tripID,
		ItemID:         req.ItemID,
		ProviderID:     req.ProviderID,
		ProviderItemID: req.ProviderItemID,
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
		Travelers:      req.Travelers,
		ContactInfo:    req.ContactInfo,
		IdempotencyKey: key,
		ChangedBy:      req.ChangedBy,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// Get handles GET /api/v1/bookings/{booking_id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "booking_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	booking, err := h.bookings.Get(r.Context(), bookingID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ListForTrip handles GET /api/v1/trips/{trip_id}/bookings
func (h *BookingHandler) ListForTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathUUID(r, "trip_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	bookings, err := h.bookings.ListForTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

// History handles GET /api/v1/bookings/{booking_id}/history
func (h *BookingHandler) History(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "booking_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	history, err := h.bookings.History(r.Context(), bookingID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// Retry handles POST /api/v1/bookings/{booking_id}/retry
func (h *BookingHandler) Retry(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "booking_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	booking, err := h.bookings.Retry(r.Context(), bookingID, service.CreateBookingInput{
		ItemID:         req.ItemID,
		ProviderID:     req.ProviderID,
		ProviderItemID: req.ProviderItemID,
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
		Travelers:      req.Travelers,
		ContactInfo:    req.ContactInfo,
		ChangedBy:      req.ChangedBy,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Cancel handles POST /api/v1/bookings/{booking_id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "booking_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	changedBy := r.URL.Query().Get("changed_by")
	booking, err := h.bookings.Cancel(r.Context(), bookingID, changedBy)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Alternatives handles GET /api/v1/bookings/{booking_id}/alternatives
func (h *BookingHandler) Alternatives(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathUUID(r, "booking_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	max := 3
	if raw := r.URL.Query().Get("max"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			max = n
		}
	}
	alts, err := h.bookings.FindAlternatives(r.Context(), bookingID, max)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alternatives": alts})
}

// Webhook handles POST /api/v1/webhooks/{provider_id}
//
// The raw body is handed to the provider adapter for verification and
// parsing; a 200 is returned for events we deliberately ignore.
func (h *BookingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["provider_id"]
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeValidation, err, "read webhook body"))
		return
	}
	if err := h.bookings.HandleWebhook(r.Context(), providerID, payload); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
