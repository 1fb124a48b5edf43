// Package handler contains the HTTP request handlers for the trip planning
// API. Handlers decode and validate input, call one service, and translate
// error codes to HTTP statuses; all domain logic lives in the services.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps an error's code to an HTTP status and writes the body.
// Unclassified errors are logged and surfaced as 500.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	code, ok := apperr.CodeOf(err)
	if !ok {
		log.Error().Err(err).Msg("unclassified handler error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
		return
	}

	status := http.StatusInternalServerError
	switch code {
	case apperr.CodeValidation:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeConflict, apperr.CodeIdempotencyConflict, apperr.CodeRollbackExpired:
		status = http.StatusConflict
	case apperr.CodeBookingFailed:
		status = http.StatusUnprocessableEntity
	case apperr.CodeProviderError:
		status = http.StatusBadGateway
	case apperr.CodeReplanFailed:
		status = http.StatusUnprocessableEntity
	case apperr.CodeStorageUnavailable:
		status = http.StatusServiceUnavailable
	}

	var msg string
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	writeJSON(w, status, errorBody{Error: string(code), Message: msg})
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	return nil
}

// pathUUID parses the named mux path variable as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.CodeValidation, "invalid %s %q: must be a uuid", name, raw)
	}
	return id, nil
}
