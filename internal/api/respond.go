package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"camellia/internal/database"
	"camellia/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeFieldErrors renders a 400 with per-field validation messages.
func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// writeDomainError maps service and database errors onto HTTP statuses.
// Unexpected errors become an opaque 500 and are logged server-side.
func writeDomainError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		writeFieldErrors(w, validation.Fields)
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrSlotTaken):
		writeError(w, http.StatusConflict, "time slot is no longer available")
	case errors.Is(err, database.ErrVersionConflict):
		writeError(w, http.StatusConflict, "record was modified, reload and retry")
	case errors.Is(err, database.ErrPastDate):
		writeFieldErrors(w, map[string]string{"start_at": "date is in the past"})
	case errors.Is(err, database.ErrDateTooFar):
		writeFieldErrors(w, map[string]string{"start_at": "date is beyond the booking horizon"})
	case errors.Is(err, database.ErrClosedDay):
		writeFieldErrors(w, map[string]string{"start_at": "salon is closed on this day"})
	default:
		logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
