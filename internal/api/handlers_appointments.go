package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"camellia/internal/database"
	"camellia/internal/models"
	"camellia/internal/service"
)

type bookingRequestBody struct {
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
	ClientEmail string    `json:"client_email"`
	ServiceID   int64     `json:"service_id"`
	StartAt     time.Time `json:"start_at"`
	Notes       string    `json:"notes"`
}

// /api/appointments
//
//	POST  public booking form (rate limited per client IP)
//	GET   admin list with ?status=&page=&per_page=
func (s *HTTPServer) handleAppointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createAppointment(w, r)
	case http.MethodGet:
		if !s.auth.Authorize(w, r) {
			return
		}
		s.listAppointments(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createAppointment(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		allowed, err := s.cache.CheckRateLimit(r.Context(), clientIP(r),
			models.BookingRateLimit, models.BookingRateWindow*time.Second)
		if err != nil {
			s.logger.Warn().Err(err).Msg("booking rate limit check failed")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many booking requests, try again later")
			return
		}
	}

	var body bookingRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	appointment, err := s.bookings.RequestAppointment(r.Context(), service.BookingRequest{
		ClientName:  body.ClientName,
		ClientPhone: body.ClientPhone,
		ClientEmail: body.ClientEmail,
		ServiceID:   body.ServiceID,
		StartAt:     body.StartAt,
		Notes:       body.Notes,
	})
	if err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, appointment)
}

func (s *HTTPServer) listAppointments(w http.ResponseWriter, r *http.Request) {
	params := listParamsFromQuery(r)
	if params.Status != "" && !models.ValidStatus(params.Status) {
		writeFieldErrors(w, map[string]string{"status": "unknown status"})
		return
	}

	appointments, total, err := s.db.ListAppointmentsPaginated(r.Context(), params)
	if err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}
	if appointments == nil {
		appointments = []*models.Appointment{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": appointments,
		"total":        total,
		"page":         params.Page,
		"per_page":     params.PerPage,
	})
}

type appointmentPatchBody struct {
	Status  string     `json:"status,omitempty"`
	StartAt *time.Time `json:"start_at,omitempty"`
	Version int64      `json:"version"`
}

// /api/appointments/{id} — admin only.
//
//	GET    fetch one
//	PATCH  status change or reschedule, guarded by the row version
func (s *HTTPServer) handleAppointmentByID(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(w, r) {
		return
	}

	id, err := pathID(r.URL.Path, "/api/appointments/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		appointment, err := s.db.GetAppointment(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appointment)

	case http.MethodPatch:
		var body appointmentPatchBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if body.Status == "" && body.StartAt == nil {
			writeFieldErrors(w, map[string]string{"status": "status or start_at is required"})
			return
		}

		if body.StartAt != nil {
			if err := s.bookings.RescheduleAppointment(r.Context(), id, body.Version, *body.StartAt); err != nil {
				writeDomainError(w, &s.logger, err)
				return
			}
		}
		if body.Status != "" {
			if err := s.applyStatus(r, id, body.Version, body.Status); err != nil {
				writeDomainError(w, &s.logger, err)
				return
			}
		}

		appointment, err := s.db.GetAppointment(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, appointment)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) applyStatus(r *http.Request, id, version int64, status string) error {
	switch status {
	case models.StatusConfirmed:
		return s.bookings.ConfirmAppointment(r.Context(), id, version)
	case models.StatusCancelled:
		return s.bookings.CancelAppointment(r.Context(), id, version)
	case models.StatusCompleted:
		return s.bookings.CompleteAppointment(r.Context(), id, version)
	default:
		return &service.ValidationError{Fields: map[string]string{"status": "unknown status"}}
	}
}

// GET /api/appointments/export?year=2026&month=9 — admin xlsx download.
func (s *HTTPServer) handleAppointmentsExport(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		writeFieldErrors(w, map[string]string{"month": "month must be 1-12"})
		return
	}

	fileName := fmt.Sprintf("appointments_%04d-%02d.xlsx", year, month)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	loc := s.engine.Hours().Location
	if err := s.exporter.WriteMonth(r.Context(), w, year, time.Month(month), loc); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
	}
}

func listParamsFromQuery(r *http.Request) database.ListParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return database.ListParams{
		Page:    page,
		PerPage: perPage,
		Status:  r.URL.Query().Get("status"),
	}
}
