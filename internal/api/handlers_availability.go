package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"camellia/internal/schedule"
)

type slotResponse struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

func slotResponses(slots []schedule.Interval) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse{
			Date:      s.Start.Format("2006-01-02"),
			StartTime: s.Start.Format("15:04"),
			EndTime:   s.End.Format("15:04"),
			Available: true,
		})
	}
	return out
}

// GET /api/availability?date=2026-09-01&service_id=3
// Duration comes from the service when service_id is given, otherwise from
// the explicit duration parameter (minutes), otherwise the default.
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeFieldErrors(w, map[string]string{"date": "date is required"})
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, s.engine.Hours().Location)
	if err != nil {
		writeFieldErrors(w, map[string]string{"date": "expected YYYY-MM-DD"})
		return
	}

	var duration time.Duration
	if serviceID, _ := strconv.ParseInt(r.URL.Query().Get("service_id"), 10, 64); serviceID > 0 {
		svc, err := s.db.GetService(r.Context(), serviceID)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		duration = time.Duration(svc.DurationMinutes) * time.Minute
	} else if minutes, _ := strconv.Atoi(r.URL.Query().Get("duration")); minutes > 0 {
		duration = time.Duration(minutes) * time.Minute
	}

	slots, err := s.engine.AvailableSlots(r.Context(), day, duration)
	if err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, slotResponses(slots))
}

// GET /api/availability/dates?year=2026&month=9
func (s *HTTPServer) handleAvailableDates(w http.ResponseWriter, r *http.Request) {
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

	dates, err := s.engine.AvailableDates(r.Context(), year, time.Month(month), now)
	if err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}

	writeJSON(w, http.StatusOK, dates)
}

type overrideRequest struct {
	Date        string `json:"date"`
	IsAvailable bool   `json:"is_available"`
}

// Admin schedule overrides.
//
//	GET  /api/availability/admin?from=...&to=...  list overrides
//	POST /api/availability/admin                  open or close a day
func (s *HTTPServer) handleOverrides(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(w, r) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		loc := s.engine.Hours().Location
		from, err := parseDateParam(r, "from", time.Now().In(loc))
		if err != nil {
			writeFieldErrors(w, map[string]string{"from": "expected YYYY-MM-DD"})
			return
		}
		to, err := parseDateParam(r, "to", from.AddDate(0, 3, 0))
		if err != nil {
			writeFieldErrors(w, map[string]string{"to": "expected YYYY-MM-DD"})
			return
		}
		overrides, err := s.db.OverridesByRange(r.Context(), from, to)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"overrides": overrides})

	case http.MethodPost:
		var req overrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeFieldErrors(w, map[string]string{"date": "expected YYYY-MM-DD"})
			return
		}
		override, err := s.db.SetDayAvailability(r.Context(), day, req.IsAvailable)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, override)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// DELETE /api/availability/admin/{id} removes an override, restoring the
// weekly schedule for that day.
func (s *HTTPServer) handleOverrideByID(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(w, r) {
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := pathID(r.URL.Path, "/api/availability/admin/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.db.DeleteOverride(r.Context(), id); err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseDateParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", value)
}

// pathID extracts the numeric trailing segment of a REST path.
func pathID(path, prefix string) (int64, error) {
	raw := strings.TrimPrefix(path, prefix)
	raw = strings.Trim(raw, "/")
	return strconv.ParseInt(raw, 10, 64)
}
