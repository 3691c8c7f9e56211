package api

import (
	"net/http"

	"camellia/internal/models"
)

// /api/notifications — admin inbox of booking and review events.
// GET with ?unread=1 filters to the unread ones.
func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "1"
	params := listParamsFromQuery(r)

	notifications, total, err := s.db.ListNotifications(r.Context(), unreadOnly, params)
	if err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"total":         total,
		"page":          params.Page,
		"per_page":      params.PerPage,
	})
}

// PATCH /api/notifications/{id} marks a notification read.
func (s *HTTPServer) handleNotificationByID(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(w, r) {
		return
	}
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := pathID(r.URL.Path, "/api/notifications/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.db.MarkNotificationRead(r.Context(), id); err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
