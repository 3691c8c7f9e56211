package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"camellia/internal/models"
)

// /api/services
//
//	GET   public catalog (?category_id=&all=1 for admin to include inactive)
//	POST  admin create
func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categoryID, _ := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64)
		activeOnly := true
		if r.URL.Query().Get("all") == "1" {
			if !s.auth.Authorize(w, r) {
				return
			}
			activeOnly = false
		}
		services, err := s.db.ListServices(r.Context(), categoryID, activeOnly)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		if services == nil {
			services = []*models.Service{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})

	case http.MethodPost:
		if !s.auth.Authorize(w, r) {
			return
		}
		var svc models.Service
		if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if fields := validateService(&svc); len(fields) > 0 {
			writeFieldErrors(w, fields)
			return
		}
		if err := s.db.CreateService(r.Context(), &svc); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, &svc)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/services/{id}
//
//	GET     public detail
//	PUT     admin update
//	DELETE  admin deactivate (history keeps referencing the row)
func (s *HTTPServer) handleServiceByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/services/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		svc, err := s.db.GetService(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, svc)

	case http.MethodPut:
		if !s.auth.Authorize(w, r) {
			return
		}
		var svc models.Service
		if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if fields := validateService(&svc); len(fields) > 0 {
			writeFieldErrors(w, fields)
			return
		}
		svc.ID = id
		if err := s.db.UpdateService(r.Context(), &svc); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, &svc)

	case http.MethodDelete:
		if !s.auth.Authorize(w, r) {
			return
		}
		if err := s.db.DeactivateService(r.Context(), id); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func validateService(svc *models.Service) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(svc.Name) == "" {
		fields["name"] = "name is required"
	}
	if svc.DurationMinutes < 0 {
		fields["duration_minutes"] = "duration must not be negative"
	}
	if svc.Price < 0 {
		fields["price"] = "price must not be negative"
	}
	return fields
}

// /api/categories — GET is public, POST is admin.
func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := s.db.ListCategories(r.Context())
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		if categories == nil {
			categories = []*models.Category{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})

	case http.MethodPost:
		if !s.auth.Authorize(w, r) {
			return
		}
		var c models.Category
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if strings.TrimSpace(c.Name) == "" {
			writeFieldErrors(w, map[string]string{"name": "name is required"})
			return
		}
		if c.Slug == "" {
			c.Slug = slugify(c.Name)
		}
		if err := s.db.CreateCategory(r.Context(), &c); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, &c)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// /api/categories/{id} — GET public, PUT/DELETE admin.
func (s *HTTPServer) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/categories/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.db.GetCategory(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)

	case http.MethodPut:
		if !s.auth.Authorize(w, r) {
			return
		}
		var c models.Category
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if strings.TrimSpace(c.Name) == "" {
			writeFieldErrors(w, map[string]string{"name": "name is required"})
			return
		}
		c.ID = id
		if c.Slug == "" {
			c.Slug = slugify(c.Name)
		}
		if err := s.db.UpdateCategory(r.Context(), &c); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, &c)

	case http.MethodDelete:
		if !s.auth.Authorize(w, r) {
			return
		}
		if err := s.db.DeleteCategory(r.Context(), id); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	var b strings.Builder
	for _, r := range slug {
		if r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
