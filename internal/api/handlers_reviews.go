package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"camellia/internal/events"
	"camellia/internal/models"
)

type reviewRequestBody struct {
	AuthorName string `json:"author_name"`
	Rating     int    `json:"rating"`
	Text       string `json:"text"`
}

// /api/reviews
//
//	GET   public approved reviews (admin ?all=1 sees pending ones too)
//	POST  public review submission, held for moderation
func (s *HTTPServer) handleReviews(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		approvedOnly := true
		if r.URL.Query().Get("all") == "1" {
			if !s.auth.Authorize(w, r) {
				return
			}
			approvedOnly = false
		}
		params := listParamsFromQuery(r)
		reviews, total, err := s.db.ListReviewsPaginated(r.Context(), approvedOnly, params)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		if reviews == nil {
			reviews = []*models.Review{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"reviews":  reviews,
			"total":    total,
			"page":     params.Page,
			"per_page": params.PerPage,
		})

	case http.MethodPost:
		var body reviewRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		fields := map[string]string{}
		if strings.TrimSpace(body.AuthorName) == "" {
			fields["author_name"] = "name is required"
		}
		if body.Rating < 1 || body.Rating > 5 {
			fields["rating"] = "rating must be 1-5"
		}
		if strings.TrimSpace(body.Text) == "" {
			fields["text"] = "text is required"
		}
		if len(fields) > 0 {
			writeFieldErrors(w, fields)
			return
		}

		review := &models.Review{
			AuthorName: strings.TrimSpace(body.AuthorName),
			Rating:     body.Rating,
			Text:       strings.TrimSpace(body.Text),
		}
		if err := s.db.CreateReview(r.Context(), review); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		s.publishReviewEvent(review)
		writeJSON(w, http.StatusCreated, review)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type reviewPatchBody struct {
	IsApproved bool `json:"is_approved"`
}

// /api/reviews/{id} — admin moderation: PATCH approval, DELETE removal.
func (s *HTTPServer) handleReviewByID(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(w, r) {
		return
	}

	id, err := pathID(r.URL.Path, "/api/reviews/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		review, err := s.db.GetReview(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, review)

	case http.MethodPatch:
		var body reviewPatchBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := s.db.SetReviewApproval(r.Context(), id, body.IsApproved); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		review, err := s.db.GetReview(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, review)

	case http.MethodDelete:
		if err := s.db.DeleteReview(r.Context(), id); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) publishReviewEvent(review *models.Review) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(events.EventReviewSubmitted, review); err != nil {
		s.logger.Error().Err(err).Msg("publish review event failed")
	}
}
