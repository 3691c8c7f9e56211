package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"camellia/internal/drive"
	"camellia/internal/metrics"
	"camellia/internal/models"

	"github.com/google/uuid"
)

// Uploads are processed in memory; 10 MiB is plenty for a gallery photo.
const maxUploadBytes = 10 << 20

// /api/images
//
//	GET   public gallery (?category=, admin ?all=1 includes hidden)
//	POST  admin multipart upload: fields category, title, file
func (s *HTTPServer) handleImages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		activeOnly := true
		if r.URL.Query().Get("all") == "1" {
			if !s.auth.Authorize(w, r) {
				return
			}
			activeOnly = false
		}
		images, err := s.db.ListImages(r.Context(), r.URL.Query().Get("category"), activeOnly)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		if images == nil {
			images = []*models.Image{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"images": images})

	case http.MethodPost:
		if !s.auth.Authorize(w, r) {
			return
		}
		s.uploadImage(w, r)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) uploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	category := strings.TrimSpace(r.FormValue("category"))
	if category == "" {
		writeFieldErrors(w, map[string]string{"category": "category is required"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeFieldErrors(w, map[string]string{"file": "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	// Uploads always land as JPEG; the stored name is unique per upload.
	fileName := fmt.Sprintf("%s_%s.jpg",
		strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)),
		uuid.NewString()[:8])

	result, err := s.uploader.Upload(r.Context(), category, fileName, data)
	if err != nil {
		switch {
		case errors.Is(err, drive.ErrBadFormat):
			writeFieldErrors(w, map[string]string{"file": "only JPEG and PNG images are accepted"})
		case errors.Is(err, drive.ErrTooSmall):
			writeFieldErrors(w, map[string]string{"file": "image is too small"})
		case errors.Is(err, drive.ErrBadAspect):
			writeFieldErrors(w, map[string]string{"file": "image aspect ratio is out of bounds"})
		default:
			writeDomainError(w, &s.logger, err)
		}
		return
	}

	img := &models.Image{
		Category:       category,
		Title:          strings.TrimSpace(r.FormValue("title")),
		FileName:       result.FileName,
		URL:            result.URL,
		StorageBackend: result.Backend,
		DriveFileID:    result.DriveFileID,
		Width:          result.Width,
		Height:         result.Height,
		IsActive:       true,
	}
	if err := s.db.CreateImage(r.Context(), img); err != nil {
		writeDomainError(w, &s.logger, err)
		return
	}

	metrics.IncImageUpload(result.Backend)
	s.logger.Info().
		Int64("image_id", img.ID).
		Str("backend", result.Backend).
		Str("file", result.FileName).
		Msg("gallery image uploaded")

	writeJSON(w, http.StatusCreated, img)
}

// refreshImageURL swaps in the cached Drive link when one is present. The
// Drive layer re-caches URLs on upload with a 24h TTL, so the cache is
// fresher than the persisted row.
func (s *HTTPServer) refreshImageURL(ctx context.Context, img *models.Image) {
	if s.cache == nil || img.StorageBackend != models.BackendDrive {
		return
	}
	url, err := s.cache.GetURL(ctx, img.FileName)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", img.FileName).Msg("url cache lookup failed")
		return
	}
	if url != "" {
		img.URL = url
	}
}

// /api/images/{id} — GET public, DELETE admin (removes the stored bytes too).
func (s *HTTPServer) handleImageByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/images/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		img, err := s.db.GetImage(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		s.refreshImageURL(r.Context(), img)
		writeJSON(w, http.StatusOK, img)

	case http.MethodDelete:
		if !s.auth.Authorize(w, r) {
			return
		}
		img, err := s.db.GetImage(r.Context(), id)
		if err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		// Backend cleanup is best effort; the row goes away regardless so a
		// half-deleted file never resurfaces in the gallery.
		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()
		if err := s.uploader.Delete(ctx, img); err != nil {
			s.logger.Warn().Err(err).Int64("image_id", id).Msg("backend delete failed")
		}
		if err := s.db.DeleteImage(r.Context(), id); err != nil {
			writeDomainError(w, &s.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
