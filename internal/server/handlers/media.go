// Handles image uploads and the media library index.

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/models"
	"github.com/maruel/ghcms/internal/server/reqctx"
	"github.com/maruel/ghcms/internal/storage"
)

// MediaHandler handles media-related HTTP requests.
type MediaHandler struct {
	media          *storage.MediaService
	maxUploadBytes int64
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(media *storage.MediaService, maxUploadBytes int64) *MediaHandler {
	return &MediaHandler{media: media, maxUploadBytes: maxUploadBytes}
}

// MediaListResponse is the media library index.
type MediaListResponse struct {
	Uploads []models.MediaItem `json:"uploads"`
}

// List returns the media index, empty for a fresh site.
func (h *MediaHandler) List(ctx context.Context, _ struct{}) (*MediaListResponse, error) {
	data, err := h.media.List(ctx)
	if err != nil {
		return nil, err
	}
	return &MediaListResponse{Uploads: data.Uploads}, nil
}

// Upload handles image uploading (multipart/form-data). This is a raw
// http.HandlerFunc because it handles multipart forms.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if reqctx.Session(ctx) == nil {
		writeErrorResponse(w, apierrors.Unauthorized())
		return
	}

	// Leave headroom over the content limit; the service enforces the exact cap.
	if err := r.ParseMultipartForm(h.maxUploadBytes + 1<<20); err != nil {
		writeErrorResponse(w, apierrors.BadRequest("Failed to parse multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, apierrors.MissingField("file"))
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close uploaded file", "err", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorResponse(w, apierrors.Internal("Failed to read uploaded file"))
		return
	}

	item, err := h.media.SaveUpload(ctx, header.Filename, r.FormValue("alt"), data)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(item); err != nil {
		slog.Error("Failed to write upload response", "err", err)
	}
}
