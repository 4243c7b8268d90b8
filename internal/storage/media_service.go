// Commits uploaded assets and appends them to the media index document.

package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/models"
	"github.com/maruel/ksid"
)

// uploadsRepoDir is where asset blobs are committed in the repository;
// uploadsPublicDir is the path the site serves them from.
const (
	uploadsRepoDir   = "public/uploads"
	uploadsPublicDir = "/uploads"
)

// MediaService uploads image assets and maintains data/media.json.
// The index is append-only: no deduplication, no ordering beyond append
// order.
type MediaService struct {
	store DocumentStore
	cfg   *Config
}

// NewMediaService creates a new media service.
func NewMediaService(store DocumentStore, cfg *Config) *MediaService {
	return &MediaService{store: store, cfg: cfg}
}

// List returns the media index, or an empty index when none exists.
func (s *MediaService) List(ctx context.Context) (*models.MediaData, error) {
	doc, err := s.store.Get(ctx, models.MediaFile)
	if err != nil {
		return nil, err
	}
	data := &models.MediaData{Uploads: []models.MediaItem{}}
	decodeDocument(doc, data)
	if data.Uploads == nil {
		data.Uploads = []models.MediaItem{}
	}
	return data, nil
}

// SaveUpload validates an image, commits its bytes to the repository, and
// appends a descriptor to the media index. The two writes are not atomic: a
// failed index write leaves an orphaned blob, which is harmless and visible
// in the commit history.
func (s *MediaService) SaveUpload(ctx context.Context, originalName, altText string, data []byte) (*models.MediaItem, error) {
	if len(data) == 0 {
		return nil, apierrors.MissingField("file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, apierrors.PayloadTooLarge(s.cfg.MaxUploadBytes)
	}
	mimeType := http.DetectContentType(data)
	if !slices.Contains(s.cfg.AllowedImageTypes, mimeType) {
		return nil, apierrors.BadRequest(fmt.Sprintf("Invalid file type %s. Allowed types: %s", mimeType, strings.Join(s.cfg.AllowedImageTypes, ", ")))
	}
	if altText == "" {
		altText = "Uploaded image"
	}

	ext := strings.ToLower(path.Ext(originalName))
	if ext == "" {
		ext = extensionFor(mimeType)
	}
	filename := fmt.Sprintf("upload-%s%s", ksid.NewID().String(), ext)

	if _, err := s.store.PutFile(ctx, uploadsRepoDir+"/"+filename, data, "Upload image: "+filename); err != nil {
		return nil, err
	}

	index, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	item := models.MediaItem{
		Filename:   uploadsPublicDir + "/" + filename,
		Alt:        altText,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	index.Uploads = append(index.Uploads, item)

	if _, err := s.store.Put(ctx, models.MediaFile, index, "Add image to media library: "+filename); err != nil {
		return nil, err
	}
	return &item, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".bin"
}
