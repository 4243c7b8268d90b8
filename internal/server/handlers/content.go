// Handles reading and editing the named JSON content documents.

package handlers

import (
	"context"

	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/server/reqctx"
	"github.com/maruel/ghcms/internal/storage"
)

// ContentHandler handles content document requests.
type ContentHandler struct {
	content *storage.ContentService
}

// NewContentHandler creates a new content handler.
func NewContentHandler(content *storage.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// GetDocumentRequest names the document to read.
type GetDocumentRequest struct {
	Name string `path:"name"`
}

// UpdateDocumentRequest applies one edit to a document. When Path is set the
// value is written at that dotted path; otherwise Content replaces the whole
// document. Section only decorates the commit message.
type UpdateDocumentRequest struct {
	Name    string `json:"-" path:"name"`
	Path    string `json:"path,omitempty"`
	Value   any    `json:"value,omitempty"`
	Content any    `json:"content,omitempty"`
	Section string `json:"section,omitempty"`
}

// DocumentResponse carries a document's decoded content. Content is null for
// a document that has never been written; clients render their fallback.
type DocumentResponse struct {
	Name    string `json:"name"`
	Content any    `json:"content"`
}

// Get reads a named document.
func (h *ContentHandler) Get(ctx context.Context, req GetDocumentRequest) (*DocumentResponse, error) {
	content, err := h.content.Get(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{Name: req.Name, Content: content}, nil
}

// Update edits a named document. A lost conditional write surfaces as 409 so
// the editor can reload and retry; nothing is retried server-side.
func (h *ContentHandler) Update(ctx context.Context, req UpdateDocumentRequest) (*DocumentResponse, error) {
	if reqctx.Session(ctx) == nil {
		return nil, apierrors.Unauthorized()
	}
	if req.Path != "" {
		updated, err := h.content.SetPath(ctx, req.Name, req.Path, req.Value, req.Section)
		if err != nil {
			return nil, err
		}
		return &DocumentResponse{Name: req.Name, Content: updated}, nil
	}
	if req.Content == nil {
		return nil, apierrors.MissingField("path or content")
	}
	if err := h.content.Replace(ctx, req.Name, req.Content, req.Section); err != nil {
		return nil, err
	}
	return &DocumentResponse{Name: req.Name, Content: req.Content}, nil
}
