// Serves and edits the named content documents (pages) of the site.

package storage

import (
	"context"
	"fmt"

	apierrors "github.com/maruel/ghcms/internal/errors"
	"github.com/maruel/ghcms/internal/jsonpath"
	"github.com/maruel/ghcms/internal/models"
)

// contentDocuments maps the public document names to repository paths.
// profile.json is deliberately absent: it holds the credential hash and is
// only reachable through ProfileService.
var contentDocuments = map[string]string{
	"home":      "data/home.json",
	"about":     "data/about.json",
	"posts":     "data/posts.json",
	"programs":  "data/programs.json",
	"donate":    "data/donate.json",
	"media":     models.MediaFile,
	"analytics": models.AnalyticsFile,
}

// editableDocuments are the page documents writable through the editing
// API. The aggregate documents (media, analytics) have their own writers.
var editableDocuments = map[string]bool{
	"home":     true,
	"about":    true,
	"posts":    true,
	"programs": true,
	"donate":   true,
}

// ContentService reads page content and applies editor updates.
//
// Writes surface CONFLICT to the editor when a concurrent writer wins; the
// editor decides whether to retry from fresh content. Nothing is retried
// here.
type ContentService struct {
	store DocumentStore
}

// NewContentService creates a new content service.
func NewContentService(store DocumentStore) *ContentService {
	return &ContentService{store: store}
}

// Get returns the decoded document, or nil when it has never been written.
// Pages render a fallback for nil; absence is not an error.
func (s *ContentService) Get(ctx context.Context, name string) (any, error) {
	path, ok := contentDocuments[name]
	if !ok {
		return nil, apierrors.NotFound("document " + name)
	}
	doc, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return doc.Content, nil
}

// SetPath reads the document, sets value at the dotted path, and writes the
// result back. A document that does not exist yet starts from an empty
// object. Returns the updated document.
func (s *ContentService) SetPath(ctx context.Context, name, path string, value any, section string) (any, error) {
	repoPath, ok := contentDocuments[name]
	if !ok || !editableDocuments[name] {
		return nil, apierrors.NotFound("document " + name)
	}

	doc, err := s.store.Get(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	var tree any = map[string]any{}
	if doc != nil {
		tree = doc.Content
	}

	updated, err := jsonpath.Set(tree, path, value)
	if err != nil {
		return nil, apierrors.BadRequest(err.Error())
	}

	if _, err := s.store.Put(ctx, repoPath, updated, commitMessage(name, section)); err != nil {
		return nil, err
	}
	return updated, nil
}

// Replace writes a whole document, the path editors use after batching
// several in-memory updates.
func (s *ContentService) Replace(ctx context.Context, name string, content any, section string) error {
	repoPath, ok := contentDocuments[name]
	if !ok || !editableDocuments[name] {
		return apierrors.NotFound("document " + name)
	}
	_, err := s.store.Put(ctx, repoPath, content, commitMessage(name, section))
	return err
}

func commitMessage(name, section string) string {
	if section == "" {
		return fmt.Sprintf("Update content for %s", name)
	}
	return fmt.Sprintf("Update content for %s section on %s page", section, name)
}
