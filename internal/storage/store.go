// Package storage implements the read-merge-write services on top of the
// remote document store: content documents, analytics counters, the media
// index and the admin credential record.
//
// None of the services cache documents or hold locks. The remote repository
// is the only shared mutable resource; correctness rests on the store's
// conditional-write precondition, and each service re-reads immediately
// before writing.
package storage

import (
	"context"
	"encoding/json"

	"github.com/maruel/ghcms/internal/ghstore"
)

// DocumentStore is the slice of the remote client the services need.
// Implemented by *ghstore.Client; tests substitute an in-memory store.
type DocumentStore interface {
	// Get returns (nil, nil) when the document does not exist.
	Get(ctx context.Context, path string) (*ghstore.Document, error)
	// Put commits value as pretty-printed JSON and returns the new SHA.
	Put(ctx context.Context, path string, value any, message string) (string, error)
	// PutFile commits raw bytes.
	PutFile(ctx context.Context, path string, data []byte, message string) (string, error)
	// Configured reports whether writes can succeed at all.
	Configured() bool
}

// decodeDocument re-decodes a document's generic content into a typed
// struct. Returns false when the document is absent or its content does not
// fit the shape; callers fall back to their zero-value default, absence
// being a valid state for every aggregate document.
func decodeDocument(doc *ghstore.Document, v any) bool {
	if doc == nil {
		return false
	}
	if _, ok := doc.Content.(map[string]any); !ok {
		return false
	}
	raw, err := json.Marshal(doc.Content)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
