package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/maruel/ghcms/internal/ghstore"
)

// memStore is an in-memory DocumentStore. Values go through a JSON
// round-trip on Put so documents come back in the generic representation,
// exactly as the real client returns them.
type memStore struct {
	mu       sync.Mutex
	docs     map[string]any
	files    map[string][]byte
	rev      int
	putErr   error // returned by the next Put/PutFile when set
	putCount int
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]any{}, files: map[string][]byte{}}
}

func (m *memStore) Configured() bool { return true }

func (m *memStore) Get(_ context.Context, path string) (*ghstore.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.docs[path]
	if !ok {
		return nil, nil
	}
	return &ghstore.Document{Content: content, SHA: fmt.Sprintf("sha-%d", m.rev)}, nil
}

func (m *memStore) Put(_ context.Context, path string, value any, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		err := m.putErr
		m.putErr = nil
		return "", err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	var content any
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", err
	}
	m.rev++
	m.putCount++
	m.docs[path] = content
	return fmt.Sprintf("sha-%d", m.rev), nil
}

func (m *memStore) PutFile(_ context.Context, path string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		err := m.putErr
		m.putErr = nil
		return "", err
	}
	m.rev++
	m.files[path] = data
	return fmt.Sprintf("sha-%d", m.rev), nil
}

// seed stores a document from a JSON literal.
func (m *memStore) seed(t *testing.T, path, literal string) {
	t.Helper()
	var content any
	if err := json.Unmarshal([]byte(literal), &content); err != nil {
		t.Fatalf("bad seed for %s: %v", path, err)
	}
	m.mu.Lock()
	m.docs[path] = content
	m.mu.Unlock()
}
