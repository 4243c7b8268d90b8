// Package session tracks active login sessions in process memory.
//
// A session is created on login, referenced from the JWT "sid" claim, and
// destroyed on logout. Tokens whose session is gone are rejected even when
// the signature is still valid, so logout actually revokes access.
package session

import (
	"sync"
	"time"

	"github.com/maruel/ksid"
)

// Session is one authenticated login.
type Session struct {
	ID        ksid.ID
	Username  string
	ClientIP  string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Registry holds the active sessions. Sessions do not survive a process
// restart; editors simply log in again.
type Registry struct {
	mu       sync.RWMutex
	sessions map[ksid.ID]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[ksid.ID]*Session)}
}

// Create registers a new session with the given lifetime.
func (r *Registry) Create(username, clientIP, userAgent string, ttl time.Duration) *Session {
	now := time.Now()
	s := &Session{
		ID:        ksid.NewID(),
		Username:  username,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session, or nil when it is unknown or expired. Expired
// sessions are dropped on first access.
func (r *Registry) Get(id ksid.ID) *Session {
	r.mu.RLock()
	s := r.sessions[id]
	r.mu.RUnlock()
	if s == nil {
		return nil
	}
	if time.Now().After(s.ExpiresAt) {
		r.Delete(id)
		return nil
	}
	return s
}

// Delete removes a session. Deleting an unknown ID is a no-op.
func (r *Registry) Delete(id ksid.ID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Count returns the number of registered sessions, expired ones included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
