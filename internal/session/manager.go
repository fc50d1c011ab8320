package session

import (
	"sync"
	"time"

	"github.com/mcncl/jsonbuilder/internal/errors"
)

type entry struct {
	mu       sync.Mutex
	session  *Session
	lastSeen time.Time
}

// Manager handles session creation, lookup, and cleanup. Access to a single
// session goes through With, which serializes callers.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	maxAge      time.Duration
	idleTimeout time.Duration
	opts        []Option
}

// NewManager creates a session manager with the given timeouts. opts are
// applied to every session it creates.
func NewManager(maxAge, idleTimeout time.Duration, opts ...Option) *Manager {
	return &Manager{
		sessions:    make(map[string]*entry),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		opts:        opts,
	}
}

// Create creates a new session and returns its ID.
func (m *Manager) Create(opts ...Option) string {
	s := New(append(append([]Option{}, m.opts...), opts...)...)
	m.mu.Lock()
	m.sessions[s.ID] = &entry{session: s, lastSeen: time.Now()}
	m.mu.Unlock()
	return s.ID
}

func (m *Manager) expired(e *entry, now time.Time) bool {
	return now.Sub(e.session.CreatedAt) > m.maxAge || now.Sub(e.lastSeen) > m.idleTimeout
}

// With runs fn with exclusive access to the session. It fails with
// ErrSessionNotFound when the session does not exist or has expired.
func (m *Manager) With(id string, fn func(*Session) error) error {
	now := time.Now()
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok && m.expired(e, now) {
		delete(m.sessions, id)
		ok = false
	}
	if ok {
		e.lastSeen = now
	}
	m.mu.Unlock()
	if !ok {
		return errors.NewSessionError("session '"+id+"' not found", errors.ErrSessionNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Exists reports whether a live session has the given ID
func (m *Manager) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	return ok && !m.expired(e, time.Now())
}

// Remove deletes a session.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of stored sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup() int {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
