package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/knsh/nvrconsole/models"
)

// EventDeleter removes an event and its media from the upstream store.
type EventDeleter interface {
	DeleteEvent(ctx context.Context, ev models.Event) error
}

// Manager multiplexes review sessions across viewers. Each open session gets
// a uuid handle; the browser holds the handle and drives its own session, so
// two tabs reviewing different events never share state.
type Manager struct {
	lister  FrameLister
	deleter EventDeleter

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(lister FrameLister, deleter EventDeleter) *Manager {
	return &Manager{
		lister:   lister,
		deleter:  deleter,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session, selects ev in it, and returns its handle.
func (m *Manager) Open(ctx context.Context, ev models.Event) (string, *Session) {
	s := NewSession(m.lister)
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	s.Select(ctx, ev)
	return id, s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close closes the identified session and releases its handle.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Delete removes ev upstream. On success every session currently reviewing
// ev is returned to Idle; sessions on other events are left untouched. On
// failure nothing changes and the error is returned for the caller to
// surface explicitly (no automatic retry).
func (m *Manager) Delete(ctx context.Context, ev models.Event) error {
	if err := m.deleter.DeleteEvent(ctx, ev); err != nil {
		return fmt.Errorf("delete event %s: %w", ev.Key(), err)
	}
	key := ev.Key()
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.closeIfOpen(key)
	}
	return nil
}
