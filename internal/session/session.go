// Package session models the external identity capability: who is
// signed in, and a stream of sign-in/sign-out events other components
// subscribe to.
package session

import (
	"context"
	"log/slog"
	"sync"
)

// Session identifies the signed-in user.
type Session struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Event is a sign-in or sign-out notification. Session is nil after a
// sign-out.
type Event struct {
	Session *Session
}

// Provider is the identity capability the sync adapter consumes.
type Provider interface {
	Current() (Session, bool)
	Subscribe() <-chan Event
}

// Manager is an in-process Provider driven by the HTTP sign-in and
// sign-out endpoints.
type Manager struct {
	mu      sync.Mutex
	current *Session
	subs    []chan Event
}

func NewManager() *Manager {
	return &Manager{}
}

// SignIn establishes a session and notifies subscribers. Signing in
// while already signed in re-enters the signed-in state, the same way
// the identity provider's callback may fire repeatedly.
func (m *Manager) SignIn(ctx context.Context, s Session) error {
	m.mu.Lock()
	cp := s
	m.current = &cp
	m.broadcastLocked(ctx, Event{Session: &cp})
	m.mu.Unlock()
	return nil
}

// SignOut clears the session and notifies subscribers. A no-op when
// nobody is signed in.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.current != nil {
		m.current = nil
		m.broadcastLocked(ctx, Event{})
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Subscribe returns a channel delivering future session events. The
// channel is buffered; a subscriber that falls far behind loses the
// oldest undelivered event, which the next one supersedes anyway.
func (m *Manager) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *Manager) broadcastLocked(ctx context.Context, ev Event) {
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
				slog.WarnContext(ctx, "session event dropped, subscriber not draining")
			}
		}
	}
}
