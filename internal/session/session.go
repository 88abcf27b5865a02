// Package session tracks which subject each chat user has selected.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/p-n-ai/pai-ask/internal/knowledge"
)

// State is the subject-selection state of a session.
type State string

const (
	Unselected      State = "unselected"
	ScienceSelected State = "science_selected"
	MathsSelected   State = "maths_selected"
)

// Session holds the selected subject. The zero value is Unselected.
type Session struct {
	Subject   knowledge.SubjectID `json:"subject,omitempty"`
	UpdatedAt time.Time           `json:"updated_at,omitzero"`
}

// State returns the session's position in the selection state machine.
func (s Session) State() State {
	switch s.Subject {
	case knowledge.Science:
		return ScienceSelected
	case knowledge.Maths:
		return MathsSelected
	default:
		return Unselected
	}
}

// Select returns a copy of s with subject selected. Selecting is the only
// transition; a selected subject is only ever replaced by another selection.
func (s Session) Select(subject knowledge.SubjectID) Session {
	s.Subject = subject
	s.UpdatedAt = time.Now()
	return s
}

// Store persists sessions by chat user id.
type Store interface {
	// Get returns the user's session, or a zero Session if none exists.
	Get(ctx context.Context, userID string) (Session, error)
	Put(ctx context.Context, userID string, s Session) error
}

// MemoryStore is an in-memory Store. Like RedisStore, a session expires after
// ttl without a Get or Put; expired entries are swept on Put.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memoryEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type memoryEntry struct {
	session  Session
	lastSeen time.Time
}

// NewMemoryStore creates a new in-memory session store. A ttl of zero uses 24 hours.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[userID]
	if !ok {
		return Session{}, nil
	}
	now := m.now()
	if now.Sub(e.lastSeen) > m.ttl {
		delete(m.sessions, userID)
		return Session{}, nil
	}
	e.lastSeen = now
	m.sessions[userID] = e
	return e.session, nil
}

func (m *MemoryStore) Put(_ context.Context, userID string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sessions[userID] = memoryEntry{session: s, lastSeen: now}
	if now.Sub(m.lastSweep) >= m.ttl/4 {
		m.sweep(now)
	}
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) sweep(now time.Time) {
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
		}
	}
	m.lastSweep = now
}
