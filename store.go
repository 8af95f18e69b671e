package main

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BoardSummary lists a session without its cells.
type BoardSummary struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// Store holds all bingo sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// CreateSession saves a new session built from 24 topics. present is called
// with the session ID to build the presenter its board reports to.
func (s *Store) CreateSession(reference string, topics []Topic, fallback string, resolver *ImageResolver, present func(id string) Presenter) *Session {
	id := uuid.NewString()
	var p Presenter
	if present != nil {
		p = present(id)
	}
	sess := newSession(id, reference, topics, fallback, resolver, p)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return sess
}

// GetSession returns a session by ID, or nil if not found.
func (s *Store) GetSession(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// ListSessions returns all sessions, most recent first.
func (s *Store) ListSessions() []BoardSummary {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	list := make([]BoardSummary, 0, len(sessions))
	for _, sess := range sessions {
		list = append(list, BoardSummary{ID: sess.ID, Reference: sess.Reference(), CreatedAt: sess.CreatedAt})
	}
	slices.SortFunc(list, func(a, b BoardSummary) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return list
}

// Count returns the number of sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
