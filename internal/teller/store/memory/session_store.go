package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ksundaram/teller/internal/teller/store"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]store.SessionRecord
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]store.SessionRecord)}
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (store.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return store.SessionRecord{}, fmt.Errorf("%w: session %s", store.ErrNotFound, sessionID)
	}
	return rec, nil
}

func (s *SessionStore) ActiveByCard(_ context.Context, cardID string) (store.SessionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.sessions {
		if rec.CardID == cardID && rec.Active {
			return rec, true, nil
		}
	}
	return store.SessionRecord{}, false, nil
}

func (s *SessionStore) Create(_ context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

func (s *SessionStore) End(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", store.ErrNotFound, sessionID)
	}
	if !rec.Active {
		return nil
	}
	rec.Active = false
	rec.EndedAt = &at
	s.sessions[sessionID] = rec
	return nil
}

func (s *SessionStore) ActiveStartedBefore(_ context.Context, cutoff time.Time) ([]store.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.SessionRecord
	for _, rec := range s.sessions {
		if rec.Active && rec.StartedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}
