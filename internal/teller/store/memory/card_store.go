// Package memory holds in-memory store implementations for tests and dev
// environments.  Each store is safe for concurrent use; maps are guarded
// by a mutex and lookups return copies so callers cannot mutate internal
// state.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/types"
)

type CardStore struct {
	mu       sync.RWMutex
	byID     map[string]store.CardRecord
	byNumber map[string]string // card number -> card id
}

func NewCardStore(cards ...store.CardRecord) *CardStore {
	s := &CardStore{
		byID:     make(map[string]store.CardRecord, len(cards)),
		byNumber: make(map[string]string, len(cards)),
	}
	for _, c := range cards {
		s.byID[c.ID] = c
		s.byNumber[c.Number] = c.ID
	}
	return s
}

func (s *CardStore) GetByNumber(_ context.Context, cardNumber string) (store.CardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[cardNumber]
	if !ok {
		return store.CardRecord{}, fmt.Errorf("%w: card %s", store.ErrNotFound, cardNumber)
	}
	return s.byID[id], nil
}

func (s *CardStore) GetByID(_ context.Context, cardID string) (store.CardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[cardID]
	if !ok {
		return store.CardRecord{}, fmt.Errorf("%w: card %s", store.ErrNotFound, cardID)
	}
	return c, nil
}

func (s *CardStore) GetByAccount(_ context.Context, accountID string) (store.CardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byID {
		if c.AccountID == accountID {
			return c, nil
		}
	}
	return store.CardRecord{}, fmt.Errorf("%w: card for account %s", store.ErrNotFound, accountID)
}

func (s *CardStore) UpdateAuthState(_ context.Context, cardID string, failedAttempts int, lockedUntil *time.Time, status types.CardStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[cardID]
	if !ok {
		return fmt.Errorf("%w: card %s", store.ErrNotFound, cardID)
	}
	c.FailedAttempts = failedAttempts
	c.LockedUntil = lockedUntil
	c.Status = status
	s.byID[cardID] = c
	return nil
}

func (s *CardStore) SetPINHash(_ context.Context, cardID string, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[cardID]
	if !ok {
		return fmt.Errorf("%w: card %s", store.ErrNotFound, cardID)
	}
	c.PINHash = hash
	c.FailedAttempts = 0
	s.byID[cardID] = c
	return nil
}

func (s *CardStore) SetStatus(_ context.Context, cardID string, status types.CardStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[cardID]
	if !ok {
		return fmt.Errorf("%w: card %s", store.ErrNotFound, cardID)
	}
	c.Status = status
	c.LockedUntil = nil
	s.byID[cardID] = c
	return nil
}
