package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ksundaram/teller/internal/teller/store"
)

type AccountStore struct {
	mu       sync.RWMutex
	byID     map[string]store.AccountRecord
	byNumber map[string]string
}

func NewAccountStore(accounts ...store.AccountRecord) *AccountStore {
	s := &AccountStore{
		byID:     make(map[string]store.AccountRecord, len(accounts)),
		byNumber: make(map[string]string, len(accounts)),
	}
	for _, a := range accounts {
		s.byID[a.ID] = a
		s.byNumber[a.Number] = a.ID
	}
	return s
}

// Add registers an account after construction.  Test/dev helper.
func (s *AccountStore) Add(a store.AccountRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[a.ID] = a
	s.byNumber[a.Number] = a.ID
}

func (s *AccountStore) GetByID(_ context.Context, accountID string) (store.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[accountID]
	if !ok {
		return store.AccountRecord{}, fmt.Errorf("%w: account %s", store.ErrNotFound, accountID)
	}
	return a, nil
}

func (s *AccountStore) GetByNumber(_ context.Context, accountNumber string) (store.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[accountNumber]
	if !ok {
		return store.AccountRecord{}, fmt.Errorf("%w: account %s", store.ErrNotFound, accountNumber)
	}
	return s.byID[id], nil
}

func (s *AccountStore) SetBalance(_ context.Context, accountID string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[accountID]
	if !ok {
		return fmt.Errorf("%w: account %s", store.ErrNotFound, accountID)
	}
	a.Balance = balance
	s.byID[accountID] = a
	return nil
}
