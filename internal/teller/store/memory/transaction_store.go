package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/types"
)

type TransactionStore struct {
	mu   sync.Mutex
	recs []store.TransactionRecord
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

func (s *TransactionStore) Append(_ context.Context, rec store.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *TransactionStore) SumCompletedWithdrawals(_ context.Context, cardID string, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, rec := range s.recs {
		if rec.CardID != cardID || rec.Type != types.TxWithdrawal || rec.Status != types.TxCompleted {
			continue
		}
		if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
			continue
		}
		total += rec.Amount
	}
	return total, nil
}

func (s *TransactionStore) RecentCompleted(_ context.Context, cardID string, limit int) ([]store.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.TransactionRecord
	// Appends are chronological, so walk backwards for most-recent-first.
	for i := len(s.recs) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.recs[i]
		if rec.CardID == cardID && rec.Status == types.TxCompleted {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns a copy of every appended record.  Test-only helper.
func (s *TransactionStore) All() []store.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.TransactionRecord, len(s.recs))
	copy(out, s.recs)
	return out
}
