package store

import "context"

type AccountRecord struct {
	ID      string
	Number  string
	Balance int64
	Status  string
}

type AccountStore interface {
	GetByID(ctx context.Context, accountID string) (AccountRecord, error)
	GetByNumber(ctx context.Context, accountNumber string) (AccountRecord, error)

	// SetBalance writes an absolute balance.  Callers must hold the
	// account's service-level lock; the store does not re-check the old
	// value.
	SetBalance(ctx context.Context, accountID string, balance int64) error
}
