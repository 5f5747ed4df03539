package store

import (
	"context"
	"time"

	"github.com/ksundaram/teller/internal/teller/types"
)

// TransactionRecord is an append-only record of an attempted money
// movement.  FAILED rows are written for withdrawal attempts that reached
// risk-bearing validation, so the audit trail covers rejections too.
type TransactionRecord struct {
	ID          string
	CardID      string
	AccountID   string
	MachineID   string
	Type        types.TransactionType
	Amount      int64
	Status      types.TransactionStatus
	Description string
	CreatedAt   time.Time
}

type TransactionStore interface {
	Append(ctx context.Context, rec TransactionRecord) error

	// SumCompletedWithdrawals totals COMPLETED withdrawals for the card in
	// [from, to), used for the daily-limit check.
	SumCompletedWithdrawals(ctx context.Context, cardID string, from, to time.Time) (int64, error)

	// RecentCompleted returns up to limit COMPLETED transactions for the
	// card, most recent first.
	RecentCompleted(ctx context.Context, cardID string, limit int) ([]TransactionRecord, error)
}
