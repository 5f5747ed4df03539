package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/ksundaram/teller/internal/db"
	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/types"
)

type TransactionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTransactionStore(db *sql.DB, writer *dbpkg.Worker) *TransactionStore {
	return &TransactionStore{db: db, writer: writer}
}

func (s *TransactionStore) Append(ctx context.Context, rec store.TransactionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var accountID any
	if rec.AccountID != "" {
		accountID = rec.AccountID
	}
	var description any
	if rec.Description != "" {
		description = rec.Description
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO transactions(
  transaction_id, card_id, account_id, machine_id,
  transaction_type, amount, status, description, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.CardID, accountID, rec.MachineID,
			string(rec.Type), rec.Amount, string(rec.Status), description,
			rec.CreatedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("Append transaction %s: %w", rec.ID, err)
		}
		return nil
	})
}

func (s *TransactionStore) SumCompletedWithdrawals(ctx context.Context, cardID string, from, to time.Time) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
SELECT IFNULL(SUM(amount), 0)
FROM transactions
WHERE card_id = ?
  AND transaction_type = ?
  AND status = ?
  AND created_at_ms >= ?
  AND created_at_ms < ?;
`, cardID, string(types.TxWithdrawal), string(types.TxCompleted),
		from.UTC().UnixMilli(), to.UTC().UnixMilli()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("SumCompletedWithdrawals %s: %w", cardID, err)
	}
	return total, nil
}

func (s *TransactionStore) RecentCompleted(ctx context.Context, cardID string, limit int) ([]store.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT transaction_id, card_id, IFNULL(account_id, ''), machine_id,
       transaction_type, amount, status, IFNULL(description, ''), created_at_ms
FROM transactions
WHERE card_id = ? AND status = ?
ORDER BY created_at_ms DESC
LIMIT ?;
`, cardID, string(types.TxCompleted), limit)
	if err != nil {
		return nil, fmt.Errorf("RecentCompleted %s: %w", cardID, err)
	}
	defer rows.Close()

	var out []store.TransactionRecord
	for rows.Next() {
		var (
			rec       store.TransactionRecord
			txType    string
			status    string
			createdMs int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.CardID, &rec.AccountID, &rec.MachineID,
			&txType, &rec.Amount, &status, &rec.Description, &createdMs,
		); err != nil {
			return nil, fmt.Errorf("RecentCompleted scan: %w", err)
		}
		rec.Type = types.TransactionType(txType)
		rec.Status = types.TransactionStatus(status)
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
