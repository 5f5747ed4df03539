package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/ksundaram/teller/internal/db"
	"github.com/ksundaram/teller/internal/teller/store"
)

type AccountStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccountStore(db *sql.DB, writer *dbpkg.Worker) *AccountStore {
	return &AccountStore{db: db, writer: writer}
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (store.AccountRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT account_id, account_number, balance, status
FROM accounts WHERE account_id = ?;
`, accountID)
	return scanAccount(row, accountID)
}

func (s *AccountStore) GetByNumber(ctx context.Context, accountNumber string) (store.AccountRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT account_id, account_number, balance, status
FROM accounts WHERE account_number = ?;
`, accountNumber)
	return scanAccount(row, accountNumber)
}

func scanAccount(row *sql.Row, key string) (store.AccountRecord, error) {
	var rec store.AccountRecord
	err := row.Scan(&rec.ID, &rec.Number, &rec.Balance, &rec.Status)
	if err == sql.ErrNoRows {
		return store.AccountRecord{}, fmt.Errorf("%w: account %s", store.ErrNotFound, key)
	}
	if err != nil {
		return store.AccountRecord{}, fmt.Errorf("scan account %s: %w", key, err)
	}
	return rec, nil
}

func (s *AccountStore) SetBalance(ctx context.Context, accountID string, balance int64) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE accounts SET balance = ?, updated_at_ms = ? WHERE account_id = ?;
`, balance, nowMs, accountID)
		if err != nil {
			return fmt.Errorf("SetBalance %s: %w", accountID, err)
		}
		return requireRow(res, "account", accountID)
	})
}
