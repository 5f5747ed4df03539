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

type CardStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCardStore(db *sql.DB, writer *dbpkg.Worker) *CardStore {
	return &CardStore{db: db, writer: writer}
}

const cardColumns = `
card_id, card_number, account_id, pin_hash, status,
failed_attempts, locked_until_ms, expires_at_ms, daily_withdraw_limit`

func (s *CardStore) GetByNumber(ctx context.Context, cardNumber string) (store.CardRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE card_number = ?;`, cardNumber)
	return scanCard(row, cardNumber)
}

func (s *CardStore) GetByID(ctx context.Context, cardID string) (store.CardRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE card_id = ?;`, cardID)
	return scanCard(row, cardID)
}

func (s *CardStore) GetByAccount(ctx context.Context, accountID string) (store.CardRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE account_id = ?;`, accountID)
	return scanCard(row, accountID)
}

func scanCard(row *sql.Row, key string) (store.CardRecord, error) {
	var (
		rec         store.CardRecord
		status      string
		lockedMs    sql.NullInt64
		expiresMs   int64
	)
	err := row.Scan(
		&rec.ID, &rec.Number, &rec.AccountID, &rec.PINHash, &status,
		&rec.FailedAttempts, &lockedMs, &expiresMs, &rec.DailyWithdrawLimit,
	)
	if err == sql.ErrNoRows {
		return store.CardRecord{}, fmt.Errorf("%w: card %s", store.ErrNotFound, key)
	}
	if err != nil {
		return store.CardRecord{}, fmt.Errorf("scan card %s: %w", key, err)
	}
	rec.Status = types.CardStatus(status)
	rec.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	if lockedMs.Valid {
		t := time.UnixMilli(lockedMs.Int64).UTC()
		rec.LockedUntil = &t
	}
	return rec, nil
}

func (s *CardStore) UpdateAuthState(ctx context.Context, cardID string, failedAttempts int, lockedUntil *time.Time, status types.CardStatus) error {
	var lockedMs any
	if lockedUntil != nil {
		lockedMs = lockedUntil.UTC().UnixMilli()
	}
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE cards
SET failed_attempts = ?,
    locked_until_ms = ?,
    status          = ?,
    updated_at_ms   = ?
WHERE card_id = ?;
`, failedAttempts, lockedMs, string(status), nowMs, cardID)
		if err != nil {
			return fmt.Errorf("UpdateAuthState %s: %w", cardID, err)
		}
		return requireRow(res, "card", cardID)
	})
}

func (s *CardStore) SetPINHash(ctx context.Context, cardID string, hash []byte) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE cards
SET pin_hash        = ?,
    failed_attempts = 0,
    updated_at_ms   = ?
WHERE card_id = ?;
`, hash, nowMs, cardID)
		if err != nil {
			return fmt.Errorf("SetPINHash %s: %w", cardID, err)
		}
		return requireRow(res, "card", cardID)
	})
}

func (s *CardStore) SetStatus(ctx context.Context, cardID string, status types.CardStatus) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE cards SET status = ?, locked_until_ms = NULL, updated_at_ms = ? WHERE card_id = ?;
`, string(status), nowMs, cardID)
		if err != nil {
			return fmt.Errorf("SetStatus %s: %w", cardID, err)
		}
		return requireRow(res, "card", cardID)
	})
}

// requireRow converts a zero-row UPDATE into ErrNotFound.
func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", store.ErrNotFound, entity, id)
	}
	return nil
}
