package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/ksundaram/teller/internal/db"
	"github.com/ksundaram/teller/internal/teller/store"
)

type CashStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCashStore(db *sql.DB, writer *dbpkg.Worker) *CashStore {
	return &CashStore{db: db, writer: writer}
}

func (s *CashStore) GetMachine(ctx context.Context, machineID string) (store.MachineRecord, error) {
	var (
		rec      store.MachineRecord
		location sql.NullString
		online   int
	)
	err := s.db.QueryRowContext(ctx, `
SELECT machine_id, location, is_online, cash_balance
FROM machines WHERE machine_id = ?;
`, machineID).Scan(&rec.ID, &location, &online, &rec.CashBalance)
	if err == sql.ErrNoRows {
		return store.MachineRecord{}, fmt.Errorf("%w: machine %s", store.ErrNotFound, machineID)
	}
	if err != nil {
		return store.MachineRecord{}, fmt.Errorf("GetMachine %s: %w", machineID, err)
	}
	rec.Location = location.String
	rec.Online = online == 1
	return rec, nil
}

func (s *CashStore) ListDenominations(ctx context.Context, machineID string) ([]store.DenominationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT machine_id, note_value, note_count
FROM machine_denominations
WHERE machine_id = ?
ORDER BY note_value DESC;
`, machineID)
	if err != nil {
		return nil, fmt.Errorf("ListDenominations %s: %w", machineID, err)
	}
	defer rows.Close()

	var out []store.DenominationRecord
	for rows.Next() {
		var rec store.DenominationRecord
		if err := rows.Scan(&rec.MachineID, &rec.Value, &rec.Count); err != nil {
			return nil, fmt.Errorf("ListDenominations scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *CashStore) ApplyDispense(ctx context.Context, machineID string, allocation map[int64]int64, amount int64) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for value, count := range allocation {
			res, err := tx.ExecContext(ctx, `
UPDATE machine_denominations
SET note_count = note_count - ?
WHERE machine_id = ? AND note_value = ? AND note_count >= ?;
`, count, machineID, value, count)
			if err != nil {
				return fmt.Errorf("ApplyDispense note %d: %w", value, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("ApplyDispense %s: note %d count underflow", machineID, value)
			}
		}

		res, err := tx.ExecContext(ctx, `
UPDATE machines
SET cash_balance = cash_balance - ?, updated_at_ms = ?
WHERE machine_id = ?;
`, amount, nowMs, machineID)
		if err != nil {
			return fmt.Errorf("ApplyDispense balance: %w", err)
		}
		return requireRow(res, "machine", machineID)
	})
}

func (s *CashStore) ApplyDeposit(ctx context.Context, machineID string, notes map[int64]int64, amount int64) error {
	nowMs := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for value, count := range notes {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO machine_denominations(machine_id, note_value, note_count)
VALUES (?, ?, ?)
ON CONFLICT(machine_id, note_value) DO UPDATE SET
  note_count = note_count + excluded.note_count;
`, machineID, value, count); err != nil {
				return fmt.Errorf("ApplyDeposit note %d: %w", value, err)
			}
		}

		res, err := tx.ExecContext(ctx, `
UPDATE machines
SET cash_balance = cash_balance + ?, updated_at_ms = ?
WHERE machine_id = ?;
`, amount, nowMs, machineID)
		if err != nil {
			return fmt.Errorf("ApplyDeposit balance: %w", err)
		}
		return requireRow(res, "machine", machineID)
	})
}
