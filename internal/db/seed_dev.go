package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a starter machine, account and card so a fresh dev
// database is immediately usable.  The card's PIN is "4321"; PINHash must
// be a bcrypt digest of it, supplied by the caller so this package stays
// free of crypto imports.
type SeedDevOptions struct {
	PINHash []byte
}

func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()
	expires := time.Now().UTC().AddDate(3, 0, 0).UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO machines(machine_id, location, is_online, cash_balance, created_at_ms, updated_at_ms)
VALUES ('atm-001', 'Dev Lobby', 1, 0, ?, ?);`, now, now); err != nil {
		return fmt.Errorf("seed machine: %w", err)
	}

	// Starter note mix: 10x2000 + 20x500 + 50x100 = 35000.
	for _, d := range []struct {
		value, count int64
	}{{2000, 10}, {500, 20}, {100, 50}} {
		if _, err := db.ExecContext(ctx, `
INSERT INTO machine_denominations(machine_id, note_value, note_count)
VALUES ('atm-001', ?, ?)
ON CONFLICT(machine_id, note_value) DO NOTHING;`, d.value, d.count); err != nil {
			return fmt.Errorf("seed denomination %d: %w", d.value, err)
		}
	}
	if _, err := db.ExecContext(ctx, `
UPDATE machines
SET cash_balance = (SELECT IFNULL(SUM(note_value * note_count), 0)
                    FROM machine_denominations
                    WHERE machine_id = 'atm-001'),
    updated_at_ms = ?
WHERE machine_id = 'atm-001';`, now); err != nil {
		return fmt.Errorf("seed machine balance: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO accounts(account_id, account_number, balance, status, created_at_ms, updated_at_ms)
VALUES ('acct_dev', '100200300400', 50000, 'ACTIVE', ?, ?);`, now, now); err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT INTO cards(
  card_id, card_number, account_id, pin_hash, status,
  failed_attempts, expires_at_ms, daily_withdraw_limit,
  created_at_ms, updated_at_ms
) VALUES ('card_dev', '4000123412341234', 'acct_dev', ?, 'ACTIVE', 0, ?, 20000, ?, ?)
ON CONFLICT(card_id) DO UPDATE SET
  pin_hash = excluded.pin_hash,
  status = 'ACTIVE',
  failed_attempts = 0,
  locked_until_ms = NULL,
  updated_at_ms = excluded.updated_at_ms;
`, opt.PINHash, expires, now, now); err != nil {
		return fmt.Errorf("seed card: %w", err)
	}

	return nil
}
