package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ksundaram/teller/internal/db"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool
	// (important because sql.DB may close/reopen the underlying conn).
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	// Apply the same migrations as production.
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// Raw-row seed helpers.  The stores under test only read and update; rows
// are planted directly so each test controls its exact starting state.

func seedAccount(t *testing.T, conn *sql.DB, id, number string, balance int64) {
	t.Helper()
	now := time.Now().UTC().UnixMilli()
	_, err := conn.Exec(`
INSERT INTO accounts(account_id, account_number, balance, status, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, 'ACTIVE', ?, ?);`, id, number, balance, now, now)
	if err != nil {
		t.Fatalf("seedAccount %s: %v", id, err)
	}
}

func seedCard(t *testing.T, conn *sql.DB, id, number, accountID string, pinHash []byte) {
	t.Helper()
	now := time.Now().UTC().UnixMilli()
	expires := time.Now().UTC().AddDate(1, 0, 0).UnixMilli()
	_, err := conn.Exec(`
INSERT INTO cards(card_id, card_number, account_id, pin_hash, status,
                  failed_attempts, expires_at_ms, daily_withdraw_limit,
                  created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, 'ACTIVE', 0, ?, 20000, ?, ?);`,
		id, number, accountID, pinHash, expires, now, now)
	if err != nil {
		t.Fatalf("seedCard %s: %v", id, err)
	}
}

func seedMachine(t *testing.T, conn *sql.DB, id string, notes map[int64]int64) {
	t.Helper()
	now := time.Now().UTC().UnixMilli()
	var balance int64
	for value, count := range notes {
		balance += value * count
	}
	_, err := conn.Exec(`
INSERT INTO machines(machine_id, location, is_online, cash_balance, created_at_ms, updated_at_ms)
VALUES (?, 'Test Lobby', 1, ?, ?, ?);`, id, balance, now, now)
	if err != nil {
		t.Fatalf("seedMachine %s: %v", id, err)
	}
	for value, count := range notes {
		if _, err := conn.Exec(`
INSERT INTO machine_denominations(machine_id, note_value, note_count)
VALUES (?, ?, ?);`, id, value, count); err != nil {
			t.Fatalf("seedMachine %s note %d: %v", id, value, err)
		}
	}
}
