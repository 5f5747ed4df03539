package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksundaram/teller/internal/teller/store"
	sqlitestore "github.com/ksundaram/teller/internal/teller/store/sqlite"
)

func TestAccountStore_GetByIDAndNumber(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAccountStore(conn, newTestWriter(t, conn))

	seedAccount(t, conn, "acct-1", "100200300400", 50000)

	byID, err := as.GetByID(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100200300400", byID.Number)
	assert.Equal(t, int64(50000), byID.Balance)

	byNumber, err := as.GetByNumber(context.Background(), "100200300400")
	require.NoError(t, err)
	assert.Equal(t, byID, byNumber)
}

func TestAccountStore_GetByID_Missing(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAccountStore(conn, newTestWriter(t, conn))

	_, err := as.GetByID(context.Background(), "acct-missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAccountStore_SetBalance(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAccountStore(conn, newTestWriter(t, conn))

	seedAccount(t, conn, "acct-1", "100200300400", 50000)

	require.NoError(t, as.SetBalance(context.Background(), "acct-1", 46200))

	rec, err := as.GetByID(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(46200), rec.Balance)
}

func TestAccountStore_SetBalance_Missing(t *testing.T) {
	conn := openTestDB(t)
	as := sqlitestore.NewAccountStore(conn, newTestWriter(t, conn))

	err := as.SetBalance(context.Background(), "acct-missing", 100)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditStore_RecordEvent(t *testing.T) {
	conn := openTestDB(t)
	us := sqlitestore.NewAuditStore(conn, newTestWriter(t, conn))

	err := us.RecordEvent(context.Background(), store.AuditRecord{
		CardID:    "card-1",
		MachineID: "atm-001",
		Activity:  "LOGIN",
		Details:   map[string]string{"reason": "invalid pin"},
		Status:    "FAILED",
	})
	require.NoError(t, err)

	var (
		activity string
		details  string
		status   string
	)
	err = conn.QueryRow(
		`SELECT activity_type, details, status FROM audit_log WHERE card_id = ?`,
		"card-1",
	).Scan(&activity, &details, &status)
	require.NoError(t, err)

	assert.Equal(t, "LOGIN", activity)
	assert.Equal(t, "FAILED", status)
	assert.JSONEq(t, `{"reason":"invalid pin"}`, details)
}
