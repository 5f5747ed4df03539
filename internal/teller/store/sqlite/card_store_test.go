package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksundaram/teller/internal/teller/store"
	sqlitestore "github.com/ksundaram/teller/internal/teller/store/sqlite"
	"github.com/ksundaram/teller/internal/teller/types"
)

func TestCardStore_GetByNumber(t *testing.T) {
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	cs := sqlitestore.NewCardStore(conn, w)

	seedAccount(t, conn, "acct-1", "100200300400", 50000)
	seedCard(t, conn, "card-1", "4000111122223333", "acct-1", []byte("hash"))

	rec, err := cs.GetByNumber(context.Background(), "4000111122223333")
	require.NoError(t, err)

	assert.Equal(t, "card-1", rec.ID)
	assert.Equal(t, "acct-1", rec.AccountID)
	assert.Equal(t, types.CardActive, rec.Status)
	assert.Equal(t, []byte("hash"), rec.PINHash)
	assert.Equal(t, int64(20000), rec.DailyWithdrawLimit)
	assert.Nil(t, rec.LockedUntil)
}

func TestCardStore_GetByNumber_Missing(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCardStore(conn, newTestWriter(t, conn))

	_, err := cs.GetByNumber(context.Background(), "4999999999999999")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCardStore_UpdateAuthState_RoundTripsLock(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCardStore(conn, newTestWriter(t, conn))

	seedAccount(t, conn, "acct-1", "100200300400", 50000)
	seedCard(t, conn, "card-1", "4000111122223333", "acct-1", []byte("hash"))

	until := time.Now().UTC().Add(15 * time.Minute).Truncate(time.Millisecond)
	err := cs.UpdateAuthState(context.Background(), "card-1", 3, &until, types.CardTempBlocked)
	require.NoError(t, err)

	rec, err := cs.GetByID(context.Background(), "card-1")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.FailedAttempts)
	assert.Equal(t, types.CardTempBlocked, rec.Status)
	require.NotNil(t, rec.LockedUntil)
	assert.True(t, rec.LockedUntil.Equal(until))

	// Clearing the lock nulls the column again.
	err = cs.UpdateAuthState(context.Background(), "card-1", 0, nil, types.CardActive)
	require.NoError(t, err)

	rec, err = cs.GetByID(context.Background(), "card-1")
	require.NoError(t, err)
	assert.Zero(t, rec.FailedAttempts)
	assert.Nil(t, rec.LockedUntil)
}

func TestCardStore_UpdateAuthState_MissingCard(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCardStore(conn, newTestWriter(t, conn))

	err := cs.UpdateAuthState(context.Background(), "card-missing", 1, nil, types.CardActive)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCardStore_SetPINHash_ResetsAttempts(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCardStore(conn, newTestWriter(t, conn))

	seedAccount(t, conn, "acct-1", "100200300400", 50000)
	seedCard(t, conn, "card-1", "4000111122223333", "acct-1", []byte("old"))

	require.NoError(t, cs.UpdateAuthState(context.Background(), "card-1", 2, nil, types.CardActive))
	require.NoError(t, cs.SetPINHash(context.Background(), "card-1", []byte("new")))

	rec, err := cs.GetByID(context.Background(), "card-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), rec.PINHash)
	assert.Zero(t, rec.FailedAttempts)
}

func TestCardStore_SetStatus(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCardStore(conn, newTestWriter(t, conn))

	seedAccount(t, conn, "acct-1", "100200300400", 50000)
	seedCard(t, conn, "card-1", "4000111122223333", "acct-1", []byte("hash"))

	require.NoError(t, cs.SetStatus(context.Background(), "card-1", types.CardBlocked))

	rec, err := cs.GetByAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, types.CardBlocked, rec.Status)
}

func TestCardStore_SetStatus_ClearsLockExpiry(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCardStore(conn, newTestWriter(t, conn))

	seedAccount(t, conn, "acct-1", "100200300400", 50000)
	seedCard(t, conn, "card-1", "4000111122223333", "acct-1", []byte("hash"))

	until := time.Now().UTC().Add(15 * time.Minute).Truncate(time.Millisecond)
	require.NoError(t, cs.UpdateAuthState(context.Background(), "card-1", 3, &until, types.CardTempBlocked))

	// Blocking a temp-blocked card must not strand locked_until.
	require.NoError(t, cs.SetStatus(context.Background(), "card-1", types.CardBlocked))

	rec, err := cs.GetByID(context.Background(), "card-1")
	require.NoError(t, err)
	assert.Equal(t, types.CardBlocked, rec.Status)
	assert.Nil(t, rec.LockedUntil)
}
