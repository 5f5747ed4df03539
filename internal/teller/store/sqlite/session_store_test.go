package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksundaram/teller/internal/teller/store"
	sqlitestore "github.com/ksundaram/teller/internal/teller/store/sqlite"
)

// newSessionStore opens a migrated test database with one card and one
// machine already planted, since sessions carry foreign keys to both.
func newSessionStore(t *testing.T) (*sqlitestore.SessionStore, func() context.Context) {
	t.Helper()
	conn := openTestDB(t)
	w := newTestWriter(t, conn)
	seedAccount(t, conn, "acct-1", "100200300400", 50000)
	seedCard(t, conn, "card-1", "4000111122223333", "acct-1", []byte("hash"))
	seedMachine(t, conn, "atm-001", map[int64]int64{100: 10})
	return sqlitestore.NewSessionStore(conn, w), context.Background
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	ss, ctx := newSessionStore(t)

	started := time.Now().UTC().Truncate(time.Millisecond)
	err := ss.Create(ctx(), store.SessionRecord{
		ID: "sess-1", CardID: "card-1", MachineID: "atm-001",
		Active: true, StartedAt: started,
	})
	require.NoError(t, err)

	rec, err := ss.Get(ctx(), "sess-1")
	require.NoError(t, err)
	assert.True(t, rec.Active)
	assert.Equal(t, "card-1", rec.CardID)
	assert.True(t, rec.StartedAt.Equal(started))
	assert.Nil(t, rec.EndedAt)
}

func TestSessionStore_Get_Missing(t *testing.T) {
	ss, ctx := newSessionStore(t)

	_, err := ss.Get(ctx(), "sess-missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionStore_ActiveByCard(t *testing.T) {
	ss, ctx := newSessionStore(t)

	_, active, err := ss.ActiveByCard(ctx(), "card-1")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, ss.Create(ctx(), store.SessionRecord{
		ID: "sess-1", CardID: "card-1", MachineID: "atm-001",
		Active: true, StartedAt: time.Now().UTC(),
	}))

	rec, active, err := ss.ActiveByCard(ctx(), "card-1")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, "sess-1", rec.ID)
}

func TestSessionStore_End_SecondEndKeepsFirstTimestamp(t *testing.T) {
	ss, ctx := newSessionStore(t)

	require.NoError(t, ss.Create(ctx(), store.SessionRecord{
		ID: "sess-1", CardID: "card-1", MachineID: "atm-001",
		Active: true, StartedAt: time.Now().UTC(),
	}))

	first := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, ss.End(ctx(), "sess-1", first))

	// A later End must not re-stamp or reactivate.
	require.NoError(t, ss.End(ctx(), "sess-1", first.Add(time.Hour)))

	rec, err := ss.Get(ctx(), "sess-1")
	require.NoError(t, err)
	assert.False(t, rec.Active)
	require.NotNil(t, rec.EndedAt)
	assert.True(t, rec.EndedAt.Equal(first))
}

func TestSessionStore_End_Missing(t *testing.T) {
	ss, ctx := newSessionStore(t)

	err := ss.End(ctx(), "sess-missing", time.Now().UTC())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionStore_ActiveStartedBefore(t *testing.T) {
	ss, ctx := newSessionStore(t)

	now := time.Now().UTC()
	require.NoError(t, ss.Create(ctx(), store.SessionRecord{
		ID: "sess-old", CardID: "card-1", MachineID: "atm-001",
		Active: true, StartedAt: now.Add(-10 * time.Minute),
	}))
	require.NoError(t, ss.Create(ctx(), store.SessionRecord{
		ID: "sess-fresh", CardID: "card-1", MachineID: "atm-001",
		Active: true, StartedAt: now,
	}))
	// An old but already-ended session must not come back.
	require.NoError(t, ss.Create(ctx(), store.SessionRecord{
		ID: "sess-done", CardID: "card-1", MachineID: "atm-001",
		Active: true, StartedAt: now.Add(-20 * time.Minute),
	}))
	require.NoError(t, ss.End(ctx(), "sess-done", now))

	expired, err := ss.ActiveStartedBefore(ctx(), now.Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "sess-old", expired[0].ID)
}
