package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksundaram/teller/internal/teller/store"
	sqlitestore "github.com/ksundaram/teller/internal/teller/store/sqlite"
)

func TestCashStore_GetMachine(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCashStore(conn, newTestWriter(t, conn))

	seedMachine(t, conn, "atm-001", map[int64]int64{2000: 10, 500: 20, 100: 50})

	rec, err := cs.GetMachine(context.Background(), "atm-001")
	require.NoError(t, err)
	assert.True(t, rec.Online)
	assert.Equal(t, int64(35000), rec.CashBalance)
	assert.Equal(t, "Test Lobby", rec.Location)
}

func TestCashStore_GetMachine_Missing(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCashStore(conn, newTestWriter(t, conn))

	_, err := cs.GetMachine(context.Background(), "atm-999")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCashStore_ListDenominations_DescendingOrder(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCashStore(conn, newTestWriter(t, conn))

	seedMachine(t, conn, "atm-001", map[int64]int64{100: 50, 2000: 10, 500: 20})

	notes, err := cs.ListDenominations(context.Background(), "atm-001")
	require.NoError(t, err)
	require.Len(t, notes, 3)

	assert.Equal(t, int64(2000), notes[0].Value)
	assert.Equal(t, int64(500), notes[1].Value)
	assert.Equal(t, int64(100), notes[2].Value)
}

func TestCashStore_ApplyDispense_DecrementsNotesAndBalance(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCashStore(conn, newTestWriter(t, conn))

	seedMachine(t, conn, "atm-001", map[int64]int64{2000: 10, 500: 20, 100: 50})

	err := cs.ApplyDispense(context.Background(), "atm-001",
		map[int64]int64{2000: 1, 500: 3, 100: 3}, 3800)
	require.NoError(t, err)

	rec, err := cs.GetMachine(context.Background(), "atm-001")
	require.NoError(t, err)
	assert.Equal(t, int64(31200), rec.CashBalance)

	notes, err := cs.ListDenominations(context.Background(), "atm-001")
	require.NoError(t, err)

	counts := make(map[int64]int64, len(notes))
	var total int64
	for _, n := range notes {
		counts[n.Value] = n.Count
		total += n.Value * n.Count
	}
	assert.Equal(t, int64(9), counts[2000])
	assert.Equal(t, int64(17), counts[500])
	assert.Equal(t, int64(47), counts[100])
	assert.Equal(t, rec.CashBalance, total, "aggregate balance must equal note total")
}

// A dispense whose counts would drive a note below zero must fail as a
// whole transaction, leaving both note counts and balance untouched.
func TestCashStore_ApplyDispense_UnderflowRollsBack(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCashStore(conn, newTestWriter(t, conn))

	seedMachine(t, conn, "atm-001", map[int64]int64{2000: 1, 500: 2})

	err := cs.ApplyDispense(context.Background(), "atm-001",
		map[int64]int64{2000: 2}, 4000)
	require.Error(t, err)

	rec, err := cs.GetMachine(context.Background(), "atm-001")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), rec.CashBalance)

	notes, err := cs.ListDenominations(context.Background(), "atm-001")
	require.NoError(t, err)
	for _, n := range notes {
		if n.Value == 2000 {
			assert.Equal(t, int64(1), n.Count)
		}
	}
}

func TestCashStore_ApplyDeposit_UpsertsNewNoteValue(t *testing.T) {
	conn := openTestDB(t)
	cs := sqlitestore.NewCashStore(conn, newTestWriter(t, conn))

	seedMachine(t, conn, "atm-001", map[int64]int64{500: 2})

	err := cs.ApplyDeposit(context.Background(), "atm-001",
		map[int64]int64{500: 3, 2000: 1}, 3500)
	require.NoError(t, err)

	rec, err := cs.GetMachine(context.Background(), "atm-001")
	require.NoError(t, err)
	assert.Equal(t, int64(4500), rec.CashBalance)

	notes, err := cs.ListDenominations(context.Background(), "atm-001")
	require.NoError(t, err)

	counts := make(map[int64]int64, len(notes))
	for _, n := range notes {
		counts[n.Value] = n.Count
	}
	assert.Equal(t, int64(1), counts[2000], "new note value row created")
	assert.Equal(t, int64(5), counts[500])
}
