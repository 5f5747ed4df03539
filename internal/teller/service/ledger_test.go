package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ksundaram/teller/internal/teller/service"
	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/store/memory"
)

func newTestLedger(accounts ...store.AccountRecord) (*service.Ledger, *memory.AccountStore) {
	accountStore := memory.NewAccountStore(accounts...)
	return service.NewLedger(accountStore, service.NewLockTable()), accountStore
}

func balanceOf(t *testing.T, accounts *memory.AccountStore, id string) int64 {
	t.Helper()
	acct, err := accounts.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%s): %v", id, err)
	}
	return acct.Balance
}

func TestDebit_InsufficientFunds_NoMutation(t *testing.T) {
	ledger, accounts := newTestLedger(store.AccountRecord{ID: "a", Balance: 100})

	err := ledger.Debit(context.Background(), "a", 101)
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, accounts, "a"); got != 100 {
		t.Errorf("expected balance untouched at 100, got %d", got)
	}
}

func TestDebit_ExactBalance_ReachesZero(t *testing.T) {
	ledger, accounts := newTestLedger(store.AccountRecord{ID: "a", Balance: 100})

	if err := ledger.Debit(context.Background(), "a", 100); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got := balanceOf(t, accounts, "a"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

// Fifty concurrent debits of 1 against a balance of 30: exactly 30 must
// succeed and the balance must end at 0, never negative.
func TestDebit_ConcurrentDebits_NeverOverdraw(t *testing.T) {
	ledger, accounts := newTestLedger(store.AccountRecord{ID: "a", Balance: 30})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Debit(context.Background(), "a", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 30 {
		t.Errorf("expected 30 successful debits, got %d", succeeded)
	}
	if got := balanceOf(t, accounts, "a"); got != 0 {
		t.Errorf("expected final balance 0, got %d", got)
	}
}

func TestTransferAtomic_InsufficientFunds_NeitherSideMoves(t *testing.T) {
	ledger, accounts := newTestLedger(
		store.AccountRecord{ID: "a", Balance: 50},
		store.AccountRecord{ID: "b", Balance: 10},
	)

	err := ledger.TransferAtomic(context.Background(), "a", "b", 60)
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, accounts, "a"); got != 50 {
		t.Errorf("sender: expected 50, got %d", got)
	}
	if got := balanceOf(t, accounts, "b"); got != 10 {
		t.Errorf("receiver: expected 10, got %d", got)
	}
}

// Opposite-direction transfers between the same pair must not deadlock:
// both goroutines take the pair's locks in ascending account id.
func TestTransferAtomic_OppositeDirections_NoDeadlock(t *testing.T) {
	ledger, accounts := newTestLedger(
		store.AccountRecord{ID: "a", Balance: 1000},
		store.AccountRecord{ID: "b", Balance: 1000},
	)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ledger.TransferAtomic(context.Background(), "a", "b", 1)
		}()
		go func() {
			defer wg.Done()
			ledger.TransferAtomic(context.Background(), "b", "a", 1)
		}()
	}
	wg.Wait()

	total := balanceOf(t, accounts, "a") + balanceOf(t, accounts, "b")
	if total != 2000 {
		t.Errorf("expected money conserved at 2000, got %d", total)
	}
}

// Many transfers fan out from one account concurrently; the total across
// all accounts is invariant and the source never overdraws.
func TestTransferAtomic_ConcurrentFanOut_ConservesMoney(t *testing.T) {
	ledger, accounts := newTestLedger(
		store.AccountRecord{ID: "src", Balance: 40},
		store.AccountRecord{ID: "d1", Balance: 0},
		store.AccountRecord{ID: "d2", Balance: 0},
	)

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		dest := "d1"
		if i%2 == 1 {
			dest = "d2"
		}
		wg.Add(1)
		go func(dest string) {
			defer wg.Done()
			ledger.TransferAtomic(context.Background(), "src", dest, 1)
		}(dest)
	}
	wg.Wait()

	src := balanceOf(t, accounts, "src")
	if src != 0 {
		t.Errorf("expected source drained to 0, got %d", src)
	}
	total := src + balanceOf(t, accounts, "d1") + balanceOf(t, accounts, "d2")
	if total != 40 {
		t.Errorf("expected money conserved at 40, got %d", total)
	}
}
