package service

import (
	"context"
	"errors"

	"github.com/ksundaram/teller/internal/teller/store"
)

// Ledger owns account balances.  Every mutation runs under the account's
// lock, so two concurrent debits can never both read the same pre-mutation
// balance, and the non-negative balance invariant is checked before any
// write.
type Ledger struct {
	accounts store.AccountStore
	locks    *LockTable
}

func NewLedger(accounts store.AccountStore, locks *LockTable) *Ledger {
	return &Ledger{accounts: accounts, locks: locks}
}

func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	acct, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Debit removes amount from the account, failing with ErrInsufficientFunds
// and no mutation if the balance would go negative.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount int64) error {
	unlock := l.locks.LockAccount(accountID)
	defer unlock()
	return l.debitHeld(ctx, accountID, amount)
}

func (l *Ledger) Credit(ctx context.Context, accountID string, amount int64) error {
	unlock := l.locks.LockAccount(accountID)
	defer unlock()
	return l.creditHeld(ctx, accountID, amount)
}

// debitHeld is Debit for callers already holding the account lock.
func (l *Ledger) debitHeld(ctx context.Context, accountID string, amount int64) error {
	acct, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.Balance < amount {
		return ErrInsufficientFunds
	}
	return l.accounts.SetBalance(ctx, accountID, acct.Balance-amount)
}

func (l *Ledger) creditHeld(ctx context.Context, accountID string, amount int64) error {
	acct, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	return l.accounts.SetBalance(ctx, accountID, acct.Balance+amount)
}

// TransferAtomic moves amount between two accounts such that both sides
// take effect or neither does.  The two locks are always taken in
// ascending account id, so two transfers moving money in opposite
// directions between the same pair cannot deadlock.
func (l *Ledger) TransferAtomic(ctx context.Context, fromID, toID string, amount int64) error {
	first, second := fromID, toID
	if second < first {
		first, second = second, first
	}
	unlockFirst := l.locks.LockAccount(first)
	defer unlockFirst()
	unlockSecond := l.locks.LockAccount(second)
	defer unlockSecond()

	if err := l.debitHeld(ctx, fromID, amount); err != nil {
		return err
	}
	if err := l.creditHeld(ctx, toID, amount); err != nil {
		// Put the debited amount back so neither side moves.
		if undoErr := l.creditHeld(ctx, fromID, amount); undoErr != nil {
			return errors.Join(err, undoErr)
		}
		return err
	}
	return nil
}
