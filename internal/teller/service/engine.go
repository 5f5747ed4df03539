package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ksundaram/teller/internal/metrics"
	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/types"
)

// TransactionEngine orchestrates the ledger, the vault and the transaction
// log to execute withdrawals, deposits and transfers.
//
// Lock discipline: operations that need both an account and a machine take
// the account lock first, always.  Both locks stay held for the whole
// operation, so a withdrawal's debit, dispense and any compensating credit
// form one critical section per resource.
type TransactionEngine struct {
	cards    store.CardStore
	accounts store.AccountStore
	txs      store.TransactionStore
	ledger   *Ledger
	vault    *Vault
	locks    *LockTable
	metrics  *metrics.Collector
	logger   *log.Logger
}

func NewTransactionEngine(
	cards store.CardStore,
	accounts store.AccountStore,
	txs store.TransactionStore,
	ledger *Ledger,
	vault *Vault,
	locks *LockTable,
	collector *metrics.Collector,
	logger *log.Logger,
) *TransactionEngine {
	return &TransactionEngine{
		cards:    cards,
		accounts: accounts,
		txs:      txs,
		ledger:   ledger,
		vault:    vault,
		locks:    locks,
		metrics:  collector,
		logger:   logger,
	}
}

// Withdraw runs the Validating -> LimitCheck -> BalanceCheck -> CashCheck
// -> Committing sequence.  A bad amount is a client-input error and leaves
// no trace; every later rejection writes a FAILED record, because those
// attempts reached risk-bearing validation.  If the dispense fails after
// the debit, the debit is rolled back before returning.
func (e *TransactionEngine) Withdraw(ctx context.Context, req types.WithdrawRequest) (types.WithdrawResult, error) {
	started := time.Now()

	if req.Amount <= 0 {
		return types.WithdrawResult{}, ErrInvalidAmount
	}

	unlockAcct := e.locks.LockAccount(req.AccountID)
	defer unlockAcct()
	unlockMach := e.locks.LockMachine(req.MachineID)
	defer unlockMach()

	fail := func(err error) (types.WithdrawResult, error) {
		e.appendRecord(ctx, store.TransactionRecord{
			CardID:    req.CardID,
			AccountID: req.AccountID,
			MachineID: req.MachineID,
			Type:      types.TxWithdrawal,
			Amount:    req.Amount,
			Status:    types.TxFailed,
		})
		e.metrics.ObserveTransaction(string(types.TxWithdrawal), time.Since(started), false)
		return types.WithdrawResult{}, err
	}

	machine, err := e.vault.machineHeld(ctx, req.MachineID)
	if err != nil || !machine.Online {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return types.WithdrawResult{}, err
		}
		return fail(ErrMachineOffline)
	}

	card, err := e.cards.GetByID(ctx, req.CardID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.WithdrawResult{}, err
		}
		return fail(ErrCardInvalid)
	}
	if card.AccountID != req.AccountID || card.Status != types.CardActive {
		return fail(ErrCardInvalid)
	}

	dayStart := startOfDay(time.Now().UTC())
	spentToday, err := e.txs.SumCompletedWithdrawals(ctx, req.CardID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return types.WithdrawResult{}, err
	}
	if spentToday+req.Amount > card.DailyWithdrawLimit {
		return fail(ErrDailyLimitExceeded)
	}

	if err := e.ledger.debitHeld(ctx, req.AccountID, req.Amount); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return fail(err)
		}
		return types.WithdrawResult{}, err
	}

	allocation, err := e.vault.dispenseHeld(ctx, req.MachineID, req.Amount)
	if err != nil {
		// The account was already debited; undo it so the withdrawal is
		// all-or-nothing across ledger and drawer.
		if undoErr := e.ledger.creditHeld(ctx, req.AccountID, req.Amount); undoErr != nil {
			return types.WithdrawResult{}, errors.Join(err, undoErr)
		}
		var notDispensable *NotDispensableError
		if errors.Is(err, ErrMachineOffline) ||
			errors.Is(err, ErrInsufficientCash) ||
			errors.Is(err, ErrDenominationInfeasible) ||
			errors.As(err, &notDispensable) {
			return fail(err)
		}
		return types.WithdrawResult{}, err
	}

	e.appendRecord(ctx, store.TransactionRecord{
		CardID:    req.CardID,
		AccountID: req.AccountID,
		MachineID: req.MachineID,
		Type:      types.TxWithdrawal,
		Amount:    req.Amount,
		Status:    types.TxCompleted,
	})
	e.metrics.ObserveTransaction(string(types.TxWithdrawal), time.Since(started), true)
	e.metrics.SetMachineCash(req.MachineID, machine.CashBalance-req.Amount)

	return types.WithdrawResult{Denominations: allocation}, nil
}

// Deposit credits the account and loads the inserted notes into the
// drawer.  Credit and replenish are independent increments, so there is no
// overdraft risk, but they still commit as a pair: a replenish failure
// rolls the credit back.
func (e *TransactionEngine) Deposit(ctx context.Context, req types.DepositRequest) (types.DepositResult, error) {
	started := time.Now()

	if len(req.Notes) == 0 {
		return types.DepositResult{}, ErrNoCashInserted
	}
	var amount int64
	for value, count := range req.Notes {
		if value <= 0 || count <= 0 {
			return types.DepositResult{}, ErrInvalidNoteCount
		}
		amount += value * count
	}

	unlockAcct := e.locks.LockAccount(req.AccountID)
	defer unlockAcct()
	unlockMach := e.locks.LockMachine(req.MachineID)
	defer unlockMach()

	// Rejections past this point count against the failure metric, same as
	// a withdrawal's; only raw input errors above stay invisible.
	reject := func(err error) (types.DepositResult, error) {
		e.metrics.ObserveTransaction(string(types.TxDeposit), time.Since(started), false)
		return types.DepositResult{}, err
	}

	machine, err := e.vault.machineHeld(ctx, req.MachineID)
	if err != nil || !machine.Online {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return types.DepositResult{}, err
		}
		return reject(ErrMachineOffline)
	}

	card, err := e.cards.GetByID(ctx, req.CardID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.DepositResult{}, err
		}
		return reject(ErrCardInvalid)
	}
	if card.AccountID != req.AccountID {
		return reject(ErrCardInvalid)
	}

	if err := e.ledger.creditHeld(ctx, req.AccountID, amount); err != nil {
		return types.DepositResult{}, err
	}
	if err := e.vault.replenishHeld(ctx, req.MachineID, req.Notes, amount); err != nil {
		if undoErr := e.ledger.debitHeld(ctx, req.AccountID, amount); undoErr != nil {
			return types.DepositResult{}, errors.Join(err, undoErr)
		}
		return reject(err)
	}

	e.appendRecord(ctx, store.TransactionRecord{
		CardID:    req.CardID,
		AccountID: req.AccountID,
		MachineID: req.MachineID,
		Type:      types.TxDeposit,
		Amount:    amount,
		Status:    types.TxCompleted,
	})
	e.metrics.ObserveTransaction(string(types.TxDeposit), time.Since(started), true)
	e.metrics.SetMachineCash(req.MachineID, machine.CashBalance+amount)

	return types.DepositResult{Amount: amount, Notes: req.Notes}, nil
}

// Transfer moves money between two accounts resolved by account number.
// The record is attributed to the sender's card, with both account numbers
// captured in the description for statement display.
func (e *TransactionEngine) Transfer(ctx context.Context, req types.TransferRequest) (types.TransferResult, error) {
	started := time.Now()

	if req.Amount <= 0 {
		return types.TransferResult{}, ErrInvalidAmount
	}
	if req.FromAccountNumber == req.ToAccountNumber {
		return types.TransferResult{}, ErrSameAccount
	}

	from, err := e.accounts.GetByNumber(ctx, req.FromAccountNumber)
	if err != nil {
		return types.TransferResult{}, asNotFound(err, ErrSenderNotFound)
	}
	to, err := e.accounts.GetByNumber(ctx, req.ToAccountNumber)
	if err != nil {
		return types.TransferResult{}, asNotFound(err, ErrReceiverNotFound)
	}
	card, err := e.cards.GetByAccount(ctx, from.ID)
	if err != nil {
		return types.TransferResult{}, asNotFound(err, ErrSenderNotFound)
	}

	if err := e.ledger.TransferAtomic(ctx, from.ID, to.ID, req.Amount); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			e.metrics.ObserveTransaction(string(types.TxTransfer), time.Since(started), false)
			return types.TransferResult{}, ErrInsufficientBalance
		}
		return types.TransferResult{}, err
	}

	e.appendRecord(ctx, store.TransactionRecord{
		CardID:      card.ID,
		AccountID:   from.ID,
		MachineID:   req.MachineID,
		Type:        types.TxTransfer,
		Amount:      req.Amount,
		Status:      types.TxCompleted,
		Description: fmt.Sprintf("%s → %s", req.FromAccountNumber, req.ToAccountNumber),
	})
	e.metrics.ObserveTransaction(string(types.TxTransfer), time.Since(started), true)

	return types.TransferResult{
		From:   req.FromAccountNumber,
		To:     req.ToAccountNumber,
		Amount: req.Amount,
	}, nil
}

// MiniStatement returns the card's most recent completed transactions,
// newest first.
func (e *TransactionEngine) MiniStatement(ctx context.Context, cardID string, limit int) ([]types.StatementEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	recs, err := e.txs.RecentCompleted(ctx, cardID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.StatementEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, types.StatementEntry{
			Type:        rec.Type,
			Amount:      rec.Amount,
			Date:        rec.CreatedAt.Format(time.RFC3339),
			Status:      rec.Status,
			Description: rec.Description,
		})
	}
	return out, nil
}

// Balance reports the account's current balance.
func (e *TransactionEngine) Balance(ctx context.Context, accountID string) (int64, error) {
	bal, err := e.ledger.Balance(ctx, accountID)
	if err != nil {
		return 0, asNotFound(err, ErrAccountNotFound)
	}
	return bal, nil
}

// appendRecord writes a transaction record.  The money movement has
// already committed by the time this runs, so a failed write is logged
// rather than unwinding a dispense that physically happened.
func (e *TransactionEngine) appendRecord(ctx context.Context, rec store.TransactionRecord) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	if err := e.txs.Append(ctx, rec); err != nil && e.logger != nil {
		e.logger.Printf("transaction record write failed (%s %s %d): %v",
			rec.Type, rec.Status, rec.Amount, err)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
