package service

import (
	"context"

	"github.com/ksundaram/teller/internal/teller/store"
)

// Vault owns a machine's cash drawer.  Allocation and replenishment
// serialize per machine, and the machine's aggregate cash balance moves in
// the same store write as the note counts, keeping the
// balance-equals-sum-of-notes invariant intact at rest.
type Vault struct {
	cash  store.CashStore
	locks *LockTable
}

func NewVault(cash store.CashStore, locks *LockTable) *Vault {
	return &Vault{cash: cash, locks: locks}
}

// Dispense allocates notes for amount using the largest-first greedy pass
// and commits the decrements.  Preconditions short-circuit with no
// mutation: the amount must be positive, the machine online with enough
// total cash, and the amount a multiple of the smallest note on hand.
func (v *Vault) Dispense(ctx context.Context, machineID string, amount int64) (map[int64]int64, error) {
	unlock := v.locks.LockMachine(machineID)
	defer unlock()
	return v.dispenseHeld(ctx, machineID, amount)
}

func (v *Vault) dispenseHeld(ctx context.Context, machineID string, amount int64) (map[int64]int64, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	m, err := v.cash.GetMachine(ctx, machineID)
	if err != nil {
		return nil, asNotFound(err, ErrMachineOffline)
	}
	if !m.Online {
		return nil, ErrMachineOffline
	}

	notes, err := v.cash.ListDenominations(ctx, machineID)
	if err != nil {
		return nil, err
	}

	var totalCash int64
	for _, n := range notes {
		totalCash += n.Value * n.Count
	}
	// An empty denomination table also lands here: no notes, no cash.
	if len(notes) == 0 || totalCash < amount {
		return nil, ErrInsufficientCash
	}

	// notes come back ordered by value descending, so the smallest note on
	// hand is the last row.
	minNote := notes[len(notes)-1].Value
	if amount%minNote != 0 {
		return nil, &NotDispensableError{MinNote: minNote}
	}

	allocation := allocate(amount, notes)
	if allocation == nil {
		return nil, ErrDenominationInfeasible
	}

	if err := v.cash.ApplyDispense(ctx, machineID, allocation, amount); err != nil {
		return nil, err
	}
	return allocation, nil
}

// allocate runs the greedy pass: for each note value from largest to
// smallest, use as many as the remainder and the drawer allow.  Returns
// nil when the remainder cannot reach zero with the current note mix even
// though total cash was sufficient.
func allocate(amount int64, notes []store.DenominationRecord) map[int64]int64 {
	result := make(map[int64]int64)
	remaining := amount

	for _, n := range notes {
		use := remaining / n.Value
		if use > n.Count {
			use = n.Count
		}
		if use > 0 {
			result[n.Value] = use
			remaining -= use * n.Value
		}
	}

	if remaining != 0 {
		return nil
	}
	return result
}

// Replenish is the deposit-side counterpart: note counts increment
// (creating rows for values the drawer has not seen) and the aggregate
// balance grows by the contributed total.
func (v *Vault) Replenish(ctx context.Context, machineID string, notes map[int64]int64) error {
	unlock := v.locks.LockMachine(machineID)
	defer unlock()
	var amount int64
	for value, count := range notes {
		amount += value * count
	}
	return v.replenishHeld(ctx, machineID, notes, amount)
}

func (v *Vault) replenishHeld(ctx context.Context, machineID string, notes map[int64]int64, amount int64) error {
	return v.cash.ApplyDeposit(ctx, machineID, notes, amount)
}

// machineHeld reads the machine record for callers already holding its
// lock (engine precondition checks).
func (v *Vault) machineHeld(ctx context.Context, machineID string) (store.MachineRecord, error) {
	return v.cash.GetMachine(ctx, machineID)
}
