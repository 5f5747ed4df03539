package store

import "context"

type MachineRecord struct {
	ID          string
	Location    string
	Online      bool
	CashBalance int64 // must equal Σ note_value*note_count at rest
}

// DenominationRecord is one (machine, note value) row of the cash drawer.
type DenominationRecord struct {
	MachineID string
	Value     int64
	Count     int64
}

type CashStore interface {
	GetMachine(ctx context.Context, machineID string) (MachineRecord, error)

	// ListDenominations returns the machine's notes ordered by value
	// descending, the order the greedy allocator consumes them in.
	ListDenominations(ctx context.Context, machineID string) ([]DenominationRecord, error)

	// ApplyDispense decrements the used note counts and the machine's
	// aggregate cash balance in a single write.  The allocation must have
	// been computed from counts read under the machine's service lock.
	ApplyDispense(ctx context.Context, machineID string, allocation map[int64]int64, amount int64) error

	// ApplyDeposit increments note counts (creating rows for new values)
	// and the aggregate cash balance in a single write.
	ApplyDeposit(ctx context.Context, machineID string, notes map[int64]int64, amount int64) error
}
