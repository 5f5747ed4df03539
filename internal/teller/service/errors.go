package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/types"
)

// asNotFound maps a store-level missing row onto the operation's domain
// error; anything else passes through as an infrastructure failure.
func asNotFound(err, domain error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domain
	}
	return err
}

// Domain errors surfaced to the API layer.  Multi-step operations undo any
// prior mutation before returning one of these; only infrastructure errors
// (store failures) escape unwrapped.
var (
	ErrCardNotFound = errors.New("card not found")
	ErrCardNotActive = errors.New("card blocked or inactive")
	ErrCardInUse = errors.New("card already in use at another machine")
	ErrCardExpired = errors.New("card expired")

	ErrAccountNotFound = errors.New("account not found")

	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyActive = errors.New("session already active for this card")

	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMachineOffline  = errors.New("machine is offline")
	ErrCardInvalid     = errors.New("card is blocked, inactive or not valid for this account")
	ErrDailyLimitExceeded = errors.New("daily withdrawal limit exceeded")
	ErrInsufficientFunds  = errors.New("insufficient account balance")

	ErrInsufficientCash       = errors.New("machine has insufficient cash")
	ErrDenominationInfeasible = errors.New("machine cannot dispense this amount")

	ErrNoCashInserted   = errors.New("no cash inserted")
	ErrInvalidNoteCount = errors.New("invalid note count")

	ErrSameAccount         = errors.New("cannot transfer to the same account")
	ErrSenderNotFound      = errors.New("sender account not found")
	ErrReceiverNotFound    = errors.New("receiver account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrWrongOldPIN = errors.New("old PIN is incorrect")
	ErrSamePIN     = errors.New("new PIN cannot be the same as the old PIN")
)

// InvalidPINError reports a failed PIN comparison that has not yet tripped
// the lockout threshold.
type InvalidPINError struct {
	AttemptsLeft int
}

func (e *InvalidPINError) Error() string {
	return fmt.Sprintf("invalid PIN (%d attempts left)", e.AttemptsLeft)
}

// PINBlockedError reports the attempt that tripped the lockout threshold.
type PINBlockedError struct {
	UnlockAt time.Time
}

func (e *PINBlockedError) Error() string {
	return fmt.Sprintf("PIN blocked until %s", e.UnlockAt.Format(time.RFC3339))
}

// CardLockedError reports an attempt against a card whose temporary lock
// has not yet expired.
type CardLockedError struct {
	UnlockAt time.Time
}

func (e *CardLockedError) Error() string {
	return fmt.Sprintf("card temporarily blocked until %s", e.UnlockAt.Format(time.RFC3339))
}

// PermanentlyBlockedError reports a card in a state only back-office action
// can clear.
type PermanentlyBlockedError struct {
	Status types.CardStatus
}

func (e *PermanentlyBlockedError) Error() string {
	return fmt.Sprintf("card is permanently blocked (%s)", e.Status)
}

// NotDispensableError reports an amount that is not a multiple of the
// machine's smallest note.
type NotDispensableError struct {
	MinNote int64
}

func (e *NotDispensableError) Error() string {
	return fmt.Sprintf("amount must be a multiple of %d", e.MinNote)
}
