package store

import (
	"context"
	"time"

	"github.com/ksundaram/teller/internal/teller/types"
)

type CardRecord struct {
	ID                 string
	Number             string
	AccountID          string
	PINHash            []byte // bcrypt verifier; the raw PIN is never stored
	Status             types.CardStatus
	FailedAttempts     int
	LockedUntil        *time.Time // non-nil iff Status == TEMP_BLOCKED
	ExpiresAt          time.Time
	DailyWithdrawLimit int64
}

type CardStore interface {
	GetByNumber(ctx context.Context, cardNumber string) (CardRecord, error)
	GetByID(ctx context.Context, cardID string) (CardRecord, error)
	GetByAccount(ctx context.Context, accountID string) (CardRecord, error)

	// UpdateAuthState persists the authenticator's read-modify-write of the
	// lockout state machine: attempt counter, lock expiry and status move
	// together so the lock-expiry/status invariant cannot be split.
	UpdateAuthState(ctx context.Context, cardID string, failedAttempts int, lockedUntil *time.Time, status types.CardStatus) error

	// SetPINHash replaces the stored verifier and resets the attempt counter.
	SetPINHash(ctx context.Context, cardID string, hash []byte) error

	// SetStatus moves the card to an administrative status and clears any
	// temporary lock expiry; TEMP_BLOCKED is only ever entered through
	// UpdateAuthState, so leaving it must null the expiry too.
	SetStatus(ctx context.Context, cardID string, status types.CardStatus) error
}
