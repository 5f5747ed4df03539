package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/types"
)

// AuthConfig holds the lockout policy for PIN verification.
type AuthConfig struct {
	// MaxAttempts is the failed-PIN count that trips a temporary block.
	MaxAttempts int

	// LockFor is how long a tripped card stays TEMP_BLOCKED.
	LockFor time.Duration
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{MaxAttempts: 3, LockFor: 15 * time.Minute}
}

// Authenticator owns card identity, PIN verification and the
// failed-attempt lockout state machine.  All of Authenticate runs under
// the card's lock, so concurrent attempts against the same card serialize
// and every counter increment observes the previous one.
type Authenticator struct {
	cards    store.CardStore
	accounts store.AccountStore
	audit    *AuditTrail
	locks    *LockTable
	cfg      AuthConfig
}

func NewAuthenticator(cards store.CardStore, accounts store.AccountStore, audit *AuditTrail, locks *LockTable, cfg AuthConfig) *Authenticator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.LockFor <= 0 {
		cfg.LockFor = 15 * time.Minute
	}
	return &Authenticator{cards: cards, accounts: accounts, audit: audit, locks: locks, cfg: cfg}
}

func (a *Authenticator) Authenticate(ctx context.Context, req types.ValidatePINRequest) (types.ValidatePINResult, error) {
	card, unlock, err := a.lockCardByNumber(ctx, req.CardNumber)
	if err != nil {
		return types.ValidatePINResult{}, err
	}
	defer unlock()

	now := time.Now().UTC()

	if card.ExpiresAt.Before(now) {
		if err := a.cards.SetStatus(ctx, card.ID, types.CardExpired); err != nil {
			return types.ValidatePINResult{}, err
		}
		a.loginFailed(ctx, card.ID, req.MachineID, "card expired")
		return types.ValidatePINResult{}, ErrCardExpired
	}

	if card.Status.PermanentlyBlocked() {
		a.loginFailed(ctx, card.ID, req.MachineID, "card permanently blocked")
		return types.ValidatePINResult{}, &PermanentlyBlockedError{Status: card.Status}
	}

	// Expired temporary lock: auto-unlock and keep evaluating with the
	// refreshed state in this same call.  The card lock is still held, so
	// there is no re-read race.
	if card.Status == types.CardTempBlocked && card.LockedUntil != nil && !card.LockedUntil.After(now) {
		if err := a.cards.UpdateAuthState(ctx, card.ID, 0, nil, types.CardActive); err != nil {
			return types.ValidatePINResult{}, err
		}
		card.FailedAttempts = 0
		card.LockedUntil = nil
		card.Status = types.CardActive
	}

	if card.Status == types.CardTempBlocked && card.LockedUntil != nil {
		a.loginFailed(ctx, card.ID, req.MachineID, "card temporarily blocked")
		return types.ValidatePINResult{}, &CardLockedError{UnlockAt: *card.LockedUntil}
	}

	if bcrypt.CompareHashAndPassword(card.PINHash, []byte(req.PIN)) != nil {
		attempts := card.FailedAttempts + 1

		if attempts >= a.cfg.MaxAttempts {
			until := now.Add(a.cfg.LockFor)
			if err := a.cards.UpdateAuthState(ctx, card.ID, attempts, &until, types.CardTempBlocked); err != nil {
				return types.ValidatePINResult{}, err
			}
			a.loginFailed(ctx, card.ID, req.MachineID, "pin blocked")
			return types.ValidatePINResult{}, &PINBlockedError{UnlockAt: until}
		}

		if err := a.cards.UpdateAuthState(ctx, card.ID, attempts, nil, card.Status); err != nil {
			return types.ValidatePINResult{}, err
		}
		a.loginFailed(ctx, card.ID, req.MachineID, "invalid pin")
		return types.ValidatePINResult{}, &InvalidPINError{AttemptsLeft: a.cfg.MaxAttempts - attempts}
	}

	if err := a.cards.UpdateAuthState(ctx, card.ID, 0, nil, types.CardActive); err != nil {
		return types.ValidatePINResult{}, err
	}

	acct, err := a.accounts.GetByID(ctx, card.AccountID)
	if err != nil {
		return types.ValidatePINResult{}, err
	}

	a.audit.Record(ctx, card.ID, req.MachineID, types.AuditLogin,
		map[string]string{"step": "pin_verified"}, types.AuditSuccess)

	return types.ValidatePINResult{
		CardID:        card.ID,
		AccountID:     card.AccountID,
		AccountNumber: acct.Number,
	}, nil
}

// ChangePIN verifies the old PIN and replaces the stored verifier.  Unlike
// Authenticate it does not touch the attempt counter on a wrong old PIN;
// the caller is already inside an authenticated session.
func (a *Authenticator) ChangePIN(ctx context.Context, req types.ChangePINRequest) error {
	card, unlock, err := a.lockCardByNumber(ctx, req.CardNumber)
	if err != nil {
		return err
	}
	defer unlock()

	if bcrypt.CompareHashAndPassword(card.PINHash, []byte(req.OldPIN)) != nil {
		a.audit.Record(ctx, card.ID, req.MachineID, types.AuditPinChange,
			map[string]string{"reason": "old pin incorrect"}, types.AuditFailed)
		return ErrWrongOldPIN
	}
	if req.OldPIN == req.NewPIN {
		return ErrSamePIN
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPIN), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := a.cards.SetPINHash(ctx, card.ID, hash); err != nil {
		return err
	}

	a.audit.Record(ctx, card.ID, req.MachineID, types.AuditPinChange, nil, types.AuditSuccess)
	return nil
}

// BlockCard permanently blocks a card (e.g. reported lost from the menu).
// It shares the card-id lock keyspace with Authenticate and ChangePIN, so a
// block cannot interleave with an in-flight auth write and get overwritten.
func (a *Authenticator) BlockCard(ctx context.Context, cardID string) error {
	unlock := a.locks.LockCard(cardID)
	defer unlock()

	if err := a.cards.SetStatus(ctx, cardID, types.CardBlocked); err != nil {
		return asNotFound(err, ErrCardNotFound)
	}
	return nil
}

// lockCardByNumber resolves the card number to its id, takes the card lock
// (the keyspace is the card id, shared with SessionManager and BlockCard)
// and re-reads the record under the lock.  The unlocked lookup only
// resolves number -> id; the snapshot returned to the caller is the locked
// re-read, so it cannot predate a concurrent status change.
func (a *Authenticator) lockCardByNumber(ctx context.Context, cardNumber string) (store.CardRecord, func(), error) {
	card, err := a.cards.GetByNumber(ctx, cardNumber)
	if err != nil {
		return store.CardRecord{}, nil, asNotFound(err, ErrCardNotFound)
	}

	unlock := a.locks.LockCard(card.ID)
	card, err = a.cards.GetByID(ctx, card.ID)
	if err != nil {
		unlock()
		return store.CardRecord{}, nil, asNotFound(err, ErrCardNotFound)
	}
	return card, unlock, nil
}

func (a *Authenticator) loginFailed(ctx context.Context, cardID, machineID, reason string) {
	a.audit.Record(ctx, cardID, machineID, types.AuditLogin,
		map[string]string{"reason": reason}, types.AuditFailed)
}
