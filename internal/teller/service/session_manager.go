package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ksundaram/teller/internal/teller/store"
	"github.com/ksundaram/teller/internal/teller/types"
)

// SessionManager owns the one-active-session-per-card invariant.  The
// check-then-create in Start runs under the card's lock, so two racing
// Start calls for the same card cannot both observe "no active session".
type SessionManager struct {
	sessions store.SessionStore
	cards    store.CardStore
	audit    *AuditTrail
	locks    *LockTable
}

func NewSessionManager(sessions store.SessionStore, cards store.CardStore, audit *AuditTrail, locks *LockTable) *SessionManager {
	return &SessionManager{sessions: sessions, cards: cards, audit: audit, locks: locks}
}

// InsertCard is the pre-authentication check when a card enters the slot:
// the card must exist, be ACTIVE, and not be mid-session elsewhere.
func (m *SessionManager) InsertCard(ctx context.Context, req types.InsertCardRequest) (types.InsertCardResult, error) {
	card, err := m.cards.GetByNumber(ctx, req.CardNumber)
	if err != nil {
		return types.InsertCardResult{}, asNotFound(err, ErrCardNotFound)
	}

	if card.Status != types.CardActive {
		m.audit.Record(ctx, card.ID, req.MachineID, types.AuditLogin,
			map[string]string{"reason": "card not active"}, types.AuditFailed)
		return types.InsertCardResult{}, ErrCardNotActive
	}

	if _, active, err := m.sessions.ActiveByCard(ctx, card.ID); err != nil {
		return types.InsertCardResult{}, err
	} else if active {
		m.audit.Record(ctx, card.ID, req.MachineID, types.AuditLogin,
			map[string]string{"reason": "card in use"}, types.AuditFailed)
		return types.InsertCardResult{}, ErrCardInUse
	}

	return types.InsertCardResult{CardID: card.ID}, nil
}

func (m *SessionManager) Start(ctx context.Context, req types.StartSessionRequest) (types.StartSessionResult, error) {
	unlock := m.locks.LockCard(req.CardID)
	defer unlock()

	if _, active, err := m.sessions.ActiveByCard(ctx, req.CardID); err != nil {
		return types.StartSessionResult{}, err
	} else if active {
		return types.StartSessionResult{}, ErrSessionAlreadyActive
	}

	if _, err := m.cards.GetByID(ctx, req.CardID); err != nil {
		return types.StartSessionResult{}, asNotFound(err, ErrCardNotFound)
	}

	rec := store.SessionRecord{
		ID:        uuid.NewString(),
		CardID:    req.CardID,
		MachineID: req.MachineID,
		Active:    true,
		StartedAt: time.Now().UTC(),
	}
	if err := m.sessions.Create(ctx, rec); err != nil {
		return types.StartSessionResult{}, err
	}

	m.audit.Record(ctx, req.CardID, req.MachineID, types.AuditLogin,
		map[string]string{"session_id": rec.ID}, types.AuditSuccess)

	return types.StartSessionResult{SessionID: rec.ID}, nil
}

// End terminates a session.  Ending an already-ended session succeeds
// without effect; it never reactivates one.  The expiry sweeper calls this
// same path, so timeouts and explicit logouts are indistinguishable in the
// audit log apart from their details.
func (m *SessionManager) End(ctx context.Context, sessionID string) error {
	return m.end(ctx, sessionID, "logout")
}

func (m *SessionManager) end(ctx context.Context, sessionID, cause string) error {
	rec, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return asNotFound(err, ErrSessionNotFound)
	}

	unlock := m.locks.LockCard(rec.CardID)
	defer unlock()

	if !rec.Active {
		return nil
	}
	if err := m.sessions.End(ctx, sessionID, time.Now().UTC()); err != nil {
		return asNotFound(err, ErrSessionNotFound)
	}

	m.audit.Record(ctx, rec.CardID, rec.MachineID, types.AuditLogout,
		map[string]string{"session_id": sessionID, "cause": cause}, types.AuditSuccess)
	return nil
}
