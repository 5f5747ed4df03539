package store

import (
	"context"
	"time"
)

type SessionRecord struct {
	ID        string
	CardID    string
	MachineID string
	Active    bool
	StartedAt time.Time
	EndedAt   *time.Time
}

type SessionStore interface {
	Get(ctx context.Context, sessionID string) (SessionRecord, error)

	// ActiveByCard returns the card's active session, if any.  The
	// one-active-session-per-card invariant means there is at most one.
	ActiveByCard(ctx context.Context, cardID string) (SessionRecord, bool, error)

	Create(ctx context.Context, rec SessionRecord) error

	// End marks the session inactive and stamps its end time.  Ending an
	// already-ended session is a no-op; it must never reactivate one.
	End(ctx context.Context, sessionID string, at time.Time) error

	// ActiveStartedBefore lists active sessions begun before the cutoff,
	// for the expiry sweeper.
	ActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]SessionRecord, error)
}
