package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/ksundaram/teller/internal/db"
	"github.com/ksundaram/teller/internal/teller/store"
)

type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker) *SessionStore {
	return &SessionStore{db: db, writer: writer}
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (store.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, card_id, machine_id, is_active, started_at_ms, ended_at_ms
FROM sessions WHERE session_id = ?;
`, sessionID)
	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return store.SessionRecord{}, fmt.Errorf("%w: session %s", store.ErrNotFound, sessionID)
	}
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("Get session %s: %w", sessionID, err)
	}
	return rec, nil
}

func (s *SessionStore) ActiveByCard(ctx context.Context, cardID string) (store.SessionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, card_id, machine_id, is_active, started_at_ms, ended_at_ms
FROM sessions WHERE card_id = ? AND is_active = 1;
`, cardID)
	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return store.SessionRecord{}, false, nil
	}
	if err != nil {
		return store.SessionRecord{}, false, fmt.Errorf("ActiveByCard %s: %w", cardID, err)
	}
	return rec, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (store.SessionRecord, error) {
	var (
		rec       store.SessionRecord
		active    int
		startedMs int64
		endedMs   sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &rec.CardID, &rec.MachineID, &active, &startedMs, &endedMs); err != nil {
		return store.SessionRecord{}, err
	}
	rec.Active = active == 1
	rec.StartedAt = time.UnixMilli(startedMs).UTC()
	if endedMs.Valid {
		t := time.UnixMilli(endedMs.Int64).UTC()
		rec.EndedAt = &t
	}
	return rec, nil
}

func (s *SessionStore) Create(ctx context.Context, rec store.SessionRecord) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		active := 0
		if rec.Active {
			active = 1
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions(session_id, card_id, machine_id, is_active, started_at_ms)
VALUES (?, ?, ?, ?, ?);
`, rec.ID, rec.CardID, rec.MachineID, active, rec.StartedAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("Create session %s: %w", rec.ID, err)
		}
		return nil
	})
}

func (s *SessionStore) End(ctx context.Context, sessionID string, at time.Time) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE session_id = ?;`, sessionID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: session %s", store.ErrNotFound, sessionID)
		}
		if err != nil {
			return fmt.Errorf("End session %s: %w", sessionID, err)
		}

		// Only active rows are touched, so a second End is a no-op and can
		// never reactivate or re-stamp a session.
		if _, err := tx.ExecContext(ctx, `
UPDATE sessions
SET is_active = 0, ended_at_ms = ?
WHERE session_id = ? AND is_active = 1;
`, at.UTC().UnixMilli(), sessionID); err != nil {
			return fmt.Errorf("End session %s: %w", sessionID, err)
		}
		return nil
	})
}

func (s *SessionStore) ActiveStartedBefore(ctx context.Context, cutoff time.Time) ([]store.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, card_id, machine_id, is_active, started_at_ms, ended_at_ms
FROM sessions
WHERE is_active = 1 AND started_at_ms < ?;
`, cutoff.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("ActiveStartedBefore: %w", err)
	}
	defer rows.Close()

	var out []store.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("ActiveStartedBefore scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
