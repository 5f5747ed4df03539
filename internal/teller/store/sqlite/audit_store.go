package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dbpkg "github.com/ksundaram/teller/internal/db"
	"github.com/ksundaram/teller/internal/teller/store"
)

type AuditStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAuditStore(db *sql.DB, writer *dbpkg.Worker) *AuditStore {
	return &AuditStore{db: db, writer: writer}
}

func (s *AuditStore) RecordEvent(ctx context.Context, rec store.AuditRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}

	var details any
	if len(rec.Details) > 0 {
		b, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("RecordEvent marshal details: %w", err)
		}
		details = string(b)
	}

	var cardID, machineID any
	if rec.CardID != "" {
		cardID = rec.CardID
	}
	if rec.MachineID != "" {
		machineID = rec.MachineID
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_log(card_id, machine_id, activity_type, details, status, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`, cardID, machineID, rec.Activity, details, rec.Status, rec.At.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("RecordEvent insert: %w", err)
		}
		return nil
	})
}
