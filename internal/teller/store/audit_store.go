package store

import (
	"context"
	"time"
)

// AuditRecord captures one security-relevant action (login, logout, PIN
// change) for the append-only audit log.
type AuditRecord struct {
	CardID    string
	MachineID string
	Activity  string
	Details   map[string]string
	Status    string
	At        time.Time
}

type AuditStore interface {
	RecordEvent(ctx context.Context, rec AuditRecord) error
}
