package service

import (
	"context"
	"log"
	"time"

	"github.com/ksundaram/teller/internal/teller/store"
)

// AuditTrail records security-relevant events (logins, logouts, PIN
// changes).  Writes are fire-and-forget: a failed audit write must not
// fail the operation that triggered it, so errors are only logged.
type AuditTrail struct {
	store  store.AuditStore
	logger *log.Logger
}

func NewAuditTrail(s store.AuditStore, logger *log.Logger) *AuditTrail {
	return &AuditTrail{store: s, logger: logger}
}

func (a *AuditTrail) Record(ctx context.Context, cardID, machineID, activity string, details map[string]string, status string) {
	if a == nil || a.store == nil {
		return
	}
	rec := store.AuditRecord{
		CardID:    cardID,
		MachineID: machineID,
		Activity:  activity,
		Details:   details,
		Status:    status,
		At:        time.Now().UTC(),
	}
	if err := a.store.RecordEvent(ctx, rec); err != nil && a.logger != nil {
		a.logger.Printf("audit write failed (%s/%s): %v", activity, status, err)
	}
}
