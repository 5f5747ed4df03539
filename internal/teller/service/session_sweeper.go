package service

import (
	"context"
	"log"
	"time"

	"github.com/ksundaram/teller/internal/teller/store"
)

// SessionSweeper periodically expires sessions that have outlived their
// TTL.  Expiry goes through SessionManager's own termination path, so a
// swept session ends exactly like an explicit logout and a client that
// stops responding cannot hold a card hostage.
//
// A TTL of 0 disables sweeping entirely.
type SessionSweeper struct {
	manager  *SessionManager
	sessions store.SessionStore
	ttl      time.Duration
	interval time.Duration
	logger   *log.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// SweeperConfig holds the parameters for NewSessionSweeper.
type SweeperConfig struct {
	// TTLMinutes is how long a session may stay active.
	// 0 means sessions never expire (sweeper will not start).
	TTLMinutes int

	// IntervalSeconds is how often the sweeper runs.  Defaults to 30.
	IntervalSeconds int
}

// NewSessionSweeper creates a sweeper but does not start it.
// Call Start to begin the background loop.
func NewSessionSweeper(m *SessionManager, s store.SessionStore, cfg SweeperConfig, logger *log.Logger) *SessionSweeper {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &SessionSweeper{
		manager:  m,
		sessions: s,
		ttl:      time.Duration(cfg.TTLMinutes) * time.Minute,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the background sweep loop.  It runs an immediate sweep on
// startup, then repeats on the configured interval.  The loop exits when
// ctx is cancelled or Stop is called.
func (s *SessionSweeper) Start(ctx context.Context) {
	if s.ttl <= 0 {
		s.logger.Printf("session sweeper disabled (ttl=0)")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	s.logger.Printf("session sweeper started (ttl=%s, interval=%s)", s.ttl, s.interval)
}

// Stop signals the sweeper to exit and waits for it to finish.
func (s *SessionSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *SessionSweeper) loop(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.ttl)
	expired, err := s.sessions.ActiveStartedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Printf("session sweep error: %v", err)
		return
	}

	ended := 0
	for _, rec := range expired {
		if err := s.manager.end(ctx, rec.ID, "timeout"); err != nil {
			s.logger.Printf("session sweep: end %s: %v", rec.ID, err)
			continue
		}
		ended++
	}
	if ended > 0 {
		s.logger.Printf("session sweep: ended %d sessions older than %s",
			ended, cutoff.Format(time.RFC3339))
	}
}
