package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ksundaram/teller/internal/config"
	"github.com/ksundaram/teller/internal/db"
	"github.com/ksundaram/teller/internal/httpapi"
	"github.com/ksundaram/teller/internal/metrics"
	"github.com/ksundaram/teller/internal/teller/service"
	"github.com/ksundaram/teller/internal/teller/store/sqlite"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "teller-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer sqlDB.Close()

	if cfg.Env == "dev" {
		hash, err := bcrypt.GenerateFromPassword([]byte("4321"), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatalf("hash dev pin: %v", err)
		}
		if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{PINHash: hash}); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
	}

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	// Stores
	cardStore := sqlite.NewCardStore(sqlDB, writer)
	accountStore := sqlite.NewAccountStore(sqlDB, writer)
	cashStore := sqlite.NewCashStore(sqlDB, writer)
	sessionStore := sqlite.NewSessionStore(sqlDB, writer)
	txStore := sqlite.NewTransactionStore(sqlDB, writer)
	auditStore := sqlite.NewAuditStore(sqlDB, writer)

	// Services
	locks := service.NewLockTable()
	audit := service.NewAuditTrail(auditStore, logger)
	collector := metrics.NewCollector()

	auth := service.NewAuthenticator(cardStore, accountStore, audit, locks, service.AuthConfig{
		MaxAttempts: cfg.MaxPINAttempts,
		LockFor:     time.Duration(cfg.LockMinutes) * time.Minute,
	})
	sessions := service.NewSessionManager(sessionStore, cardStore, audit, locks)
	ledger := service.NewLedger(accountStore, locks)
	vault := service.NewVault(cashStore, locks)
	engine := service.NewTransactionEngine(cardStore, accountStore, txStore, ledger, vault, locks, collector, logger)

	sweeper := service.NewSessionSweeper(sessions, sessionStore, service.SweeperConfig{
		TTLMinutes:      cfg.SessionTTLMinutes,
		IntervalSeconds: cfg.SweepIntervalSeconds,
	}, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	metricsSrv := collector.StartServer(cfg.MetricsAddr, logger)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Auth:     auth,
		Sessions: sessions,
		Engine:   engine,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
