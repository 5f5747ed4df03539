package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/teller.db"

	// PIN lockout policy
	MaxPINAttempts int
	LockMinutes    int

	// Session expiry
	SessionTTLMinutes    int // 0 = sessions never expire
	SweepIntervalSeconds int // how often the sweeper runs (default 30)
}

func FromEnv() Config {
	addr := getenvDefault("TELLER_HTTP_ADDR", ":8080")
	metricsAddr := getenvDefault("TELLER_METRICS_ADDR", ":9090")

	env := strings.ToLower(getenvDefault("TELLER_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("TELLER_DB_PATH", "./data/teller.db")

	maxAttempts := getenvInt("TELLER_MAX_PIN_ATTEMPTS", 3)
	lockMinutes := getenvInt("TELLER_LOCK_MINUTES", 15)

	sessionTTL := getenvInt("TELLER_SESSION_TTL_MINUTES", 5)
	sweepInterval := getenvInt("TELLER_SWEEP_INTERVAL_SECONDS", 30)

	return Config{
		HTTPAddr:    addr,
		MetricsAddr: metricsAddr,
		Env:         env,
		DBPath:      dbPath,

		MaxPINAttempts: maxAttempts,
		LockMinutes:    lockMinutes,

		SessionTTLMinutes:    sessionTTL,
		SweepIntervalSeconds: sweepInterval,
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
