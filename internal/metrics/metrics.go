// Package metrics exposes the server's Prometheus collectors on a
// dedicated registry, served from a small standalone HTTP listener so the
// scrape surface stays off the transactional API port.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry    *prometheus.Registry
	processed   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	duration    prometheus.Histogram
	machineCash *prometheus.GaugeVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		processed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "teller_transactions_processed_total",
			Help: "Completed money-movement operations by type",
		}, []string{"type"}),
		failed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "teller_transactions_failed_total",
			Help: "Rejected money-movement operations by type",
		}, []string{"type"}),
		duration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "teller_transaction_duration_seconds",
			Help:    "Time taken to execute a money-movement operation",
			Buckets: prometheus.DefBuckets,
		}),
		machineCash: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "teller_machine_cash_balance",
			Help: "Aggregate cash held per machine",
		}, []string{"machine_id"}),
	}
}

// ObserveTransaction records one attempted money movement.  Safe on a nil
// Collector so tests can wire services without metrics.
func (c *Collector) ObserveTransaction(txType string, d time.Duration, success bool) {
	if c == nil {
		return
	}
	if success {
		c.processed.WithLabelValues(txType).Inc()
	} else {
		c.failed.WithLabelValues(txType).Inc()
	}
	c.duration.Observe(d.Seconds())
}

func (c *Collector) SetMachineCash(machineID string, balance int64) {
	if c == nil {
		return
	}
	c.machineCash.WithLabelValues(machineID).Set(float64(balance))
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr in a background goroutine and
// returns the server so the caller can shut it down.
func (c *Collector) StartServer(addr string, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()

	return srv
}
