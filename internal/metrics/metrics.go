// Package metrics provides Prometheus metrics for the inspector service.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Feed load metrics
	FeedLoadsTotal     *prometheus.CounterVec
	FeedFetchDuration  *prometheus.HistogramVec
	FeedRecords        *prometheus.GaugeVec
	DecodeCacheLookups *prometheus.CounterVec
	SnapshotsCached    prometheus.Gauge

	// Registry database metrics, only collected for SQL backends
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	// logger for error reporting
	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	// cancel stops the DB stats collector goroutine
	cancel context.CancelFunc

	// wg tracks the DB stats collector goroutine for graceful shutdown
	wg sync.WaitGroup
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspector_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	feedLoadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_feed_loads_total",
			Help: "Feed loads by feed and outcome",
		},
		[]string{"feed", "outcome"},
	)

	feedFetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspector_feed_fetch_duration_seconds",
			Help:    "Time spent downloading a feed",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed"},
	)

	feedRecords := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inspector_feed_records",
			Help: "Records decoded by the most recent load, by source and feed",
		},
		[]string{"source", "feed"},
	)

	decodeCacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_decode_cache_lookups_total",
			Help: "Decode cache lookups by result",
		},
		[]string{"result"},
	)

	snapshotsCached := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_snapshots_cached",
		Help: "Snapshots currently held in the snapshot cache",
	})

	dbConnectionsOpen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_db_connections_open",
		Help: "Number of open database connections",
	})

	dbConnectionsInUse := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_db_connections_in_use",
		Help: "Number of database connections currently in use",
	})

	dbConnectionsIdle := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_db_connections_idle",
		Help: "Number of idle database connections",
	})

	dbWaitSecondsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_db_wait_seconds_total",
		Help: "Total time blocked waiting for a database connection",
	})

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		feedLoadsTotal,
		feedFetchDuration,
		feedRecords,
		decodeCacheLookups,
		snapshotsCached,
		dbConnectionsOpen,
		dbConnectionsInUse,
		dbConnectionsIdle,
		dbWaitSecondsTotal,
	)

	return &Metrics{
		Registry:            registry,
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		FeedLoadsTotal:      feedLoadsTotal,
		FeedFetchDuration:   feedFetchDuration,
		FeedRecords:         feedRecords,
		DecodeCacheLookups:  decodeCacheLookups,
		SnapshotsCached:     snapshotsCached,
		DBConnectionsOpen:   dbConnectionsOpen,
		DBConnectionsInUse:  dbConnectionsInUse,
		DBConnectionsIdle:   dbConnectionsIdle,
		DBWaitSecondsTotal:  dbWaitSecondsTotal,
		logger:              logger,
	}
}

// StartDBStatsCollector polls the registry's connection pool every interval.
// Only the first call starts a collector; Shutdown stops it.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}

	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	var lastWaitDuration time.Duration

	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				if m.logger != nil {
					m.logger.Error("panic in DB stats collector", "error", r)
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				waitDelta := stats.WaitDuration - lastWaitDuration
				if waitDelta > 0 {
					m.DBWaitSecondsTotal.Add(waitDelta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the collector, if any, and waits for it. It may be called
// more than once.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// ObserveFeedLoad records one feed's load outcome and, when it was fetched,
// how long the download took.
func (m *Metrics) ObserveFeedLoad(feed, outcome string, fetch time.Duration) {
	m.FeedLoadsTotal.WithLabelValues(feed, outcome).Inc()
	if fetch > 0 {
		m.FeedFetchDuration.WithLabelValues(feed).Observe(fetch.Seconds())
	}
}
