// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Check metrics
	ChecksTotal       *prometheus.CounterVec
	CheckDuration     prometheus.Histogram
	EventsDetected    prometheus.Counter
	EventsByRiskLevel *prometheus.CounterVec
	BalancesFetched   prometheus.Counter
	WalletsMonitored  prometheus.Gauge

	// Solana RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	WSReconnects   prometheus.Counter

	// Metadata metrics
	MetadataCacheHits    prometheus.Counter
	MetadataCacheMisses  prometheus.Counter
	MetadataCacheSize    prometheus.Gauge
	MetadataSourceErrors *prometheus.CounterVec

	// Storage metrics
	SnapshotWrites  prometheus.Counter
	HistoryAppends  prometheus.Counter
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCheck prometheus.Gauge
	UptimeSeconds       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "airdrop_sentinel"
	}

	return &Metrics{
		// Check metrics
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "checks_total",
			Help:      "Total number of wallet checks by outcome",
		}, []string{"outcome"}),
		CheckDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "check_duration_seconds",
			Help:      "Wallet check duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "events_detected_total",
			Help:      "Total number of airdrop events detected",
		}),
		EventsByRiskLevel: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "events_by_risk_level_total",
			Help:      "Total number of airdrop events by risk level",
		}, []string{"level"}),
		BalancesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "balances_fetched_total",
			Help:      "Total number of token balances fetched",
		}),
		WalletsMonitored: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "wallets_monitored",
			Help:      "Number of wallets currently monitored",
		}),

		// Solana RPC metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of Solana RPC call errors by kind",
		}, []string{"kind"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnections",
		}),

		// Metadata metrics
		MetadataCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_hits_total",
			Help:      "Total number of metadata cache hits",
		}),
		MetadataCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_misses_total",
			Help:      "Total number of metadata cache misses",
		}),
		MetadataCacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "cache_size",
			Help:      "Number of mints in the metadata cache",
		}),
		MetadataSourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "source_errors_total",
			Help:      "Total number of metadata source fetch errors",
		}, []string{"source"}),

		// Storage metrics
		SnapshotWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_writes_total",
			Help:      "Total number of balance snapshot writes",
		}),
		HistoryAppends: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "history_appends_total",
			Help:      "Total number of event history appends",
		}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCheck: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_check_timestamp",
			Help:      "Unix timestamp of last successful wallet check",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCheck records a completed wallet check.
func (m *Metrics) RecordCheck(outcome string, durationSeconds float64) {
	m.ChecksTotal.WithLabelValues(outcome).Inc()
	m.CheckDuration.Observe(durationSeconds)
}

// RecordEvent records one detected airdrop event.
func (m *Metrics) RecordEvent(level string) {
	m.EventsDetected.Inc()
	m.EventsByRiskLevel.WithLabelValues(level).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
