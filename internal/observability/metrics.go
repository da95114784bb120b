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
	// Discovery metrics
	LogEventsReceived  prometheus.Counter
	PoolsDiscovered    *prometheus.CounterVec
	DiscoveriesSkipped *prometheus.CounterVec

	// Subscription metrics
	LiveSubscriptions prometheus.Gauge
	LogFeedReconnects prometheus.Counter
	AccountUpdates    prometheus.Counter
	DroppedMessages   prometheus.Counter

	// Session metrics
	OpenSessions   prometheus.Gauge
	SessionsOpened prometheus.Counter
	SessionsClosed *prometheus.CounterVec

	// Trading metrics
	OrdersPlaced        *prometheus.CounterVec
	QuoteRetries        prometheus.Counter
	ConfirmationLatency prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "raydium_sniper"
	}

	return &Metrics{
		LogEventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "log_events_received_total",
			Help:      "Total number of log notifications drained from the feed queue",
		}),
		PoolsDiscovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools_discovered_total",
			Help:      "Total number of pools registered by source program",
		}, []string{"program"}),
		DiscoveriesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "discoveries_skipped_total",
			Help:      "Total number of discoveries skipped by reason",
		}, []string{"reason"}),

		LiveSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subs",
			Name:      "live_subscriptions",
			Help:      "Current number of live account subscriptions",
		}),
		LogFeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subs",
			Name:      "log_feed_reconnects_total",
			Help:      "Total number of log feed reconnect attempts",
		}),
		AccountUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subs",
			Name:      "account_updates_total",
			Help:      "Total number of account balance updates delivered",
		}),
		DroppedMessages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subs",
			Name:      "dropped_messages_total",
			Help:      "Total number of malformed socket messages dropped",
		}),

		OpenSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "open_sessions",
			Help:      "Current number of open market sessions",
		}),
		SessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "opened_total",
			Help:      "Total number of market sessions opened",
		}),
		SessionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "closed_total",
			Help:      "Total number of market sessions closed by exit reason",
		}, []string{"reason"}),

		OrdersPlaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed by direction and outcome",
		}, []string{"direction", "outcome"}),
		QuoteRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "quote_retries_total",
			Help:      "Total number of quote retries for non-tradable routes",
		}),
		ConfirmationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from submission to confirmed transaction detail",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13},
		}),
	}
}

// Handler returns an HTTP handler serving the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
