// Package metrics provides Prometheus instrumentation for the pairbot relay:
// gauges for connection, waiting-queue, and active-pair counts, and counters
// for relayed messages, reports, and applied blocks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairbot_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// WaitingUsers tracks the current size of the waiting queue.
	WaitingUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairbot_waiting_users",
		Help: "Current number of users waiting for a partner",
	})

	// ActivePairs tracks the current number of active chat pairings.
	ActivePairs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairbot_active_pairs",
		Help: "Current number of active chat pairings",
	})

	// RelayedTotal counts relayed payloads, labeled by payload kind.
	RelayedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairbot_relayed_total",
		Help: "Total number of payloads relayed between partners",
	}, []string{"kind"})

	// ReportsTotal counts abuse reports filed.
	ReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairbot_reports_total",
		Help: "Total number of abuse reports filed",
	})

	// BlocksTotal counts blocks applied as a result of reports, labeled by
	// tier: "5m", "30m", "24h", or "permanent".
	BlocksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairbot_blocks_total",
		Help: "Total number of blocks applied by the report policy",
	}, []string{"tier"})

	// DeliveryFailures counts outbound deliveries that the transport rejected.
	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairbot_delivery_failures_total",
		Help: "Total number of failed outbound deliveries",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		WaitingUsers,
		ActivePairs,
		RelayedTotal,
		ReportsTotal,
		BlocksTotal,
		DeliveryFailures,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
