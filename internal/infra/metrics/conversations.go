package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		MessagesHandled,
		OracleCalls,
		OracleLatency,
	)
}

var (
	// Inbound messages grouped by how the dispatcher resolved them:
	// admin_command, restart, locked, blocked, classified, the stage
	// branches, freeform, or error.
	MessagesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_handled_total",
			Help: "Inbound chat messages by dispatch outcome.",
		},
		[]string{"outcome"},
	)

	// Oracle completion calls by result.
	OracleCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_calls_total",
			Help: "Language-oracle completion calls by result.",
		},
		[]string{"result"},
	)

	OracleLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_call_duration_seconds",
			Help:    "Oracle completion latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
)
