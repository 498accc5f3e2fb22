// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Label sets are closed: chore kinds, participants and a handful of outcome
// strings. Nothing derived from user input becomes a label.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chorechart_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chorechart_http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// ChoreToggles counts successful toggles by the resulting state.
	ChoreToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_chore_toggles_total",
			Help: "Chore completion toggles by chore kind and resulting state.",
		},
		[]string{"kind", "state"},
	)

	Comments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_comments_total",
			Help: "Comments added or deleted.",
		},
		[]string{"action"},
	)

	TallyChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_trash_tally_changes_total",
			Help: "Trash tally changes by participant and direction.",
		},
		[]string{"participant", "direction"},
	)

	Strikes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_strikes_total",
			Help: "Strikes issued by recipient.",
		},
		[]string{"recipient"},
	)

	Celebrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chorechart_celebrations_total",
			Help: "Celebrations triggered.",
		},
	)

	// Rejections counts ledger operations refused with a domain error.
	Rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_rejections_total",
			Help: "Ledger operations rejected by reason.",
		},
		[]string{"reason"},
	)

	PushSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_push_notifications_total",
			Help: "Push notification deliveries by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	Backups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorechart_backups_total",
			Help: "Database snapshots by outcome.",
		},
		[]string{"outcome"},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chorechart_websocket_clients",
			Help: "Connected websocket clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration, HTTPInflight,
		ChoreToggles, Comments, TallyChanges, Strikes, Celebrations, Rejections,
		PushSent, Backups, WebsocketClients,
	)
}
