// Package metrics holds the process-wide Prometheus collectors. They are
// served on /metrics by promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveListeners = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mindmesh_live_listeners",
		Help: "Live query listeners currently attached, by collection.",
	}, []string{"collection"})

	SnapshotsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindmesh_snapshots_delivered_total",
		Help: "Snapshots delivered to listeners, by collection and source.",
	}, []string{"collection", "source"})

	ListenerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindmesh_listener_errors_total",
		Help: "Errors delivered to listeners, by collection and kind.",
	}, []string{"collection", "kind"})

	ChangesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindmesh_changes_published_total",
		Help: "Document change signals published, by collection.",
	}, []string{"collection"})

	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mindmesh_ws_connections",
		Help: "Open live WebSocket connections.",
	})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindmesh_messages_sent_total",
		Help: "Chat messages accepted for delivery.",
	})

	MessagesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindmesh_messages_rejected_total",
		Help: "Chat messages rejected before delivery, by reason.",
	}, []string{"reason"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindmesh_http_requests_total",
		Help: "HTTP requests served, by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mindmesh_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindmesh_rate_limited_total",
		Help: "Requests rejected by a rate limiter, by limiter.",
	}, []string{"limiter"})
)
