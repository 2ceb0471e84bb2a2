package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Marketplace API metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tender",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Chat
	MessagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "chat",
			Name:      "messages_sent_total",
			Help:      "Total chat messages stored",
		},
	)

	RoomsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "chat",
			Name:      "rooms_created_total",
			Help:      "Total chat rooms created",
		},
	)

	ActiveRoomStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tender",
			Subsystem: "chat",
			Name:      "active_room_streams",
			Help:      "Open websocket room streams",
		},
	)

	LiveEventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "chat",
			Name:      "live_events_dropped_total",
			Help:      "Live events dropped before reaching a room view",
		},
		[]string{"reason"},
	)

	// Marketplace
	TendersAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "marketplace",
			Name:      "tenders_awarded_total",
			Help:      "Total tenders awarded through request acceptance",
		},
	)

	TendersExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "marketplace",
			Name:      "tenders_expired_total",
			Help:      "Total tenders closed by the expiry job",
		},
	)

	// Notifications
	EmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "notifications",
			Name:      "emails_total",
			Help:      "Email delivery attempts by outcome",
		},
		[]string{"kind", "status"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tender",
			Subsystem: "notifications",
			Name:      "queue_depth",
			Help:      "Notification jobs waiting for delivery",
		},
	)

	// Attachments
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "attachments",
			Name:      "uploads_total",
			Help:      "Total attachment uploads",
		},
		[]string{"status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tender",
			Subsystem: "attachments",
			Name:      "upload_bytes_total",
			Help:      "Total attachment bytes stored",
		},
	)
)
