package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LiveConnections counts currently registered WebSocket connections.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Number of live registered WebSocket connections",
	})

	// ConnectedUsers counts distinct users with at least one live connection.
	ConnectedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connected_users",
		Help: "Number of distinct users with at least one live connection",
	})

	// EventsPublished counts notifications handed to the hub, by kind.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_published_total",
		Help: "Notifications handed to the hub for fan-out",
	}, []string{"kind"})

	// SendFailures counts per-connection deliveries dropped because the
	// connection was dead or too slow.
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_send_failures_total",
		Help: "Per-connection delivery failures treated as disconnects",
	})

	// HandshakeFailures counts connections closed because the auth
	// handshake did not validate.
	HandshakeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_handshake_failures_total",
		Help: "Connections closed on auth handshake rejection",
	})
)
