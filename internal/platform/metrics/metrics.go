// Package metrics exposes the hub's operational counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amora_ws_connections_active",
		Help: "Number of websocket connections currently open on this node.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amora_messages_sent_total",
		Help: "Messages successfully persisted and broadcast.",
	})
	MessagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amora_messages_failed_total",
		Help: "Message sends rejected by validation or persistence.",
	})
	NotificationsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amora_notifications_relayed_total",
		Help: "Out-of-band notifications delivered to local connections.",
	})
)
