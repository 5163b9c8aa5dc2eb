package chatroom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "chatroom"

// Metrics holds the prometheus collectors for the service. A single
// instance is shared by the room and the server and exposed over the
// HTTP gateway.
type Metrics struct {
	ActiveParticipants  prometheus.Gauge
	Broadcasts          prometheus.Counter
	FramesDelivered     prometheus.Counter
	FramesDropped       prometheus.Counter
	HistoryReplayed     prometheus.Counter
	ConnectionsAccepted prometheus.Counter
}

// NewMetrics creates the collectors and registers them with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveParticipants: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_participants",
			Help:      "Number of participants currently in the room.",
		}),
		Broadcasts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "broadcasts_total",
			Help:      "Total number of frames broadcast to the room.",
		}),
		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_delivered_total",
			Help:      "Total number of frames enqueued to participants.",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped because a participant could not accept them.",
		}),
		HistoryReplayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "history_frames_replayed_total",
			Help:      "Total number of history frames replayed to joining participants.",
		}),
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of TCP connections accepted.",
		}),
	}
}
