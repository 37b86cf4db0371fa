package hub

import "github.com/prometheus/client_golang/prometheus"

const (
	dropNoConn     = "closed_connection"
	dropSlow       = "buffer_full"
	dropNotMember  = "unsubscribed"
	dropMarshal    = "marshal"
	dropRelayError = "relay"
	dropRelayFull  = "relay_full"
)

type Metrics struct {
	connections   prometheus.Gauge
	subscriptions prometheus.Gauge
	published     *prometheus.CounterVec
	delivered     *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	stale         prometheus.Counter
}

// NewMetrics registers the hub collectors on reg. A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connections_open",
			Help: "Open websocket connections.",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_subscriptions",
			Help: "Active (connection, topic) subscriptions.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_published_total",
			Help: "Frames published, by topic kind.",
		}, []string{"topic_kind"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_delivered_total",
			Help: "Frames queued to a connection, by topic kind.",
		}, []string{"topic_kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_dropped_total",
			Help: "Frames dropped, by reason.",
		}, []string{"reason"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_stale_connections_total",
			Help: "Connections closed after missed heartbeats.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.connections, m.subscriptions, m.published, m.delivered, m.dropped, m.stale)
	}

	return m
}
