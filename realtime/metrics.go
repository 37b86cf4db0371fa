package realtime

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeApplied   = "applied"
	outcomeMalformed = "malformed"
	outcomeDuplicate = "duplicate"
	outcomeStale     = "stale"
)

type Metrics struct {
	events *prometheus.CounterVec
	views  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Inbound events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		views: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_views_open",
			Help: "Open booking views.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.events, m.views)
	}

	return m
}
