package dispatcher

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	turns *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fncs",
			Subsystem: "dispatcher",
			Name:      "turns_total",
			Help:      "Inbound events processed, by event kind and outcome.",
		}, []string{"event", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.turns)
	}
	return m
}

func (m *metrics) observe(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.turns.WithLabelValues(kind, outcome).Inc()
}
