package checker

import "github.com/prometheus/client_golang/prometheus"

// metrics mirrors the teacher's metrics.Averager convention: all fields are
// optional-by-nil-registerer, and every call site nil-checks before use so
// a Checker built with Options.Registerer == nil pays nothing for metrics.
type metrics struct {
	generated  prometheus.Counter
	unique     prometheus.Gauge
	queueDepth prometheus.Gauge
	boundary   prometheus.Counter
	discovery  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checker_states_generated_total",
			Help: "Total number of successor states produced by expansion, before dedup.",
		}),
		unique: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checker_states_unique",
			Help: "Number of distinct fingerprints inserted into the visited set.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "checker_queue_depth",
			Help: "Number of entries currently queued for expansion.",
		}),
		boundary: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checker_boundary_pruned_total",
			Help: "Total number of states discarded for exceeding MaxDepth or failing WithinBoundary.",
		}),
		discovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checker_property_discovery_total",
			Help: "Discoveries recorded per property name.",
		}, []string{"property"}),
	}

	for _, c := range []prometheus.Collector{m.generated, m.unique, m.queueDepth, m.boundary, m.discovery} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) incGenerated() {
	if m == nil {
		return
	}
	m.generated.Inc()
}

func (m *metrics) setUnique(n float64) {
	if m == nil {
		return
	}
	m.unique.Set(n)
}

func (m *metrics) setQueueDepth(n float64) {
	if m == nil {
		return
	}
	m.queueDepth.Set(n)
}

func (m *metrics) incBoundaryPruned() {
	if m == nil {
		return
	}
	m.boundary.Inc()
}

func (m *metrics) incDiscovery(property string) {
	if m == nil {
		return
	}
	m.discovery.WithLabelValues(property).Inc()
}
