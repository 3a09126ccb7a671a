package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/syntrixbase/dockit/pkg/docstore"
)

// Metrics are the store's prometheus collectors.
type Metrics struct {
	Operations *prometheus.CounterVec
	Changes    *prometheus.CounterVec
	Deliveries prometheus.Counter
	Listeners  prometheus.Gauge
	Documents  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dockit_memory_operations_total",
			Help: "The total number of store operations",
		}, []string{"operation", "result"}),

		Changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dockit_memory_changes_total",
			Help: "The total number of document changes committed",
		}, []string{"type"}),

		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dockit_memory_listener_deliveries_total",
			Help: "The total number of change batches delivered to listeners",
		}),

		Listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockit_memory_listeners",
			Help: "The current number of registered listeners",
		}),

		Documents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dockit_memory_documents",
			Help: "The current number of documents per collection",
		}, []string{"collection"}),
	}

	if reg != nil {
		reg.MustRegister(m.Operations, m.Changes, m.Deliveries, m.Listeners, m.Documents)
	}
	return m
}

func (m *Metrics) observe(op docstore.Operation, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(string(op), result).Inc()
}
