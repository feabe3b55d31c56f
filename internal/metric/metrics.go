// Package metric defines the platform-level prometheus metrics exposed by the
// ordering service.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all service-level metrics.
type Metrics struct {
	ReordersTotal   *prometheus.CounterVec
	ReorderDuration *prometheus.HistogramVec
	ItemMutations   *prometheus.CounterVec
	ArchiveExports  *prometheus.CounterVec
}

// New creates a Metrics instance with all service metrics.
func New() *Metrics {
	return &Metrics{
		ReordersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ordercore",
				Subsystem: "reorder",
				Name:      "requests_total",
				Help:      "Total reorder requests by resource and outcome",
			},
			[]string{"resource", "status"},
		),
		ReorderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ordercore",
				Subsystem: "reorder",
				Name:      "duration_seconds",
				Help:      "Reorder request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource"},
		),
		ItemMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ordercore",
				Subsystem: "items",
				Name:      "mutations_total",
				Help:      "Item create/update/delete operations by resource and action",
			},
			[]string{"resource", "action"},
		),
		ArchiveExports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ordercore",
				Subsystem: "archives",
				Name:      "exports_total",
				Help:      "Archive export attempts by outcome",
			},
			[]string{"status"},
		),
	}
}

// Register registers all metrics on the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.ReordersTotal,
		m.ReorderDuration,
		m.ItemMutations,
		m.ArchiveExports,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveReorder records one reorder outcome with its latency.
func (m *Metrics) ObserveReorder(resource, status string, elapsed time.Duration) {
	m.ReordersTotal.WithLabelValues(resource, status).Inc()
	m.ReorderDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}
