package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the target list service.
type Metrics struct {
	registry *prometheus.Registry

	FilterEvaluations prometheus.Counter
	ImportRows        *prometheus.CounterVec
	ImportDuration    *prometheus.HistogramVec
	ImportsInFlight   prometheus.Gauge
	SavedLists        prometheus.Gauge
	ContactsLoaded    prometheus.Gauge
}

// NewMetrics registers the service collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FilterEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "targetlist",
			Name:      "filter_evaluations_total",
			Help:      "Number of filter engine evaluations.",
		}),
		ImportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "targetlist",
			Name:      "import_rows_total",
			Help:      "Imported rows by source and outcome.",
		}, []string{"source", "outcome"}),
		ImportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "targetlist",
			Name:      "import_duration_seconds",
			Help:      "Duration of import batches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "status"}),
		ImportsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "targetlist",
			Name:      "imports_in_flight",
			Help:      "Imports currently running.",
		}),
		SavedLists: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "targetlist",
			Name:      "saved_lists",
			Help:      "Number of saved target lists.",
		}),
		ContactsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "targetlist",
			Name:      "contacts",
			Help:      "Number of contacts in the contact store.",
		}),
	}
	reg.MustRegister(
		m.FilterEvaluations,
		m.ImportRows,
		m.ImportDuration,
		m.ImportsInFlight,
		m.SavedLists,
		m.ContactsLoaded,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
