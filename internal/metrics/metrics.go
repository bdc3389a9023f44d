// Package metrics provides Prometheus instruments for Talespring.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "talespring"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Drop reasons for library items.
const (
	DropNotFound = "not_found"
	DropError    = "error"
)

// Metrics holds every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// ReadIncrements counts fire-and-forget read count increments.
	ReadIncrements *prometheus.CounterVec
	// Toggles counts server-side relation toggles.
	Toggles *prometheus.CounterVec
	// LibraryDropped counts relation entries left out of a library view.
	LibraryDropped *prometheus.CounterVec
	// LibraryBuild measures library view assembly.
	LibraryBuild prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers the instruments on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReadIncrements: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "read_increments_total",
				Help:      "Read count increments by result",
			},
			[]string{"result"},
		),
		Toggles: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relation_toggles_total",
				Help:      "Relation toggles by kind and result",
			},
			[]string{"kind", "result"},
		),
		LibraryDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "library_items_dropped_total",
				Help:      "Library entries omitted because the content could not be loaded",
			},
			[]string{"reason"},
		),
		LibraryBuild: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "library_build_duration_seconds",
			Help:      "Duration of library view assembly in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		gatherer: reg,
	}
}

// NewWithRuntime registers the Go runtime and process collectors as well.
func NewWithRuntime() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// RecordRead records one read count increment.
func (m *Metrics) RecordRead(err error) {
	if m == nil {
		return
	}
	m.ReadIncrements.WithLabelValues(result(err)).Inc()
}

// RecordToggle records one toggle of kind.
func (m *Metrics) RecordToggle(kind string, err error) {
	if m == nil {
		return
	}
	m.Toggles.WithLabelValues(kind, result(err)).Inc()
}

// RecordDrop records one library entry left out.
func (m *Metrics) RecordDrop(reason string) {
	if m == nil {
		return
	}
	m.LibraryDropped.WithLabelValues(reason).Inc()
}

// ObserveLibraryBuild records the time since start.
func (m *Metrics) ObserveLibraryBuild(start time.Time) {
	if m == nil {
		return
	}
	m.LibraryBuild.Observe(time.Since(start).Seconds())
}
