// Package metrics exposes per-entity operation counters and latencies to
// Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/catalog/internal/core"
)

const namespace = "catalog"

// Recorder implements core.Recorder on Prometheus collectors.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a Recorder registered on its own registry, together with the
// Go runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Wrapped CRUD operations by entity, method, status and outcome.",
		}, []string{"entity", "method", "status", "success"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of wrapped CRUD operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "method"}),
	}
	reg.MustRegister(
		r.operations,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records one wrapped operation.
func (r *Recorder) Observe(entity string, method core.Verb, status int, success bool, elapsed time.Duration) {
	r.operations.WithLabelValues(entity, string(method), strconv.Itoa(status), strconv.FormatBool(success)).Inc()
	r.duration.WithLabelValues(entity, string(method)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
