// Package metrics exposes marketplace counters and operation timings in the
// Prometheus format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

type Recorder struct {
	registry   *prometheus.Registry
	events     *prometheus.CounterVec
	operations *prometheus.HistogramVec
	failures   *prometheus.CounterVec
}

// New creates a recorder with its own registry so tests can build many.
func New(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Business events by name.",
		}, []string{"event"}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent holding the state lock per operation.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Operations that returned an error.",
		}, []string{"operation"}),
	}
	r.registry.MustRegister(
		r.events,
		r.operations,
		r.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Count(event string) {
	r.events.WithLabelValues(event).Inc()
}

func (r *Recorder) ObserveOperation(name string, took time.Duration, err error) {
	r.operations.WithLabelValues(name).Observe(took.Seconds())
	if err != nil {
		r.failures.WithLabelValues(name).Inc()
	}
}

// Handler serves the registry for scraping.
func (r *Recorder) Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}
