package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the compositor.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	timelinesComposed  prometheus.Counter
	timelinesRejected  prometheus.Counter
	segmentsTotal      *prometheus.CounterVec
	eventsIgnoredTotal *prometheus.CounterVec
	openTimelines      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the compositor.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	timelinesComposed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_timelines_composed_total",
		Help: "Total number of timelines successfully turned into segments",
	})
	timelinesRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "compositor_timelines_rejected_total",
		Help: "Total number of timelines rejected as malformed",
	})
	segmentsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_segments_total",
		Help: "Total number of segments emitted, by kind",
	}, []string{"kind"})
	eventsIgnoredTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compositor_events_ignored_total",
		Help: "Total number of non-playback events dropped during normalization, by type",
	}, []string{"type"})
	openTimelines := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "compositor_open_timelines",
		Help: "Number of recorded timelines that are not sealed",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		timelinesComposed,
		timelinesRejected,
		segmentsTotal,
		eventsIgnoredTotal,
		openTimelines,
	)

	return &Metrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		errorsTotal:        errorsTotal,
		timelinesComposed:  timelinesComposed,
		timelinesRejected:  timelinesRejected,
		segmentsTotal:      segmentsTotal,
		eventsIgnoredTotal: eventsIgnoredTotal,
		openTimelines:      openTimelines,
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncTimelinesComposed increments the composed timelines counter.
func (m *Metrics) IncTimelinesComposed() {
	m.timelinesComposed.Inc()
}

// IncTimelinesRejected increments the rejected timelines counter.
func (m *Metrics) IncTimelinesRejected() {
	m.timelinesRejected.Inc()
}

// AddSegments adds n emitted segments of the given kind.
func (m *Metrics) AddSegments(kind string, n int) {
	m.segmentsTotal.WithLabelValues(kind).Add(float64(n))
}

// IncEventsIgnored increments the ignored events counter for eventType.
func (m *Metrics) IncEventsIgnored(eventType string) {
	m.eventsIgnoredTotal.WithLabelValues(eventType).Inc()
}

// SetOpenTimelines sets the open timelines gauge.
func (m *Metrics) SetOpenTimelines(n int) {
	m.openTimelines.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. open timelines).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
