package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the rendition server.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry                 *prometheus.Registry
	requestsTotal            prometheus.Counter
	errorsTotal              prometheus.Counter
	responsesTotal           *prometheus.CounterVec
	uploadsTotal             prometheus.Counter
	renditionsCompletedTotal prometheus.Counter
	transcodeFailuresTotal   prometheus.Counter
	transcodeDuration        *prometheus.HistogramVec
	streamBytesTotal         prometheus.Counter
	activeStreams            prometheus.Gauge
	jobsRunning              prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		responsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "video_http_responses_total",
			Help: "HTTP responses by route pattern and status code",
		}, []string{"route", "code"}),
		uploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_uploads_total",
			Help: "Total number of source videos accepted",
		}),
		renditionsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_renditions_completed_total",
			Help: "Total number of renditions written successfully",
		}),
		transcodeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_transcode_failures_total",
			Help: "Total number of engine invocations that failed",
		}),
		transcodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "video_transcode_duration_seconds",
			Help:    "Wall time of a single engine invocation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"quality"}),
		streamBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "video_stream_bytes_total",
			Help: "Total number of rendition bytes written to clients",
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "video_active_streams",
			Help: "Number of rendition responses currently streaming",
		}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "video_jobs_running",
			Help: "Number of transcode jobs not yet finished",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.responsesTotal,
		m.uploadsTotal,
		m.renditionsCompletedTotal,
		m.transcodeFailuresTotal,
		m.transcodeDuration,
		m.streamBytesTotal,
		m.activeStreams,
		m.jobsRunning,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// ObserveResponse counts one response for route with the given status.
func (m *Metrics) ObserveResponse(route string, status int) {
	if m == nil {
		return
	}
	m.responsesTotal.WithLabelValues(route, statusLabel(status)).Inc()
}

// IncUploads increments the accepted uploads counter.
func (m *Metrics) IncUploads() {
	if m == nil {
		return
	}
	m.uploadsTotal.Inc()
}

// ObserveTranscode records one engine invocation for quality.
func (m *Metrics) ObserveTranscode(quality string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.transcodeDuration.WithLabelValues(quality).Observe(d.Seconds())
	if ok {
		m.renditionsCompletedTotal.Inc()
	} else {
		m.transcodeFailuresTotal.Inc()
	}
}

// AddStreamBytes adds n to the streamed bytes counter.
func (m *Metrics) AddStreamBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.streamBytesTotal.Add(float64(n))
}

// StreamStarted increments the active streams gauge; the returned func decrements it.
func (m *Metrics) StreamStarted() func() {
	if m == nil {
		return func() {}
	}
	m.activeStreams.Inc()
	return m.activeStreams.Dec
}

// SetJobsRunning sets the running jobs gauge.
func (m *Metrics) SetJobsRunning(n int) {
	if m == nil {
		return
	}
	m.jobsRunning.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. running jobs).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
