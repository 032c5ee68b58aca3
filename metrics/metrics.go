package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported on /metrics
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec   // requests by route and status
	duration      *prometheus.HistogramVec // request latency by route
	bytesStreamed prometheus.Counter       // media bytes written to clients
	activeStreams prometheus.Gauge         // media responses currently being copied
	syncJobs      *prometheus.CounterVec   // finished sync jobs by status
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webplayer_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webplayer_http_request_duration_seconds",
				Help:    "HTTP request duration by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		bytesStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webplayer_media_bytes_streamed_total",
			Help: "Media bytes written to clients",
		}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webplayer_media_active_streams",
			Help: "Media responses currently being streamed",
		}),
		syncJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webplayer_sync_jobs_total",
				Help: "Finished sync jobs by status",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.bytesStreamed,
		m.activeStreams,
		m.syncJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the private registry, for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency. Unmatched routes share one label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StreamStarted marks a media copy as in flight
func (m *Metrics) StreamStarted() {
	m.activeStreams.Inc()
}

// StreamFinished records the bytes written by a finished media copy
func (m *Metrics) StreamFinished(written int64) {
	m.activeStreams.Dec()
	if written > 0 {
		m.bytesStreamed.Add(float64(written))
	}
}

// SyncJobFinished counts a job that reached a terminal status
func (m *Metrics) SyncJobFinished(status string) {
	m.syncJobs.WithLabelValues(status).Inc()
}
