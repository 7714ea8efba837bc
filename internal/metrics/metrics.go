package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "embalafest",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embalafest",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "embalafest",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	autoCloseRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "embalafest",
			Subsystem: "auto_close",
			Name:      "runs_total",
			Help:      "Total number of auto-close firings.",
		},
	)

	autoCloseRegisters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embalafest",
			Subsystem: "auto_close",
			Name:      "registers_total",
			Help:      "Registers handled by auto-close, by outcome.",
		},
		[]string{"outcome"},
	)

	autoCloseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "embalafest",
			Subsystem: "auto_close",
			Name:      "run_duration_seconds",
			Help:      "Duration of auto-close firings.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	jobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embalafest",
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Background jobs processed, by type and result.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		autoCloseRuns,
		autoCloseRegisters,
		autoCloseDuration,
		jobsProcessed,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// RecordAutoCloseRun records one scheduler firing.
func RecordAutoCloseRun(closed, failed int, duration time.Duration) {
	autoCloseRuns.Inc()
	autoCloseRegisters.WithLabelValues("closed").Add(float64(closed))
	autoCloseRegisters.WithLabelValues("failed").Add(float64(failed))
	autoCloseDuration.Observe(duration.Seconds())
}

// RecordJob records the outcome of one background job.
func RecordJob(jobType string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	jobsProcessed.WithLabelValues(jobType, result).Inc()
}
