package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "library"

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	leaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "transitions_total",
			Help:      "Committed lease transitions by outcome.",
		},
		[]string{"outcome"},
	)

	leaseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "transition_failures_total",
			Help:      "Rejected or failed lease transitions by error kind.",
		},
		[]string{"kind"},
	)

	leaseRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "transition_retries_total",
			Help:      "Transition attempts repeated after an aborted transaction.",
		},
	)

	leaseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "transition_duration_seconds",
			Help:      "Wall time of a transition including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	activeLeases = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "active",
			Help:      "Books currently leased, as of the last reconcile run.",
		},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Background task executions.",
		},
		[]string{"task", "success"},
	)

	dbPoolAcquired = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_acquired_conns",
			Help:      "Connections currently acquired from the pool.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		leaseTransitions,
		leaseFailures,
		leaseRetries,
		leaseDuration,
		activeLeases,
		jobRuns,
		dbPoolAcquired,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// LeaseRecorder implements the engine's metrics hook.
type LeaseRecorder struct{}

func (LeaseRecorder) TransitionCommitted(outcome string, elapsed time.Duration) {
	leaseTransitions.WithLabelValues(outcome).Inc()
	leaseDuration.Observe(elapsed.Seconds())
}

func (LeaseRecorder) TransitionFailed(kind string, elapsed time.Duration) {
	leaseFailures.WithLabelValues(kind).Inc()
	leaseDuration.Observe(elapsed.Seconds())
}

func (LeaseRecorder) TransitionRetried() {
	leaseRetries.Inc()
}

// SetActiveLeases is updated by the reconcile job.
func SetActiveLeases(n int) {
	activeLeases.Set(float64(n))
}

func RecordJobRun(task string, success bool) {
	jobRuns.WithLabelValues(task, strconv.FormatBool(success)).Inc()
}

func SetPoolAcquired(n int32) {
	dbPoolAcquired.Set(float64(n))
}
