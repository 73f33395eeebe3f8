package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics on a private registry so the
// /metrics endpoint exposes only what we register here.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	rateLimited  prometheus.Counter

	responsesSubmitted *prometheus.CounterVec
	responsesMerged    prometheus.Counter
	submissionErrors   *prometheus.CounterVec
	reportsGenerated   *prometheus.CounterVec
	periodsClosed      prometheus.Counter
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Collector{
		registry: registry,
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clima",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "clima",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		responsesSubmitted: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima",
			Subsystem: "survey",
			Name:      "responses_submitted_total",
			Help:      "Accepted submissions by section.",
		}, []string{"section"}),
		responsesMerged: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "clima",
			Subsystem: "survey",
			Name:      "responses_merged_total",
			Help:      "Submissions that merged into an existing response.",
		}),
		submissionErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima",
			Subsystem: "survey",
			Name:      "submission_errors_total",
			Help:      "Rejected submissions by reason.",
		}, []string{"reason"}),
		reportsGenerated: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima",
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Reports generated by kind.",
		}, []string{"kind"}),
		periodsClosed: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "clima",
			Subsystem: "catalog",
			Name:      "periods_closed_total",
			Help:      "Periods closed by the expiry sweep.",
		}),
	}
}

func (c *Collector) RecordHTTP(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) RecordSubmission(section string, merged bool) {
	c.responsesSubmitted.WithLabelValues(section).Inc()
	if merged {
		c.responsesMerged.Inc()
	}
}

func (c *Collector) RecordSubmissionError(reason string) {
	c.submissionErrors.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordReport(kind string) {
	c.reportsGenerated.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordPeriodsClosed(n int) {
	c.periodsClosed.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
