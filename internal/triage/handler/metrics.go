package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	kestrelThreatsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kestrel_threats_total",
		Help: "Total number of stored threats by risk level.",
	}, []string{"risk_level"})

	kestrelRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kestrel_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	kestrelRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kestrel_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	kestrelAnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kestrel_analyses_total",
		Help: "Total analysis runs by resulting risk level.",
	}, []string{"risk_level"})

	kestrelFindingsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kestrel_findings_ingested_total",
		Help: "Total scanner findings ingested by tool.",
	}, []string{"tool"})

	kestrelHealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kestrel_health_checks_total",
		Help: "Total health check probes by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		kestrelRequestsTotal.WithLabelValues(method, path, status).Inc()
		kestrelRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAnalysis records one completed analysis run.
func RecordAnalysis(riskLevel string) {
	kestrelAnalysesTotal.WithLabelValues(riskLevel).Inc()
}

// RecordFindingsIngested records findings ingested from a tool.
func RecordFindingsIngested(tool string, count int) {
	kestrelFindingsIngestedTotal.WithLabelValues(tool).Add(float64(count))
}

// RecordHealthCheck records a health check probe result.
func RecordHealthCheck(success bool) {
	if success {
		kestrelHealthChecksTotal.WithLabelValues("success").Inc()
	} else {
		kestrelHealthChecksTotal.WithLabelValues("failure").Inc()
	}
}

// SetThreatsGauge sets the threat count gauge for a given risk level.
func SetThreatsGauge(riskLevel string, count float64) {
	kestrelThreatsTotal.WithLabelValues(riskLevel).Set(count)
}
