package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector manages Prometheus metrics for the claims engine
type Collector struct {
	analysesTotal     *prometheus.CounterVec
	analysisDuration  prometheus.Histogram
	damagesDetected   prometheus.Histogram
	estimateTotals    *prometheus.HistogramVec
	severityVerdicts  *prometheus.CounterVec
	reportsStored     prometheus.Counter
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewCollector registers and returns the metrics collector
func NewCollector() *Collector {
	return &Collector{
		analysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_engine_analyses_total",
			Help: "Total analysis requests by outcome",
		}, []string{"status"}),
		analysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "claims_engine_analysis_duration_seconds",
			Help:    "End-to-end analysis duration including detection",
			Buckets: prometheus.DefBuckets,
		}),
		damagesDetected: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "claims_engine_damages_detected",
			Help:    "Number of damages detected per analysis",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		estimateTotals: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claims_engine_estimate_total",
			Help:    "Estimated claim totals by currency",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"currency"}),
		severityVerdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_engine_severity_verdicts_total",
			Help: "Overall severity verdicts by level",
		}, []string{"severity"}),
		reportsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claims_engine_reports_stored_total",
			Help: "Reports persisted to the database",
		}),
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claims_engine_report_cache_hits_total",
			Help: "Report cache hits",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "claims_engine_report_cache_misses_total",
			Help: "Report cache misses",
		}),
		httpRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "claims_engine_http_requests_total",
			Help: "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claims_engine_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// RecordAnalysis records one analysis request outcome
func (c *Collector) RecordAnalysis(status string, duration time.Duration, damageCount int) {
	c.analysesTotal.WithLabelValues(status).Inc()
	c.analysisDuration.Observe(duration.Seconds())
	if status == "success" {
		c.damagesDetected.Observe(float64(damageCount))
	}
}

// RecordEstimate records a completed estimate
func (c *Collector) RecordEstimate(currency, severity string, total float64) {
	c.estimateTotals.WithLabelValues(currency).Observe(total)
	c.severityVerdicts.WithLabelValues(severity).Inc()
}

// RecordReportStored increments the stored-report counter
func (c *Collector) RecordReportStored() {
	c.reportsStored.Inc()
}

// RecordCacheHit increments the cache hit counter
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordHTTPRequest records one HTTP request
func (c *Collector) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
