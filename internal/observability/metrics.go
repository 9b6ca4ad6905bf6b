package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	ConnectorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_requests_total",
			Help: "Total number of connector operations by source type and outcome",
		},
		[]string{"source_type", "operation", "outcome"},
	)
	ConnectorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_request_duration_seconds",
			Help:    "Connector operation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source_type", "operation"},
	)

	JobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type"},
	)
	JobsProcessing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobs_processing",
			Help: "Number of jobs currently processing",
		},
		[]string{"type"},
	)
	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_completed_total",
			Help: "Total number of jobs completed",
		},
		[]string{"type"},
	)
	JobsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_failed_total",
			Help: "Total number of jobs failed",
		},
		[]string{"type"},
	)

	RecordsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_ingested_total",
			Help: "Total number of ingested records by validation status",
		},
		[]string{"source_type", "status"},
	)

	// Analysis outcome distributions
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Price movement analysis duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)
	PriceChangeHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_percentage_change",
			Help:    "Distribution of overall percentage change across analyses",
			Buckets: []float64{-50, -20, -10, -5, -1, 0, 1, 5, 10, 20, 50},
		},
	)
	AnalysisCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_cache_hits_total",
			Help: "Total number of analyses served from the result cache",
		},
	)
	AnalysisCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_cache_misses_total",
			Help: "Total number of analyses computed on a cache miss",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(ConnectorRequestsTotal)
	prometheus.MustRegister(ConnectorRequestDuration)
	prometheus.MustRegister(JobsEnqueuedTotal)
	prometheus.MustRegister(JobsProcessing)
	prometheus.MustRegister(JobsCompletedTotal)
	prometheus.MustRegister(JobsFailedTotal)
	prometheus.MustRegister(RecordsIngestedTotal)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(PriceChangeHistogram)
	prometheus.MustRegister(AnalysisCacheHitsTotal)
	prometheus.MustRegister(AnalysisCacheMissesTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveConnectorRequest records one connector operation (connect, fetch page,
// test) against a source.
func ObserveConnectorRequest(sourceType, operation string, dur time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	ConnectorRequestsTotal.WithLabelValues(sourceType, operation, outcome).Inc()
	ConnectorRequestDuration.WithLabelValues(sourceType, operation).Observe(dur.Seconds())
}

func EnqueueJob(jobType string) {
	JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
}

func StartProcessingJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Inc()
}

func CompleteJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsCompletedTotal.WithLabelValues(jobType).Inc()
}

func FailJob(jobType string) {
	JobsProcessing.WithLabelValues(jobType).Dec()
	JobsFailedTotal.WithLabelValues(jobType).Inc()
}

// ObserveIngestedRecords accumulates per-status record counts for one batch.
func ObserveIngestedRecords(sourceType string, valid, warning, invalid int) {
	if valid > 0 {
		RecordsIngestedTotal.WithLabelValues(sourceType, "valid").Add(float64(valid))
	}
	if warning > 0 {
		RecordsIngestedTotal.WithLabelValues(sourceType, "warning").Add(float64(warning))
	}
	if invalid > 0 {
		RecordsIngestedTotal.WithLabelValues(sourceType, "invalid").Add(float64(invalid))
	}
}

// ObserveAnalysis records the duration and resulting overall change of a
// completed analysis. A nil change (zero-start baseline) skips the histogram.
func ObserveAnalysis(dur time.Duration, pctChange *float64) {
	AnalysisDuration.Observe(dur.Seconds())
	if pctChange != nil {
		PriceChangeHistogram.Observe(*pctChange)
	}
}

func CacheHit()  { AnalysisCacheHitsTotal.Inc() }
func CacheMiss() { AnalysisCacheMissesTotal.Inc() }
