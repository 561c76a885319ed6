package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the KPI engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	recalcDuration    prometheus.Observer
	recalcTotal       *prometheus.CounterVec
	teacherDuration   prometheus.Observer
	teachersProcessed prometheus.Counter
	teachersFailed    prometheus.Counter
	lastRunScore      prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	recalcDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kpi_recalculation_duration_seconds",
		Help:    "Duration of full KPI recalculation runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	recalcTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kpi_recalculation_runs_total",
		Help: "Total KPI recalculation runs by trigger and outcome",
	}, []string{"trigger", "outcome"})

	teacherDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kpi_teacher_computation_seconds",
		Help:    "Duration of one teacher's KPI computation",
		Buckets: prometheus.DefBuckets,
	})

	teachersProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpi_teachers_processed_total",
		Help: "Teachers successfully scored across all runs",
	})

	teachersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kpi_teachers_failed_total",
		Help: "Per-teacher computation failures across all runs",
	})

	lastRunScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kpi_last_run_mean_score",
		Help: "Mean composite score of the most recent recalculation run",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses,
		dbQueryDuration, recalcDuration, recalcTotal, teacherDuration, teachersProcessed,
		teachersFailed, lastRunScore, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		dbQueryDuration:   dbQueryDuration,
		recalcDuration:    recalcDuration,
		recalcTotal:       recalcTotal,
		teacherDuration:   teacherDuration,
		teachersProcessed: teachersProcessed,
		teachersFailed:    teachersFailed,
		lastRunScore:      lastRunScore,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveTeacherComputation records one teacher's KPI computation time.
func (m *MetricsService) ObserveTeacherComputation(duration time.Duration) {
	if m == nil {
		return
	}
	m.teacherDuration.Observe(duration.Seconds())
}

// ObserveRecalculation records the outcome of one full batch run.
func (m *MetricsService) ObserveRecalculation(trigger string, duration time.Duration, processed, failed int, meanScore float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	if processed == 0 && failed > 0 {
		outcome = "failed"
	}
	m.recalcDuration.Observe(duration.Seconds())
	m.recalcTotal.WithLabelValues(trigger, outcome).Inc()
	m.teachersProcessed.Add(float64(processed))
	m.teachersFailed.Add(float64(failed))
	if processed > 0 {
		m.lastRunScore.Set(meanScore)
	}
}
