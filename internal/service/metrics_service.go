package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scheduling outcomes used as the outcome label of exam_scheduling_requests_total.
const (
	OutcomeScheduled = "scheduled"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	scheduleRequests   *prometheus.CounterVec
	scheduleDuration   prometheus.Observer
	scheduleFanOut     prometheus.Observer
	txRetries          prometheus.Counter
	sharedInconsistent prometheus.Counter
	notifications      *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
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

	scheduleRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_scheduling_requests_total",
		Help: "Scheduling requests by outcome and error kind",
	}, []string{"outcome", "kind"})

	scheduleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "exam_scheduling_duration_seconds",
		Help:    "End to end duration of scheduling requests",
		Buckets: prometheus.DefBuckets,
	})

	scheduleFanOut := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "exam_scheduling_fanout_records",
		Help:    "Number of records written per successful scheduling request",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})

	txRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_scheduling_tx_retries_total",
		Help: "Scheduling transactions restarted after a serialization failure",
	})

	sharedInconsistent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shared_subject_inconsistencies_total",
		Help: "Shared subject groups found holding more than one exam date",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "department_notifications_total",
		Help: "Department notifications by delivery result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration,
		scheduleRequests, scheduleDuration, scheduleFanOut, txRetries, sharedInconsistent, notifications,
		goroutines,
	)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		scheduleRequests:   scheduleRequests,
		scheduleDuration:   scheduleDuration,
		scheduleFanOut:     scheduleFanOut,
		txRetries:          txRetries,
		sharedInconsistent: sharedInconsistent,
		notifications:      notifications,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveScheduling records the outcome of one scheduling request. kind is empty on success.
func (m *MetricsService) ObserveScheduling(outcome, kind string, records int, duration time.Duration) {
	if m == nil {
		return
	}
	m.scheduleRequests.WithLabelValues(outcome, kind).Inc()
	m.scheduleDuration.Observe(duration.Seconds())
	if outcome == OutcomeScheduled {
		m.scheduleFanOut.Observe(float64(records))
	}
}

// IncTxRetry counts a restarted scheduling transaction.
func (m *MetricsService) IncTxRetry() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}

// IncSharedSubjectInconsistency counts a subject-name group holding several exam dates.
func (m *MetricsService) IncSharedSubjectInconsistency() {
	if m == nil {
		return
	}
	m.sharedInconsistent.Inc()
}

// RecordNotification counts a notification by result (delivered, failed, dropped).
func (m *MetricsService) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}
