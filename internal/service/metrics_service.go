package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stemsi/coursehub-backend/internal/model"
)

// MetricsService owns the Prometheus registry. All methods are safe on a nil
// receiver so instrumentation can be left out in tests.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	feedEvents      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	courses         prometheus.Gauge
	liveSessions    prometheus.Gauge
}

// NewMetricsService registers the HTTP, store and live-session collectors.
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

	feedEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "course_feed_events_total",
		Help: "Change events received from the course feed",
	}, []string{"type"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "course_fetch_duration_seconds",
		Help:    "Duration of full course reads",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	courses := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "course_store_courses",
		Help: "Number of courses held by the store",
	})

	liveSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "course_live_sessions",
		Help: "Open WebSocket browsing sessions",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, feedEvents, fetchDuration, courses, liveSessions, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		feedEvents:      feedEvents,
		fetchDuration:   fetchDuration,
		courses:         courses,
		liveSessions:    liveSessions,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveChange counts a change event received by the store.
func (m *MetricsService) ObserveChange(t model.ChangeType) {
	if m == nil {
		return
	}
	m.feedEvents.WithLabelValues(string(t)).Inc()
}

// ObserveFetch records a full read.
func (m *MetricsService) ObserveFetch(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fetchDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// SetCourseCount sets the store size gauge.
func (m *MetricsService) SetCourseCount(n int) {
	if m == nil {
		return
	}
	m.courses.Set(float64(n))
}

// LiveSessionOpened increments the open session gauge.
func (m *MetricsService) LiveSessionOpened() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

// LiveSessionClosed decrements the open session gauge.
func (m *MetricsService) LiveSessionClosed() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}
