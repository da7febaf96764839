package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/turtacn/CaseLens/pkg/errors"
)

// ReviewMetrics is the metric set of the review pipeline and its surfaces.
type ReviewMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPInFlight        GaugeVec

	// Decision backends
	BackendFetchTotal    CounterVec
	BackendFetchDuration HistogramVec

	// Derivation
	DerivedEventsTotal CounterVec
	DerivationDuration HistogramVec

	// Cache and coordinator
	CacheHitsTotal    CounterVec
	CacheMissesTotal  CounterVec
	StaleDroppedTotal CounterVec

	// Messaging
	MessagesTotal          CounterVec
	MessageProcessDuration HistogramVec
}

// NewReviewMetrics registers the review metric families on collector.
func NewReviewMetrics(collector MetricsCollector) *ReviewMetrics {
	return &ReviewMetrics{
		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "HTTP requests served", "method", "route", "status"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", nil, "method", "route"),
		HTTPInFlight:        collector.RegisterGauge("http_requests_in_flight", "HTTP requests being served", "route"),

		BackendFetchTotal:    collector.RegisterCounter("backend_fetch_total", "Decision backend calls by endpoint and outcome", "endpoint", "result", "code"),
		BackendFetchDuration: collector.RegisterHistogram("backend_fetch_duration_seconds", "Decision backend call latency", nil, "endpoint"),

		DerivedEventsTotal: collector.RegisterCounter("derived_audit_events_total", "Audit events produced by timeline source", "source"),
		DerivationDuration: collector.RegisterHistogram("derivation_duration_seconds", "Audit timeline derivation latency", []float64{.0005, .001, .005, .01, .05, .1, .5}, "source"),

		CacheHitsTotal:    collector.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal:  collector.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		StaleDroppedTotal: collector.RegisterCounter("stale_results_dropped_total", "Responses discarded because the active case changed", "kind"),

		MessagesTotal:          collector.RegisterCounter("messages_total", "Kafka messages by topic, direction and outcome", "topic", "direction", "result"),
		MessageProcessDuration: collector.RegisterHistogram("message_process_duration_seconds", "Consumed message handling latency", nil, "topic"),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveFetch records one decision backend call.
func (m *ReviewMetrics) ObserveFetch(endpoint string, d time.Duration, err error) {
	m.BackendFetchTotal.WithLabelValues(endpoint, result(err), string(errors.GetCode(err))).Inc()
	m.BackendFetchDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *ReviewMetrics) ObserveDerivation(source string, events int, d time.Duration) {
	m.DerivedEventsTotal.WithLabelValues(source).Add(float64(events))
	m.DerivationDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *ReviewMetrics) ObserveCache(cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func (m *ReviewMetrics) IncStaleDropped(kind string) {
	m.StaleDroppedTotal.WithLabelValues(kind).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *ReviewMetrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveMessage records a produced ("out") or consumed ("in") message.
// d is only recorded for consumed messages.
func (m *ReviewMetrics) ObserveMessage(topic, direction string, d time.Duration, err error) {
	m.MessagesTotal.WithLabelValues(topic, direction, result(err)).Inc()
	if direction == "in" {
		m.MessageProcessDuration.WithLabelValues(topic).Observe(d.Seconds())
	}
}

// InstrumentHandler wraps next with request counting under a fixed route label.
func (m *ReviewMetrics) InstrumentHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inflight := m.HTTPInFlight.WithLabelValues(route)
		inflight.Inc()
		defer inflight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.ObserveHTTPRequest(r.Method, route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
