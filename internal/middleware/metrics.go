// Package middleware provides metrics for HTTP middleware components.
package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRateLimitRequests     = "rate_limit_requests_total"
	MetricRateLimitBlocked      = "rate_limit_blocked_total"
	MetricRateLimitRedisErrors  = "rate_limit_redis_errors_total"
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
	MetricHTTPRequestsTotal     = "http_requests_total"
	MetricHTTPRequestSizeBytes  = "http_request_size_bytes"
	MetricHTTPResponseSizeBytes = "http_response_size_bytes"
	MetricCallbacksTotal        = "zaver_callbacks_total"
	MetricCallbackFailures      = "zaver_callback_failures_total"
	MetricPaymentSessions       = "zaver_payment_sessions_total"
	MetricPaymentSettlements    = "zaver_payment_settlements_total"
	MetricRefundRequests        = "zaver_refund_requests_total"
)

// Metrics contains Prometheus metrics for the gateway.
// All operations are thread-safe.
type Metrics struct {
	rateLimitRequests    *prometheus.CounterVec
	rateLimitBlocked     *prometheus.CounterVec
	rateLimitRedisErrors prometheus.Counter
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestSize      *prometheus.HistogramVec
	httpResponseSize     *prometheus.HistogramVec
	callbacksTotal       *prometheus.CounterVec
	callbackFailures     *prometheus.CounterVec
	paymentSessions      prometheus.Counter
	paymentSettlements   prometheus.Counter
	refundRequests       *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rateLimitRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRateLimitRequests,
				Help: "Total number of rate limit checks by endpoint",
			},
			[]string{"endpoint", "key_type"},
		),
		rateLimitBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRateLimitBlocked,
				Help: "Total number of rate limit violations (blocked requests) by endpoint",
			},
			[]string{"endpoint", "key_type"},
		),
		rateLimitRedisErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricRateLimitRedisErrors,
				Help: "Total number of Redis errors during rate limiting (fail-open events)",
			},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestSizeBytes,
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8), // 100 B to ~100 MB
			},
			[]string{"method", "path", "status"},
		),
		httpResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPResponseSizeBytes,
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8), // 100 B to ~100 MB
			},
			[]string{"method", "path", "status"},
		),
		callbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCallbacksTotal,
				Help: "Total number of provider callbacks processed, by kind and reported status",
			},
			[]string{"kind", "status"},
		),
		callbackFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCallbackFailures,
				Help: "Total number of provider callbacks rejected, by kind and reason",
			},
			[]string{"kind", "reason"},
		),
		paymentSessions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricPaymentSessions,
				Help: "Total number of payment sessions opened",
			},
		),
		paymentSettlements: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricPaymentSettlements,
				Help: "Total number of payments marked settled",
			},
		),
		refundRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRefundRequests,
				Help: "Total number of refund requests sent to the provider, by result",
			},
			[]string{"result"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRateLimitRequests increments the rate limit requests counter.
func (m *Metrics) IncRateLimitRequests(endpoint, keyType string) {
	m.rateLimitRequests.WithLabelValues(endpoint, keyType).Inc()
}

// IncRateLimitBlocked increments the rate limit blocked counter.
func (m *Metrics) IncRateLimitBlocked(endpoint, keyType string) {
	m.rateLimitBlocked.WithLabelValues(endpoint, keyType).Inc()
}

// IncRateLimitRedisErrors increments the Redis error counter.
// This tracks fail-open events when Redis is unavailable.
func (m *Metrics) IncRateLimitRedisErrors() {
	m.rateLimitRedisErrors.Inc()
}

// IncCallback counts a processed provider callback.
// kind: "payment" or "refund". status: the provider-reported status.
func (m *Metrics) IncCallback(kind, status string) {
	m.callbacksTotal.WithLabelValues(kind, status).Inc()
}

// IncCallbackFailure counts a rejected provider callback.
// reason: e.g. "invalid_token", "invalid_key", "mismatched_payment_id".
func (m *Metrics) IncCallbackFailure(kind, reason string) {
	m.callbackFailures.WithLabelValues(kind, reason).Inc()
}

// IncPaymentSessions counts an opened payment session.
func (m *Metrics) IncPaymentSessions() {
	m.paymentSessions.Inc()
}

// IncPaymentSettlements counts a payment marked settled.
func (m *Metrics) IncPaymentSettlements() {
	m.paymentSettlements.Inc()
}

// IncRefundRequests counts a refund request by result ("ok" or "error").
func (m *Metrics) IncRefundRequests(result string) {
	m.refundRequests.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records HTTP request metrics.
func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration float64, requestSize, responseSize int64) {
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": status,
	}
	m.httpRequestDuration.With(labels).Observe(duration)
	m.httpRequestsTotal.With(labels).Inc()
	m.httpRequestSize.With(labels).Observe(float64(requestSize))
	m.httpResponseSize.With(labels).Observe(float64(responseSize))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rateLimitRequests,
		m.rateLimitBlocked,
		m.rateLimitRedisErrors,
		m.httpRequestDuration,
		m.httpRequestsTotal,
		m.httpRequestSize,
		m.httpResponseSize,
		m.callbacksTotal,
		m.callbackFailures,
		m.paymentSessions,
		m.paymentSettlements,
		m.refundRequests,
	}
}
