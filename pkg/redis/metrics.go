package redis

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	redisRequestsTotal   *prometheus.CounterVec
	redisErrorsTotal     *prometheus.CounterVec
	redisRequestDuration *prometheus.HistogramVec
)

func init() {
	redisRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onramp_redis_requests_total",
			Help: "Total number of Redis requests by method.",
		},
		[]string{"method"},
	)
	redisErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onramp_redis_errors_total",
			Help: "Total number of Redis errors by method.",
		},
		[]string{"method"},
	)
	redisRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onramp_redis_request_duration_seconds",
			Help:    "Redis request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	prometheus.MustRegister(redisRequestsTotal, redisErrorsTotal, redisRequestDuration)
}

// MetricsClient wraps a KV to collect Prometheus metrics.
type MetricsClient struct {
	next KV
}

var _ KV = (*MetricsClient)(nil)

// NewMetricsClient creates an instrumented KV.
func NewMetricsClient(next KV) *MetricsClient {
	return &MetricsClient{next: next}
}

// Get instruments KV.Get.
func (m *MetricsClient) Get(ctx context.Context, key string) (string, error) {
	var result string
	err := m.observe("get", func() error {
		var err error
		result, err = m.next.Get(ctx, key)
		return err
	})
	return result, err
}

// Set instruments KV.Set.
func (m *MetricsClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.observe("set", func() error {
		return m.next.Set(ctx, key, value, ttl)
	})
}

// Delete instruments KV.Delete.
func (m *MetricsClient) Delete(ctx context.Context, key string) error {
	return m.observe("delete", func() error {
		return m.next.Delete(ctx, key)
	})
}

func (m *MetricsClient) observe(method string, fn func() error) error {
	timer := prometheus.NewTimer(redisRequestDuration.WithLabelValues(method))
	err := fn()
	timer.ObserveDuration()
	redisRequestsTotal.WithLabelValues(method).Inc()
	if err != nil && !IsNil(err) {
		redisErrorsTotal.WithLabelValues(method).Inc()
	}
	return err
}
