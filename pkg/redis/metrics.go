package redis

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redisRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_requests_total",
		Help: "Total number of Redis requests by method and result.",
	}, []string{"method", "result"})

	redisRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_request_duration_seconds",
		Help:    "Redis request latency distributions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// MetricsClient wraps Client to collect Prometheus metrics.
type MetricsClient struct {
	next *Client
}

// NewMetricsClient creates an instrumented Redis client.
func NewMetricsClient(next *Client) *MetricsClient {
	return &MetricsClient{next: next}
}

// observe records latency and outcome of a single call. A missing key counts as "miss", not "error".
func observe(method string, call func() error) error {
	start := time.Now()
	err := call()
	redisRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case errors.Is(err, Nil):
		result = "miss"
	case err != nil:
		result = "error"
	}
	redisRequestsTotal.WithLabelValues(method, result).Inc()

	return err
}

func (m *MetricsClient) Get(ctx context.Context, key string) (value string, err error) {
	err = observe("get", func() error {
		value, err = m.next.Get(ctx, key)
		return err
	})
	return value, err
}

func (m *MetricsClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return observe("set", func() error { return m.next.Set(ctx, key, value, ttl) })
}

func (m *MetricsClient) Delete(ctx context.Context, key string) error {
	return observe("delete", func() error { return m.next.Delete(ctx, key) })
}

// HealthCheck pings Redis through the instrumented path.
func (m *MetricsClient) HealthCheck(ctx context.Context) error {
	return observe("ping", func() error { return m.next.HealthCheck(ctx) })
}

func (m *MetricsClient) Close() error {
	return m.next.Close()
}
