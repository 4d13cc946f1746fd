package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

const metricsStartKey = "prometheus_start"

// Metrics exports request counters and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. Collectors that are already
// registered are reused, so several clients may share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: constants.MetricsNamespace,
		Name:      "requests_total",
		Help:      "Requests sent to Resource Manager, by operation, method and status code.",
	}, []string{"operation", "method", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: constants.MetricsNamespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency in seconds, including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "method"})

	var err error

	requests, err = register(reg, requests)
	if err != nil {
		return nil, err
	}

	duration, err = register(reg, duration)
	if err != nil {
		return nil, err
	}

	return &Metrics{requests: requests, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return collector, fmt.Errorf("registering metrics: %w", err)
}

// Interceptors returns the pair that feeds the collectors.
func (m *Metrics) Interceptors() (arm.RequestInterceptor, arm.ResponseInterceptor) {
	onRequest := func(ctx context.Context, req *arm.Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metricsStartKey] = time.Now()

		return nil
	}

	onResponse := func(ctx context.Context, req *arm.Request, resp *arm.Response) error {
		m.requests.WithLabelValues(req.Operation, req.Method, statusLabel(resp)).Inc()

		if start, ok := req.Metadata[metricsStartKey].(time.Time); ok {
			m.duration.WithLabelValues(req.Operation, req.Method).Observe(time.Since(start).Seconds())
		}

		return nil
	}

	return onRequest, onResponse
}

func statusLabel(resp *arm.Response) string {
	switch {
	case resp.StatusCode != 0:
		return strconv.Itoa(resp.StatusCode)
	case arm.IsCancelled(resp.Error):
		return "cancelled"
	default:
		return "error"
	}
}
