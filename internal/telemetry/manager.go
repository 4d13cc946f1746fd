// Package telemetry wires OpenTelemetry tracing and Prometheus metrics into
// the ARM client as interceptors.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

// Config holds tracing settings.
type Config struct {
	// Enabled turns on span export.
	Enabled bool

	// Endpoint is the OTLP gRPC collector address, for example "localhost:4317".
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// SamplingRate is the fraction of traces kept, 0.0 to 1.0.
	SamplingRate float64

	ServiceName    string
	ServiceVersion string
}

// Manager owns the lifecycle of the tracer provider.
type Manager struct {
	enabled        bool
	config         Config
	logger         arm.Logger
	tracerProvider *sdktrace.TracerProvider
}

// NewManager creates a manager. Nothing is started until Initialize.
func NewManager(cfg Config, logger arm.Logger) *Manager {
	if logger == nil {
		logger = arm.NopLogger{}
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = constants.DefaultServiceName
	}

	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = constants.ModuleVersion
	}

	return &Manager{
		enabled: cfg.Enabled,
		config:  cfg,
		logger:  logger,
	}
}

// Initialize creates the OTLP exporter and registers the tracer provider
// globally. Exporter failures disable tracing instead of failing the caller.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.Debug("OpenTelemetry is disabled", nil)

		return nil
	}

	exporter, err := m.createExporter(ctx)
	if err != nil {
		m.logger.Warn("OpenTelemetry exporter unavailable, continuing without tracing", map[string]interface{}{
			"error": err.Error(),
		})
		m.enabled = false

		return nil
	}

	res, err := m.createResource(ctx)
	if err != nil {
		m.logger.Warn("OpenTelemetry resource unavailable, continuing without tracing", map[string]interface{}{
			"error": err.Error(),
		})
		m.enabled = false

		return nil
	}

	m.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(m.createSampler()),
	)

	otel.SetTracerProvider(m.tracerProvider)

	m.logger.Info("OpenTelemetry initialized", map[string]interface{}{
		"endpoint": m.config.Endpoint,
		"sampling": m.config.SamplingRate,
	})

	return nil
}

func (m *Manager) createExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(m.config.Endpoint),
	}

	if m.config.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return exporter, nil
}

func (m *Manager) createResource(ctx context.Context) (*resource.Resource, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(m.config.ServiceName),
		semconv.ServiceVersionKey.String(m.config.ServiceVersion),
		semconv.HostNameKey.String(hostname),
	))
}

func (m *Manager) createSampler() sdktrace.Sampler {
	if m.config.SamplingRate >= 1.0 {
		return sdktrace.AlwaysSample()
	}

	return sdktrace.TraceIDRatioBased(m.config.SamplingRate)
}

// Shutdown flushes pending spans.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.enabled || m.tracerProvider == nil {
		return nil
	}

	err := m.tracerProvider.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shutdown TracerProvider: %w", err)
	}

	return nil
}

// IsEnabled reports whether spans are being exported.
func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// TracerProvider returns the provider, or nil when tracing is disabled.
func (m *Manager) TracerProvider() trace.TracerProvider {
	if m.tracerProvider == nil {
		return nil
	}

	return m.tracerProvider
}
