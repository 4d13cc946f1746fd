package arm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Client is the generic resource surface implemented by ResourceClient.
type Client interface {
	Get(ctx context.Context, resourcePath, apiVersion string) (*Result, error)
	CreateOrUpdate(ctx context.Context, resourcePath, apiVersion string, body []byte) (*Result, error)
	Update(ctx context.Context, resourcePath, apiVersion string, body []byte) (*Result, error)
	Delete(ctx context.Context, resourcePath, apiVersion string) (*Result, error)
	Post(ctx context.Context, resourcePath, apiVersion string, body []byte) (*Result, error)

	GetPaged(resourcePath, apiVersion string, opts *PageOptions) (*Pager, error)
	PutPaged(resourcePath, apiVersion string, body []byte, opts *PageOptions) (*Pager, error)
	PatchPaged(resourcePath, apiVersion string, body []byte, opts *PageOptions) (*Pager, error)
	DeletePaged(resourcePath, apiVersion string, opts *PageOptions) (*Pager, error)
	PostPaged(resourcePath, apiVersion string, body []byte, opts *PageOptions) (*Pager, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards every message.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// Auth methods accepted in Config.Auth.
const (
	AuthNone         = "none"
	AuthToken        = "token"
	AuthCLI          = "cli"
	AuthDefault      = "default"
	AuthClientSecret = "client-secret"
)

// Transports accepted in Config.Transport.
const (
	TransportRetryable = "retryable"
	TransportAzcore    = "azcore"
)

// Config represents client configuration for armclient.New.
//
// # Authentication
//
// Auth selects how bearer tokens are obtained:
//   - "token": AccessToken is sent as a static Bearer token.
//   - "cli": tokens come from the Azure CLI ("az account get-access-token").
//   - "default": the azidentity default chain (environment, workload identity,
//     managed identity, Azure CLI).
//   - "client-secret": TenantID, ClientID and ClientSecret.
//   - "none": requests are sent without authentication, useful against local fakes.
//
// When Auth is empty, "token" is used if AccessToken is set, else "default".
//
// # Transports
//
// Transport "retryable" (the default) sends requests through a retrying HTTP
// client. Transport "azcore" uses an Azure SDK pipeline with its own retry and
// bearer token policies.
type Config struct {
	// Endpoint: base URL of Resource Manager. Defaults to https://management.azure.com.
	Endpoint string

	// Auth: one of none, token, cli, default, client-secret.
	Auth string
	// AccessToken: static bearer token for Auth "token".
	AccessToken string
	// TenantID: Entra tenant for Auth "client-secret" (optional for "cli").
	TenantID string
	// ClientID: application ID for Auth "client-secret".
	ClientID string
	// ClientSecret: application secret for Auth "client-secret".
	ClientSecret string

	// Transport: one of retryable, azcore.
	Transport string
	// RetryMax: maximum number of retries for transient failures (429, >=500,
	// and connection errors). If 0, a sensible default is used.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// HTTPTimeout: per-attempt timeout. Callers should prefer context deadlines.
	HTTPTimeout time.Duration
	// RequestsPerSecond: client-side rate limit. Zero disables it.
	RequestsPerSecond int
	// CircuitBreaker: when set, calls fail fast with ErrCircuitBreakerOpen after
	// repeated server errors or transport failures.
	CircuitBreaker *CircuitBreakerConfig

	// Debug: enables verbose request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string

	// TracerProvider: when set, every call is recorded as a span.
	TracerProvider trace.TracerProvider
	// MetricsRegisterer: when set, request counters and latencies are registered here.
	MetricsRegisterer prometheus.Registerer
}
