package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Azure Resource Manager defaults.
const (
	// DefaultEndpoint is the public cloud Resource Manager endpoint.
	DefaultEndpoint = "https://management.azure.com"

	// DefaultScope is the token scope for Resource Manager.
	DefaultScope = "https://management.core.windows.net/.default"

	// APIVersionParameter is the query parameter that pins the wire contract.
	APIVersionParameter = "api-version"

	// DefaultItemsPropertyName holds the items of a list response.
	DefaultItemsPropertyName = "value"

	// DefaultNextLinkPropertyName holds the next page URI of a list response.
	DefaultNextLinkPropertyName = "nextlink"
)

// HTTP headers and content types.
const (
	HeaderAccept          = "Accept"
	HeaderContentType     = "Content-Type"
	HeaderAuthorization   = "Authorization"
	HeaderUserAgent       = "User-Agent"
	HeaderClientRequestID = "x-ms-client-request-id"
	HeaderRequestID       = "x-ms-request-id"
	HeaderCorrelationID   = "x-ms-correlation-request-id"

	ContentTypeJSON = "application/json"

	// BearerPrefix precedes access tokens in the Authorization header.
	BearerPrefix = "Bearer "
)

// Client identification.
const (
	// UserAgentPrefix is the default user agent product.
	UserAgentPrefix = "armclient-go"

	// ModuleName is reported to azcore pipelines.
	ModuleName = "armclient"

	// ModuleVersion is the version reported in user agents and telemetry.
	ModuleVersion = "0.1.0"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 5

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Tokens.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Circuit breaker.
const (
	// CircuitBreakerThreshold is the failure threshold for circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for circuit breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is the timeout for circuit breaker.
	CircuitBreakerTimeout = 30 * time.Second
)

// State constants.
const (
	StatusClosed   = "closed"
	StatusOpen     = "open"
	StatusHalfOpen = "half-open"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// FormatRaw prints one raw JSON item per line.
	FormatRaw = "raw"
)

// Display constants.
const (
	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2

	// StringTruncationLength is the default length for truncating table cells.
	StringTruncationLength = 80

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"
)

// Checkpoint storage.
const (
	// DefaultCheckpointBucket is the JetStream key-value bucket for continuation checkpoints.
	DefaultCheckpointBucket = "armc_checkpoints"

	// DefaultCheckpointTTL expires checkpoints that were never completed.
	DefaultCheckpointTTL = 24 * time.Hour
)

// Telemetry.
const (
	// DefaultServiceName identifies the client in traces.
	DefaultServiceName = "armclient"

	// TracerName is the instrumentation scope of spans emitted by this module.
	TracerName = "github.com/fivetwenty-io/armclient"

	// MetricsNamespace prefixes every Prometheus metric.
	MetricsNamespace = "armclient"

	// TelemetryShutdownTimeout bounds flushing spans on exit.
	TelemetryShutdownTimeout = 5 * time.Second
)
