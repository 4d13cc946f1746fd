package armclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azcorelog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"

	"github.com/fivetwenty-io/armclient/internal/auth"
	"github.com/fivetwenty-io/armclient/internal/azhttp"
	"github.com/fivetwenty-io/armclient/internal/constants"
	armhttp "github.com/fivetwenty-io/armclient/internal/http"
	"github.com/fivetwenty-io/armclient/internal/telemetry"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

// New creates a resource client from config. No request is sent: credentials
// are acquired lazily on the first call.
func New(ctx context.Context, config *arm.Config) (*arm.ResourceClient, error) {
	if config == nil {
		return nil, arm.ErrConfigRequired
	}

	cfg := *config
	applyDefaults(&cfg)

	transport, err := newTransport(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	chain, err := newInterceptorChain(&cfg)
	if err != nil {
		return nil, err
	}

	opts := []arm.Option{arm.WithInterceptors(chain)}
	if cfg.Logger != nil {
		opts = append(opts, arm.WithLogger(cfg.Logger))
	}

	client, err := arm.NewResourceClient(cfg.Endpoint, transport, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource client: %w", err)
	}

	return client, nil
}

func applyDefaults(cfg *arm.Config) {
	cfg.Endpoint = normalizeEndpoint(cfg.Endpoint)

	if cfg.Auth == "" {
		if cfg.AccessToken != "" {
			cfg.Auth = arm.AuthToken
		} else {
			cfg.Auth = arm.AuthDefault
		}
	}

	if cfg.Transport == "" {
		cfg.Transport = arm.TransportRetryable
	}

	if cfg.RetryMax == 0 {
		cfg.RetryMax = constants.DefaultRetryMax
	}

	if cfg.RetryWaitMin == 0 {
		cfg.RetryWaitMin = constants.DefaultRetryWaitMin
	}

	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = constants.DefaultRetryWaitMax
	}

	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.UserAgentPrefix + "/" + constants.ModuleVersion
	}
}

// normalizeEndpoint trims a trailing slash and assumes https when no scheme
// is given.
func normalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return constants.DefaultEndpoint
	}

	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

func newTransport(ctx context.Context, cfg *arm.Config) (arm.Transport, error) {
	switch cfg.Transport {
	case arm.TransportRetryable:
		tokenManager, err := newTokenManager(cfg)
		if err != nil {
			return nil, err
		}

		opts := []armhttp.Option{
			armhttp.WithRetryConfig(cfg.RetryMax, cfg.RetryWaitMin, cfg.RetryWaitMax),
			armhttp.WithTimeout(cfg.HTTPTimeout),
			armhttp.WithUserAgent(cfg.UserAgent),
			armhttp.WithDebug(cfg.Debug),
		}

		if cfg.Logger != nil {
			opts = append(opts, armhttp.WithLogger(cfg.Logger))
		}

		return armhttp.NewClient(tokenManager, opts...), nil

	case arm.TransportAzcore:
		credential, err := newCredential(cfg)
		if err != nil {
			return nil, err
		}

		if cfg.Debug && cfg.Logger != nil {
			forwardAzcoreLog(cfg.Logger)
		}

		return azhttp.NewClient(azhttp.Options{
			Credential:    credential,
			AllowHTTP:     strings.HasPrefix(cfg.Endpoint, "http://"),
			RetryMax:      cfg.RetryMax,
			RetryWaitMin:  cfg.RetryWaitMin,
			RetryWaitMax:  cfg.RetryWaitMax,
			HTTPTimeout:   cfg.HTTPTimeout,
			ApplicationID: constants.UserAgentPrefix,
		}), nil

	default:
		return nil, fmt.Errorf("%w: %s", constants.ErrUnknownTransport, cfg.Transport)
	}
}

// newTokenManager resolves the bearer token source for the retryable transport.
// A nil manager sends requests without authentication.
func newTokenManager(cfg *arm.Config) (auth.TokenManager, error) {
	switch cfg.Auth {
	case arm.AuthNone:
		return nil, nil //nolint:nilnil // no authentication
	case arm.AuthToken:
		if cfg.AccessToken == "" {
			return nil, constants.ErrAccessTokenRequired
		}

		return auth.NewStaticTokenManager(cfg.AccessToken), nil
	}

	credential, err := newIdentityCredential(cfg)
	if err != nil {
		return nil, err
	}

	return auth.NewCredentialTokenManager(credential), nil
}

// newCredential resolves the azcore credential for the pipeline transport.
func newCredential(cfg *arm.Config) (azcore.TokenCredential, error) {
	switch cfg.Auth {
	case arm.AuthNone:
		return nil, nil //nolint:nilnil // no authentication
	case arm.AuthToken:
		if cfg.AccessToken == "" {
			return nil, constants.ErrAccessTokenRequired
		}

		return auth.NewStaticCredential(cfg.AccessToken, time.Time{}), nil
	}

	return newIdentityCredential(cfg)
}

func newIdentityCredential(cfg *arm.Config) (azcore.TokenCredential, error) {
	var method string

	switch cfg.Auth {
	case arm.AuthCLI:
		method = auth.MethodCLI
	case arm.AuthDefault:
		method = auth.MethodDefault
	case arm.AuthClientSecret:
		if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, constants.ErrClientSecretRequired
		}

		method = auth.MethodClientSecret
	default:
		return nil, fmt.Errorf("%w: %s", constants.ErrUnknownAuthMethod, cfg.Auth)
	}

	credential, err := auth.NewCredential(auth.CredentialOptions{
		Method:       method,
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s credential: %w", cfg.Auth, err)
	}

	return credential, nil
}

// forwardAzcoreLog routes the Azure SDK's process-wide log events to logger.
func forwardAzcoreLog(logger arm.Logger) {
	azcorelog.SetListener(func(event azcorelog.Event, msg string) {
		logger.Debug(msg, map[string]interface{}{"event": string(event)})
	})
}

// newInterceptorChain installs the observers selected by cfg. Request
// interceptors that may veto run first so that every started span ends.
func newInterceptorChain(cfg *arm.Config) (*arm.InterceptorChain, error) {
	chain := arm.NewInterceptorChain()

	if cfg.Logger != nil {
		chain.AddRequestInterceptor(arm.LoggingInterceptor(cfg.Logger))
		chain.AddResponseInterceptor(arm.LoggingResponseInterceptor(cfg.Logger))
	}

	if cfg.RequestsPerSecond > 0 {
		chain.AddRequestInterceptor(arm.RateLimitInterceptor(cfg.RequestsPerSecond))
	}

	if cfg.CircuitBreaker != nil {
		breaker := arm.NewCircuitBreaker(cfg.CircuitBreaker)
		chain.AddRequestInterceptor(arm.CircuitBreakerRequestInterceptor(breaker))
		chain.AddResponseInterceptor(arm.CircuitBreakerResponseInterceptor(breaker))
	}

	if cfg.MetricsRegisterer != nil {
		metrics, err := telemetry.NewMetrics(cfg.MetricsRegisterer)
		if err != nil {
			return nil, err
		}

		onRequest, onResponse := metrics.Interceptors()
		chain.AddRequestInterceptor(onRequest)
		chain.AddResponseInterceptor(onResponse)
	}

	if cfg.TracerProvider != nil {
		onRequest, onResponse := telemetry.TracingInterceptors(cfg.TracerProvider)
		chain.AddRequestInterceptor(onRequest)
		chain.AddResponseInterceptor(onResponse)
	}

	return chain, nil
}

// NewWithToken creates a client that sends a fixed bearer token.
func NewWithToken(ctx context.Context, endpoint, token string) (*arm.ResourceClient, error) {
	return New(ctx, &arm.Config{
		Endpoint:    endpoint,
		Auth:        arm.AuthToken,
		AccessToken: token,
	})
}

// NewWithAzureCLI creates a client authenticated as the signed-in Azure CLI user.
func NewWithAzureCLI(ctx context.Context, endpoint string) (*arm.ResourceClient, error) {
	return New(ctx, &arm.Config{
		Endpoint: endpoint,
		Auth:     arm.AuthCLI,
	})
}

// NewWithClientSecret creates a client authenticated as a service principal.
func NewWithClientSecret(ctx context.Context, endpoint, tenantID, clientID, clientSecret string) (*arm.ResourceClient, error) {
	return New(ctx, &arm.Config{
		Endpoint:     endpoint,
		Auth:         arm.AuthClientSecret,
		TenantID:     tenantID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}
