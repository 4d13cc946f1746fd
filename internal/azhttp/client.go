// Package azhttp sends resource requests through an Azure SDK pipeline.
package azhttp

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

// Options configures the pipeline.
type Options struct {
	// Credential authenticates requests. Nil sends them anonymously.
	Credential azcore.TokenCredential
	// Scopes requested for bearer tokens. Defaults to the Resource Manager scope.
	Scopes []string
	// AllowHTTP permits sending bearer tokens over plain HTTP, for local fakes only.
	AllowHTTP bool

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// HTTPTimeout bounds each attempt.
	HTTPTimeout time.Duration

	// ApplicationID is prepended to the pipeline's User-Agent.
	ApplicationID string
	// Transport replaces the default HTTP client.
	Transport policy.Transporter
}

// Client is an arm.Transport backed by runtime.Pipeline.
type Client struct {
	pipeline runtime.Pipeline
}

var _ arm.Transport = (*Client)(nil)

// NewClient builds the pipeline. Retries, request IDs and telemetry headers
// come from azcore's standard policies; authentication is a per-retry bearer
// token policy.
func NewClient(opts Options) *Client {
	clientOptions := &policy.ClientOptions{
		Retry: policy.RetryOptions{
			MaxRetries:    int32(opts.RetryMax), //nolint:gosec // bounded by configuration
			RetryDelay:    opts.RetryWaitMin,
			MaxRetryDelay: opts.RetryWaitMax,
			TryTimeout:    opts.HTTPTimeout,
		},
		Telemetry: policy.TelemetryOptions{ApplicationID: opts.ApplicationID},
		Transport: opts.Transport,
	}

	var perRetry []policy.Policy

	if opts.Credential != nil {
		scopes := opts.Scopes
		if len(scopes) == 0 {
			scopes = []string{constants.DefaultScope}
		}

		perRetry = append(perRetry, runtime.NewBearerTokenPolicy(opts.Credential, scopes, &policy.BearerTokenOptions{
			InsecureAllowCredentialWithHTTP: opts.AllowHTTP,
		}))
	}

	pipeline := runtime.NewPipeline(constants.ModuleName, constants.ModuleVersion, runtime.PipelineOptions{
		PerRetry: perRetry,
	}, clientOptions)

	return &Client{pipeline: pipeline}
}

// Send implements arm.Transport.
func (c *Client) Send(ctx context.Context, req *arm.RequestDescriptor) (*arm.RawResponse, error) {
	azReq, err := runtime.NewRequest(ctx, req.Method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		azReq.Raw().Header[key] = append([]string(nil), values...)
	}

	if len(req.Body) > 0 {
		err = azReq.SetBody(streaming.NopCloser(bytes.NewReader(req.Body)), req.Header.Get(constants.HeaderContentType))
		if err != nil {
			return nil, fmt.Errorf("failed to set request body: %w", err)
		}
	}

	resp, err := c.pipeline.Do(azReq)
	if err != nil {
		return nil, fmt.Errorf("pipeline request failed: %w", err)
	}

	return &arm.RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
