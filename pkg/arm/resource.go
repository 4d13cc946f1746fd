package arm

import (
	"context"
)

// Operation names reported to interceptors.
const (
	OperationGet            = "ResourceClient.Get"
	OperationCreateOrUpdate = "ResourceClient.CreateOrUpdate"
	OperationUpdate         = "ResourceClient.Update"
	OperationDelete         = "ResourceClient.Delete"
	OperationPost           = "ResourceClient.Post"
	OperationGetPaged       = "ResourceClient.GetPaged"
	OperationPutPaged       = "ResourceClient.PutPaged"
	OperationPatchPaged     = "ResourceClient.PatchPaged"
	OperationDeletePaged    = "ResourceClient.DeletePaged"
	OperationPostPaged      = "ResourceClient.PostPaged"
)

// ResourceClient issues generic verbs against resource paths.
type ResourceClient struct {
	builder   *RequestBuilder
	transport Transport
	chain     *InterceptorChain
	logger    Logger
}

var _ Client = (*ResourceClient)(nil)

// Option configures a ResourceClient.
type Option func(*ResourceClient)

// WithInterceptors installs an interceptor chain.
func WithInterceptors(chain *InterceptorChain) Option {
	return func(c *ResourceClient) {
		c.chain = chain
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger Logger) Option {
	return func(c *ResourceClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewResourceClient creates a client rooted at endpoint that sends through transport.
func NewResourceClient(endpoint string, transport Transport, opts ...Option) (*ResourceClient, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}

	builder, err := NewRequestBuilder(endpoint)
	if err != nil {
		return nil, err
	}

	client := &ResourceClient{
		builder:   builder,
		transport: transport,
		chain:     NewInterceptorChain(),
		logger:    NopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Endpoint returns the base URI of the client.
func (c *ResourceClient) Endpoint() string {
	return c.builder.Endpoint()
}

// Get reads a resource. A missing resource is not an error: the result has
// status 404, a nil body and Found reports false.
func (c *ResourceClient) Get(ctx context.Context, resourcePath, apiVersion string) (*Result, error) {
	return c.do(ctx, OperationGet, VerbGet, resourcePath, apiVersion, nil)
}

// CreateOrUpdate puts the full resource body.
func (c *ResourceClient) CreateOrUpdate(ctx context.Context, resourcePath, apiVersion string, body []byte) (*Result, error) {
	return c.do(ctx, OperationCreateOrUpdate, VerbPut, resourcePath, apiVersion, body)
}

// Update patches the resource.
func (c *ResourceClient) Update(ctx context.Context, resourcePath, apiVersion string, body []byte) (*Result, error) {
	return c.do(ctx, OperationUpdate, VerbPatch, resourcePath, apiVersion, body)
}

// Delete removes the resource.
func (c *ResourceClient) Delete(ctx context.Context, resourcePath, apiVersion string) (*Result, error) {
	return c.do(ctx, OperationDelete, VerbDelete, resourcePath, apiVersion, nil)
}

// Post invokes a resource action such as ".../restart" or ".../listKeys".
func (c *ResourceClient) Post(ctx context.Context, resourcePath, apiVersion string, body []byte) (*Result, error) {
	return c.do(ctx, OperationPost, VerbPost, resourcePath, apiVersion, body)
}

// GetPaged lists a collection.
func (c *ResourceClient) GetPaged(resourcePath, apiVersion string, opts *PageOptions) (*Pager, error) {
	return newPager(c, OperationGetPaged, VerbGet, resourcePath, apiVersion, nil, opts)
}

// PutPaged sends a PUT whose response is a paged collection.
func (c *ResourceClient) PutPaged(resourcePath, apiVersion string, body []byte, opts *PageOptions) (*Pager, error) {
	return newPager(c, OperationPutPaged, VerbPut, resourcePath, apiVersion, body, opts)
}

// PatchPaged sends a PATCH whose response is a paged collection.
func (c *ResourceClient) PatchPaged(resourcePath, apiVersion string, body []byte, opts *PageOptions) (*Pager, error) {
	return newPager(c, OperationPatchPaged, VerbPatch, resourcePath, apiVersion, body, opts)
}

// DeletePaged sends a DELETE whose response is a paged collection.
func (c *ResourceClient) DeletePaged(resourcePath, apiVersion string, opts *PageOptions) (*Pager, error) {
	return newPager(c, OperationDeletePaged, VerbDelete, resourcePath, apiVersion, nil, opts)
}

// PostPaged sends a POST whose response is a paged collection.
func (c *ResourceClient) PostPaged(resourcePath, apiVersion string, body []byte, opts *PageOptions) (*Pager, error) {
	return newPager(c, OperationPostPaged, VerbPost, resourcePath, apiVersion, body, opts)
}

func (c *ResourceClient) do(ctx context.Context, operation string, verb Verb, resourcePath, apiVersion string, body []byte) (*Result, error) {
	req, err := c.builder.Build(verb, resourcePath, apiVersion, nil, body)
	if err != nil {
		return nil, err
	}

	outcome, err := invoke(ctx, c.transport, c.chain, operation, verb, req)
	if err != nil {
		return nil, err
	}

	if outcome.Kind == OutcomeFailure {
		return nil, newRequestFailedError(req, outcome.StatusCode, outcome.Body)
	}

	return &Result{
		StatusCode: outcome.StatusCode,
		Header:     outcome.Header,
		Body:       outcome.Body,
	}, nil
}
