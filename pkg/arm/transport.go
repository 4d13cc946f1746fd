package arm

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// RawResponse is what a Transport returns. Body may be nil; when it is not,
// the caller owns it and closes it.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Transport sends a request descriptor. Implementations apply authentication,
// retries and connection reuse; the engine treats them as opaque.
type Transport interface {
	Send(ctx context.Context, req *RequestDescriptor) (*RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *RequestDescriptor) (*RawResponse, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req *RequestDescriptor) (*RawResponse, error) {
	return f(ctx, req)
}

// invoke sends req through the interceptor chain and returns the classified
// outcome. The response body is read completely and closed on every path.
func invoke(ctx context.Context, transport Transport, chain *InterceptorChain, operation string, verb Verb, req *RequestDescriptor) (ResponseOutcome, error) {
	err := cancellation(ctx)
	if err != nil {
		return ResponseOutcome{}, err
	}

	info := &Request{Operation: operation, Method: req.Method, URL: req.URL, Header: http.Header{}}

	err = chain.ExecuteRequestInterceptors(ctx, info)
	if err != nil {
		if cancelled := cancellation(ctx); cancelled != nil {
			return ResponseOutcome{}, cancelled
		}

		return ResponseOutcome{}, fmt.Errorf("%w: %s: %w", ErrRequestFailed, operation, err)
	}

	req = withHeaders(req, info.Header)

	outcome, err := send(ctx, transport, verb, req)

	observed := &Response{StatusCode: outcome.StatusCode, Headers: outcome.Header, Body: outcome.Body, Error: err}
	if err == nil && outcome.Kind == OutcomeFailure {
		observed.Error = newRequestFailedError(req, outcome.StatusCode, outcome.Body)
	}

	// Observer failures never mask the request result.
	_ = chain.ExecuteResponseInterceptors(ctx, info, observed)

	return outcome, err
}

// withHeaders returns req with extra added, leaving req itself untouched.
func withHeaders(req *RequestDescriptor, extra http.Header) *RequestDescriptor {
	if len(extra) == 0 {
		return req
	}

	merged := *req
	merged.Header = req.Header.Clone()

	if merged.Header == nil {
		merged.Header = http.Header{}
	}

	for name, values := range extra {
		if _, ok := merged.Header[name]; ok {
			continue
		}

		merged.Header[name] = append([]string(nil), values...)
	}

	return &merged
}

func send(ctx context.Context, transport Transport, verb Verb, req *RequestDescriptor) (ResponseOutcome, error) {
	raw, err := transport.Send(ctx, req)
	if raw != nil && raw.Body != nil {
		defer func() {
			_ = raw.Body.Close()
		}()
	}

	if err != nil {
		if cancelled := cancellation(ctx); cancelled != nil {
			return ResponseOutcome{}, cancelled
		}

		return ResponseOutcome{}, fmt.Errorf("%w: sending %s: %w", ErrRequestFailed, req, err)
	}

	var body []byte

	if raw.Body != nil {
		body, err = io.ReadAll(raw.Body)
		if err != nil {
			if cancelled := cancellation(ctx); cancelled != nil {
				return ResponseOutcome{}, cancelled
			}

			return ResponseOutcome{}, fmt.Errorf("%w: reading response of %s: %w", ErrRequestFailed, req, err)
		}
	}

	outcome := Classify(verb, raw.StatusCode, body)
	outcome.Header = raw.Header

	return outcome, nil
}
