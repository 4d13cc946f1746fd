package arm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/armclient/internal/constants"
)

// RequestDescriptor is a fully resolved request. It is built once per attempt
// and must not be modified after it has been handed to a Transport.
type RequestDescriptor struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// RequestBuilder turns resource paths and cursors into request descriptors
// rooted at a fixed endpoint.
type RequestBuilder struct {
	endpoint string
}

// NewRequestBuilder creates a builder for the given absolute endpoint.
func NewRequestBuilder(endpoint string) (*RequestBuilder, error) {
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, invalidArgument("endpoint %q is not an absolute URI", endpoint)
	}

	return &RequestBuilder{endpoint: strings.TrimSuffix(endpoint, "/")}, nil
}

// Endpoint returns the base URI all resource paths are resolved against.
func (b *RequestBuilder) Endpoint() string {
	return b.endpoint
}

// Build creates a request for a resource path. query holds extra parameters
// appended after api-version; it may be nil.
func (b *RequestBuilder) Build(verb Verb, resourcePath, apiVersion string, query url.Values, body []byte) (*RequestDescriptor, error) {
	err := validateVerb(verb)
	if err != nil {
		return nil, err
	}

	if resourcePath == "" {
		return nil, invalidArgument("resource path is required")
	}

	if apiVersion == "" {
		return nil, invalidArgument("api version is required")
	}

	if verb.requiresBody() && body == nil {
		return nil, invalidArgument("%s requires a request body", verb)
	}

	if body != nil && !json.Valid(body) {
		return nil, invalidArgument("request body is not valid JSON")
	}

	values := url.Values{}
	for key, vals := range query {
		values[key] = append([]string(nil), vals...)
	}

	values.Set(constants.APIVersionParameter, apiVersion)

	path := strings.TrimPrefix(resourcePath, "/")
	separator := "?"

	if strings.Contains(path, "?") {
		separator = "&"
	}

	return newDescriptor(verb, b.endpoint+"/"+path+separator+values.Encode(), body), nil
}

// BuildFromCursor creates a request for an absolute continuation cursor. The
// cursor already carries whatever query the service requires, so nothing is
// appended and no body is sent.
func (b *RequestBuilder) BuildFromCursor(verb Verb, cursor string) (*RequestDescriptor, error) {
	err := validateVerb(verb)
	if err != nil {
		return nil, err
	}

	err = validateCursor(cursor)
	if err != nil {
		return nil, err
	}

	return newDescriptor(verb, cursor, nil), nil
}

func newDescriptor(verb Verb, target string, body []byte) *RequestDescriptor {
	header := http.Header{}
	header.Set(constants.HeaderAccept, constants.ContentTypeJSON)

	if body != nil {
		header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	return &RequestDescriptor{
		Method: string(verb),
		URL:    target,
		Header: header,
		Body:   body,
	}
}

func validateVerb(verb Verb) error {
	if !verb.valid() {
		return invalidArgument("unsupported verb %q", verb)
	}

	return nil
}

// validateCursor checks that cursor is an absolute http(s) URI.
func validateCursor(cursor string) error {
	if cursor == "" {
		return invalidArgument("continuation cursor is empty")
	}

	if !isAbsoluteHTTPURI(cursor) {
		return invalidArgument("continuation cursor %q is not an absolute URI", cursor)
	}

	return nil
}

func isAbsoluteHTTPURI(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (parsed.Scheme == "https" || parsed.Scheme == "http") && parsed.Host != ""
}

// String renders the request line, useful in logs.
func (r *RequestDescriptor) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.URL)
}
