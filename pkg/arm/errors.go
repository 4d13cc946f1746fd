package arm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Error taxonomy. Every error returned by this package wraps exactly one of these.
var (
	// ErrInvalidArgument reports a missing or malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedResponse reports a response body that breaks the paging contract.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRequestFailed reports a status code outside the accepted set for the verb.
	ErrRequestFailed = errors.New("request failed")
	// ErrCancelled reports a caller-initiated abort.
	ErrCancelled = errors.New("operation cancelled")
)

// Static errors for err113 compliance.
var (
	ErrEndpointRequired   = errors.New("endpoint is required")
	ErrTransportRequired  = errors.New("transport is required")
	ErrConfigRequired     = errors.New("config is required")
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrNoMorePages        = errors.New("no more pages")
)

// maxSnippetLength bounds the amount of raw body copied into error messages.
const maxSnippetLength = 512

// RequestFailedError is returned when the service answers with a status code
// that is not accepted for the verb.
type RequestFailedError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	// Code and Message come from the ARM error envelope when present.
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RequestFailedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: status %d: %s: %s", e.Method, e.URL, e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("%s %s: status %d (%s): %s",
		e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), snippet(e.Body))
}

// Unwrap makes errors.Is(err, ErrRequestFailed) hold.
func (e *RequestFailedError) Unwrap() error {
	return ErrRequestFailed
}

// newRequestFailedError builds a RequestFailedError, decoding the ARM error
// envelope {"error":{"code":...,"message":...}} on a best effort basis.
func newRequestFailedError(req *RequestDescriptor, statusCode int, body []byte) *RequestFailedError {
	failure := &RequestFailedError{
		Method:     req.Method,
		URL:        req.URL,
		StatusCode: statusCode,
		Body:       body,
	}

	if len(body) > 0 && gjson.ValidBytes(body) {
		envelope := gjson.GetBytes(body, "error")
		if envelope.IsObject() {
			failure.Code = envelope.Get("code").String()
			failure.Message = envelope.Get("message").String()
		}
	}

	return failure
}

// MalformedResponseError is returned when a paged response body does not
// carry the configured items array or carries an unusable next link.
type MalformedResponseError struct {
	Reason  string
	Snippet string
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %s (body: %s)", ErrMalformedResponse.Error(), e.Reason, e.Snippet)
}

// Unwrap makes errors.Is(err, ErrMalformedResponse) hold.
func (e *MalformedResponseError) Unwrap() error {
	return ErrMalformedResponse
}

func newMalformedResponseError(body []byte, format string, args ...any) *MalformedResponseError {
	return &MalformedResponseError{
		Reason:  fmt.Sprintf(format, args...),
		Snippet: snippet(body),
	}
}

// CancelledError wraps the context error that aborted an operation.
type CancelledError struct {
	Cause error
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s: %v", ErrCancelled.Error(), e.Cause)
}

// Unwrap exposes both ErrCancelled and the underlying context error.
func (e *CancelledError) Unwrap() []error {
	return []error{ErrCancelled, e.Cause}
}

// cancellation converts err into a CancelledError when ctx has been cancelled.
// It returns nil when ctx is still live.
func cancellation(ctx context.Context) error {
	if cause := ctx.Err(); cause != nil {
		return &CancelledError{Cause: cause}
	}

	return nil
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// snippet bounds body for error messages, cutting at a rune boundary.
func snippet(body []byte) string {
	if len(body) <= maxSnippetLength {
		return string(body)
	}

	end := maxSnippetLength
	for end > 0 && !utf8.RuneStart(body[end]) {
		end--
	}

	return string(body[:end]) + "..."
}

// IsNotFound reports whether err is a request failure with status 404.
func IsNotFound(err error) bool {
	failure := &RequestFailedError{}
	if errors.As(err, &failure) {
		return failure.StatusCode == http.StatusNotFound
	}

	return false
}

// IsRequestFailed reports whether err carries a rejected status code.
func IsRequestFailed(err error) bool {
	return errors.Is(err, ErrRequestFailed)
}

// IsCancelled reports whether err was caused by the caller aborting.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsMalformedResponse reports whether err is a paging contract violation.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}
