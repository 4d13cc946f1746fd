package arm_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/armclient/pkg/arm"
)

const (
	testEndpoint   = "https://x"
	testAPIVersion = "2020-06-01"
)

// scripted is one canned response.
type scripted struct {
	status int
	body   string
}

// scriptedTransport answers requests by exact URL and records every request.
type scriptedTransport struct {
	mu        sync.Mutex
	responses map[string]scripted
	requests  []*arm.RequestDescriptor
}

func newScriptedTransport(responses map[string]scripted) *scriptedTransport {
	return &scriptedTransport{responses: responses}
}

func (s *scriptedTransport) Send(ctx context.Context, req *arm.RequestDescriptor) (*arm.RawResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)

	response, ok := s.responses[req.URL]
	if !ok {
		response = scripted{status: http.StatusInternalServerError, body: `{"error":{"code":"Unscripted","message":"` + req.URL + `"}}`}
	}

	var body io.ReadCloser
	if response.body != "" {
		body = io.NopCloser(strings.NewReader(response.body))
	}

	return &arm.RawResponse{
		StatusCode: response.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
	}, nil
}

func (s *scriptedTransport) urls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.requests))
	for _, req := range s.requests {
		urls = append(urls, req.URL)
	}

	return urls
}

func (s *scriptedTransport) recorded() []*arm.RequestDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*arm.RequestDescriptor(nil), s.requests...)
}

// httpTransport sends descriptors with a plain net/http client.
func httpTransport(client *http.Client) arm.Transport {
	return arm.TransportFunc(func(ctx context.Context, req *arm.RequestDescriptor) (*arm.RawResponse, error) {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
		if err != nil {
			return nil, err
		}

		httpReq.Header = req.Header.Clone()

		resp, err := client.Do(httpReq)
		if err != nil {
			return nil, err
		}

		return &arm.RawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
	})
}

func newTestClient(t *testing.T, transport arm.Transport, opts ...arm.Option) *arm.ResourceClient {
	t.Helper()

	client, err := arm.NewResourceClient(testEndpoint, transport, opts...)
	require.NoError(t, err)

	return client
}

func firstURL(path string) string {
	return testEndpoint + path + "?api-version=" + testAPIVersion
}

func itemStrings(items []arm.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}

	return out
}

// MockLogger records log calls.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

func (l *MockLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string

	for _, entry := range l.logs {
		if entry["level"] == level {
			out = append(out, entry["msg"].(string))
		}
	}

	return out
}
