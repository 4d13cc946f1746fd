package arm_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/armclient/pkg/arm"
)

const rgPath = "/subscriptions/sub/resourceGroups/rg1"

func newServerClient(t *testing.T, handler http.HandlerFunc, opts ...arm.Option) *arm.ResourceClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := arm.NewResourceClient(server.URL, httpTransport(server.Client()), opts...)
	require.NoError(t, err)

	return client
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestResourceClient_SingleObject(t *testing.T) {
	t.Parallel()

	t.Run("get returns the body", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, rgPath, request.URL.Path)
			assert.Equal(t, "2020-06-01", request.URL.Query().Get("api-version"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))

			writer.Header().Set("Content-Type", "application/json")
			_, _ = writer.Write([]byte(`{"name":"rg1","location":"westeurope"}`))
		})

		result, err := client.Get(context.Background(), rgPath, "2020-06-01")
		require.NoError(t, err)
		assert.True(t, result.Found())
		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.JSONEq(t, `{"name":"rg1","location":"westeurope"}`, string(result.Body))
	})

	t.Run("get not found is not an error", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"error":{"code":"ResourceGroupNotFound","message":"not found"}}`))
		})

		result, err := client.Get(context.Background(), rgPath, "2020-06-01")
		require.NoError(t, err)
		assert.False(t, result.Found())
		assert.Nil(t, result.Body)
	})

	t.Run("create or update sends the body", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPut, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			body, err := io.ReadAll(request.Body)
			assert.NoError(t, err)
			assert.JSONEq(t, `{"location":"westeurope"}`, string(body))

			writer.WriteHeader(http.StatusCreated)
			_, _ = writer.Write([]byte(`{"name":"rg1","properties":{"provisioningState":"Succeeded"}}`))
		})

		result, err := client.CreateOrUpdate(context.Background(), rgPath, "2020-06-01", []byte(`{"location":"westeurope"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, result.StatusCode)
		assert.Contains(t, string(result.Body), "Succeeded")
	})

	t.Run("update conflict surfaces the error envelope", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPatch, request.Method)
			writer.WriteHeader(http.StatusConflict)
			_, _ = writer.Write([]byte(`{"error":{"code":"Conflict","message":"operation in progress"}}`))
		})

		_, err := client.Update(context.Background(), rgPath, "2020-06-01", []byte(`{"tags":{"a":"b"}}`))
		require.ErrorIs(t, err, arm.ErrRequestFailed)

		var failure *arm.RequestFailedError
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, http.StatusConflict, failure.StatusCode)
		assert.Equal(t, "Conflict", failure.Code)
		assert.Equal(t, "operation in progress", failure.Message)
		assert.Equal(t, http.MethodPatch, failure.Method)
		assert.False(t, arm.IsNotFound(err))
	})

	t.Run("delete no content", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodDelete, request.Method)
			writer.WriteHeader(http.StatusNoContent)
		})

		result, err := client.Delete(context.Background(), rgPath, "2020-06-01")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, result.StatusCode)
		assert.Nil(t, result.Body)
	})

	t.Run("delete accepted carries headers", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Location", "https://management.azure.com/operationResults/1")
			writer.WriteHeader(http.StatusAccepted)
		})

		result, err := client.Delete(context.Background(), rgPath, "2020-06-01")
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, result.StatusCode)
		assert.Equal(t, "https://management.azure.com/operationResults/1", result.Header.Get("Location"))
	})

	t.Run("delete not found is a failure", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
		})

		_, err := client.Delete(context.Background(), rgPath, "2020-06-01")
		require.ErrorIs(t, err, arm.ErrRequestFailed)
		assert.True(t, arm.IsNotFound(err))
	})

	t.Run("post action", func(t *testing.T) {
		t.Parallel()

		client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, rgPath+"/exportTemplate", request.URL.Path)
			_, _ = writer.Write([]byte(`{"template":{}}`))
		})

		result, err := client.Post(context.Background(), rgPath+"/exportTemplate", "2021-04-01", []byte(`{"resources":["*"]}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"template":{}}`, string(result.Body))
	})
}

func TestResourceClient_ValidatesBeforeSending(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	client := newServerClient(t, func(writer http.ResponseWriter, request *http.Request) {
		calls.Add(1)
	})

	ctx := context.Background()

	_, err := client.Get(ctx, "", "2020-06-01")
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	_, err = client.Get(ctx, rgPath, "")
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	_, err = client.CreateOrUpdate(ctx, rgPath, "2020-06-01", nil)
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	_, err = client.Update(ctx, rgPath, "2020-06-01", []byte("not json"))
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	_, err = client.Delete(ctx, "", "2020-06-01")
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	assert.Zero(t, calls.Load())
}

func TestNewResourceClient(t *testing.T) {
	t.Parallel()

	_, err := arm.NewResourceClient(testEndpoint, nil)
	require.ErrorIs(t, err, arm.ErrTransportRequired)

	_, err = arm.NewResourceClient("", newScriptedTransport(nil))
	require.ErrorIs(t, err, arm.ErrEndpointRequired)

	client, err := arm.NewResourceClient(testEndpoint+"/", newScriptedTransport(nil))
	require.NoError(t, err)
	assert.Equal(t, testEndpoint, client.Endpoint())
}

func TestResourceClient_ReportsOperationsToInterceptors(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(map[string]scripted{
		firstURL(rgPath):     {status: http.StatusOK, body: `{"name":"rg1"}`},
		firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[]}`},
	})

	var operations []string

	chain := arm.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *arm.Request) error {
		operations = append(operations, "before "+req.Operation)

		return nil
	})
	chain.AddResponseInterceptor(func(ctx context.Context, req *arm.Request, resp *arm.Response) error {
		operations = append(operations, "after "+req.Operation)

		return nil
	})

	logger := &MockLogger{}
	client := newTestClient(t, transport, arm.WithInterceptors(chain), arm.WithLogger(logger))

	_, err := client.Get(context.Background(), rgPath, testAPIVersion)
	require.NoError(t, err)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)

	_, err = pager.All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"before ResourceClient.Get",
		"after ResourceClient.Get",
		"before ResourceClient.GetPaged",
		"after ResourceClient.GetPaged",
	}, operations)
	assert.Contains(t, logger.messages("debug"), "Fetching page")
}

func TestResourceClient_InterceptorVeto(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(nil)

	breaker := arm.NewCircuitBreaker(&arm.CircuitBreakerConfig{Threshold: 1, Timeout: time.Hour, SuccessThreshold: 1})
	chain := arm.NewInterceptorChain()
	chain.AddRequestInterceptor(arm.CircuitBreakerRequestInterceptor(breaker))
	chain.AddResponseInterceptor(arm.CircuitBreakerResponseInterceptor(breaker))

	client := newTestClient(t, transport, arm.WithInterceptors(chain))

	// The unscripted URL answers 500 and opens the breaker.
	_, err := client.Get(context.Background(), rgPath, testAPIVersion)
	require.ErrorIs(t, err, arm.ErrRequestFailed)
	assert.Equal(t, "open", breaker.State())

	_, err = client.Get(context.Background(), rgPath, testAPIVersion)
	require.ErrorIs(t, err, arm.ErrCircuitBreakerOpen)
	require.ErrorIs(t, err, arm.ErrRequestFailed)
	assert.Len(t, transport.urls(), 1)
}
