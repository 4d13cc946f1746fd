package arm_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/armclient/pkg/arm"
)

const (
	groupsPath = "/subscriptions/sub/resourceGroups"
	page2URL   = "https://x/subscriptions/sub/resourceGroups/page2?%24skiptoken=2"
	page3URL   = "https://x/subscriptions/sub/resourceGroups/page3?%24skiptoken=3"
)

func twoPageScript() map[string]scripted {
	return map[string]scripted{
		firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[{"name":"A"}],"nextlink":"` + page2URL + `"}`},
		page2URL:             {status: http.StatusOK, body: `{"value":[{"name":"B"}]}`},
	}
}

func TestPager_FollowsNextLinks(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(twoPageScript())
	client := newTestClient(t, transport)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, &arm.PageOptions{
		ItemsPropertyName:    "value",
		NextLinkPropertyName: "nextlink",
	})
	require.NoError(t, err)

	items, err := pager.All(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{`{"name":"A"}`, `{"name":"B"}`}, itemStrings(items))
	assert.Equal(t, []string{firstURL(groupsPath), page2URL}, transport.urls())
	assert.False(t, pager.More())
}

func TestPager_IsLazy(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(twoPageScript())
	client := newTestClient(t, transport)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)
	assert.Empty(t, transport.urls())

	for item, err := range pager.Items(context.Background()) {
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"A"}`, item.String())

		break
	}

	assert.Len(t, transport.urls(), 1)
	assert.True(t, pager.More())
	assert.Equal(t, page2URL, pager.NextLink())
}

func TestPager_PageTokens(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newScriptedTransport(twoPageScript()))

	pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)

	ctx := context.Background()

	first, err := pager.NextPage(ctx)
	require.NoError(t, err)
	assert.Empty(t, first.ContinuationToken)
	assert.Equal(t, page2URL, first.NextLink)

	second, err := pager.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, page2URL, second.ContinuationToken)
	assert.Empty(t, second.NextLink)

	_, err = pager.NextPage(ctx)
	require.ErrorIs(t, err, arm.ErrNoMorePages)
}

func TestPager_EmptyPageContinues(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(map[string]scripted{
		firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[],"nextlink":"` + page2URL + `"}`},
		page2URL:             {status: http.StatusOK, body: `{"value":[],"nextLink":"` + page3URL + `"}`},
		page3URL:             {status: http.StatusOK, body: `{"value":[{"name":"C"}]}`},
	})
	client := newTestClient(t, transport)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)

	items, err := pager.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{`{"name":"C"}`}, itemStrings(items))
	assert.Len(t, transport.urls(), 3)
}

func TestPager_EmptyCollection(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newScriptedTransport(map[string]scripted{
		firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[]}`},
	}))

	pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)

	items, err := pager.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPager_NotFound(t *testing.T) {
	t.Parallel()

	t.Run("first page ends the collection", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, newScriptedTransport(map[string]scripted{
			firstURL(groupsPath): {status: http.StatusNotFound, body: `{"error":{"code":"ResourceGroupNotFound","message":"gone"}}`},
		}))

		pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		page, err := pager.NextPage(context.Background())
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.False(t, pager.More())
	})

	t.Run("continuation page is a failure", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, newScriptedTransport(map[string]scripted{
			firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[{"name":"A"}],"nextlink":"` + page2URL + `"}`},
			page2URL:             {status: http.StatusNotFound},
		}))

		pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		items, err := pager.All(context.Background())
		require.ErrorIs(t, err, arm.ErrRequestFailed)
		assert.True(t, arm.IsNotFound(err))
		assert.Nil(t, items)
	})
}

func TestPager_FailureAbortsIteration(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newScriptedTransport(map[string]scripted{
		firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[{"name":"A"}],"nextlink":"` + page2URL + `"}`},
		page2URL:             {status: http.StatusTooManyRequests, body: `{"error":{"code":"TooManyRequests","message":"slow down"}}`},
	}))

	pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)

	var (
		seen    []string
		iterErr error
	)

	for item, err := range pager.Items(context.Background()) {
		if err != nil {
			iterErr = err

			break
		}

		seen = append(seen, item.String())
	}

	assert.Equal(t, []string{`{"name":"A"}`}, seen)

	var failure *arm.RequestFailedError
	require.ErrorAs(t, iterErr, &failure)
	assert.Equal(t, http.StatusTooManyRequests, failure.StatusCode)
	assert.Equal(t, "TooManyRequests", failure.Code)
	assert.Equal(t, page2URL, failure.URL)

	assert.False(t, pager.More())
	require.ErrorIs(t, pager.Err(), arm.ErrRequestFailed)

	_, err = pager.NextPage(context.Background())
	require.ErrorIs(t, err, arm.ErrRequestFailed)
}

func TestPager_MalformedPage(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newScriptedTransport(map[string]scripted{
		firstURL(groupsPath): {status: http.StatusOK, body: `{"items":[]}`},
	}))

	pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)

	err = pager.ForEach(context.Background(), func(arm.Item) error { return nil })
	require.ErrorIs(t, err, arm.ErrMalformedResponse)
}

func TestPager_Resume(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(twoPageScript())
	client := newTestClient(t, transport)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, &arm.PageOptions{ContinuationToken: page2URL})
	require.NoError(t, err)
	assert.Equal(t, page2URL, pager.NextLink())

	items, err := pager.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{`{"name":"B"}`}, itemStrings(items))
	assert.Equal(t, []string{page2URL}, transport.urls())
}

func TestPager_ResumeRejectsBadToken(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newScriptedTransport(nil))

	_, err := client.GetPaged(groupsPath, testAPIVersion, &arm.PageOptions{ContinuationToken: "page2"})
	require.ErrorIs(t, err, arm.ErrInvalidArgument)
}

func TestPager_MaxPages(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(twoPageScript())
	client := newTestClient(t, transport)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, &arm.PageOptions{MaxPages: 1})
	require.NoError(t, err)

	items, err := pager.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.False(t, pager.More())
	assert.Equal(t, page2URL, pager.NextLink())
	assert.Len(t, transport.urls(), 1)
}

func TestPager_PageSizeHint(t *testing.T) {
	t.Parallel()

	hinted := testEndpoint + groupsPath + "?%24top=10&api-version=" + testAPIVersion
	transport := newScriptedTransport(map[string]scripted{
		hinted:   {status: http.StatusOK, body: `{"value":[1],"nextlink":"` + page2URL + `"}`},
		page2URL: {status: http.StatusOK, body: `{"value":[2]}`},
	})
	client := newTestClient(t, transport)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, &arm.PageOptions{PageSizeHint: 10, PageSizeParameter: "$top"})
	require.NoError(t, err)

	items, err := pager.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, itemStrings(items))
	assert.Equal(t, []string{hinted, page2URL}, transport.urls())
}

func TestPager_PageSizeHintWithoutParameterIsNotSent(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(map[string]scripted{
		firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[]}`},
	})
	client := newTestClient(t, transport)

	pager, err := client.GetPaged(groupsPath, testAPIVersion, &arm.PageOptions{PageSizeHint: 10})
	require.NoError(t, err)

	_, err = pager.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{firstURL(groupsPath)}, transport.urls())
}

func TestPager_PostPagedSendsBodyOnlyOnFirstRequest(t *testing.T) {
	t.Parallel()

	path := "/subscriptions/sub/providers/Microsoft.ResourceGraph/resources"
	transport := newScriptedTransport(map[string]scripted{
		firstURL(path): {status: http.StatusOK, body: `{"data":[1],"$skipToken":"` + page2URL + `"}`},
		page2URL:       {status: http.StatusOK, body: `{"data":[2]}`},
	})
	client := newTestClient(t, transport)

	body := []byte(`{"query":"Resources | limit 2"}`)

	pager, err := client.PostPaged(path, testAPIVersion, body, &arm.PageOptions{
		ItemsPropertyName:    "data",
		NextLinkPropertyName: "$skipToken",
	})
	require.NoError(t, err)

	items, err := pager.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, itemStrings(items))

	requests := transport.recorded()
	require.Len(t, requests, 2)
	assert.Equal(t, "POST", requests[0].Method)
	assert.Equal(t, body, requests[0].Body)
	assert.Equal(t, "POST", requests[1].Method)
	assert.Nil(t, requests[1].Body)
	assert.Empty(t, requests[1].Header.Get("Content-Type"))
}

func TestPager_DeletePagedNoContent(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newScriptedTransport(map[string]scripted{
		firstURL(groupsPath): {status: http.StatusNoContent},
	}))

	pager, err := client.DeletePaged(groupsPath, testAPIVersion, nil)
	require.NoError(t, err)

	items, err := pager.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPager_PutAndPatchPaged(t *testing.T) {
	t.Parallel()

	transport := newScriptedTransport(map[string]scripted{
		firstURL(groupsPath): {status: http.StatusCreated, body: `{"value":[{"name":"A"}]}`},
	})
	client := newTestClient(t, transport)

	put, err := client.PutPaged(groupsPath, testAPIVersion, []byte(`{}`), nil)
	require.NoError(t, err)

	items, err := put.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	patch, err := client.PatchPaged(groupsPath, testAPIVersion, []byte(`{}`), nil)
	require.NoError(t, err)

	_, err = patch.All(context.Background())
	require.ErrorIs(t, err, arm.ErrRequestFailed)

	_, err = client.PatchPaged(groupsPath, testAPIVersion, nil, nil)
	require.ErrorIs(t, err, arm.ErrInvalidArgument)
}

func TestPager_InvalidArguments(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, newScriptedTransport(nil))

	_, err := client.GetPaged("", testAPIVersion, nil)
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	_, err = client.GetPaged(groupsPath, "", nil)
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	_, err = client.PutPaged(groupsPath, testAPIVersion, nil, nil)
	require.ErrorIs(t, err, arm.ErrInvalidArgument)

	_, err = client.GetPaged(groupsPath, testAPIVersion, &arm.PageOptions{MaxPages: -1})
	require.ErrorIs(t, err, arm.ErrInvalidArgument)
}

func TestPager_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before fetch", func(t *testing.T) {
		t.Parallel()

		transport := newScriptedTransport(twoPageScript())
		client := newTestClient(t, transport)

		pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = pager.All(ctx)
		require.ErrorIs(t, err, arm.ErrCancelled)
		require.ErrorIs(t, err, context.Canceled)
		assert.True(t, arm.IsCancelled(err))
		assert.Empty(t, transport.urls())
	})

	t.Run("cancelled during fetch", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		transport := arm.TransportFunc(func(ctx context.Context, req *arm.RequestDescriptor) (*arm.RawResponse, error) {
			close(started)
			<-ctx.Done()

			return nil, ctx.Err()
		})
		client := newTestClient(t, transport)

		pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			<-started
			cancel()
		}()

		_, err = pager.NextPage(ctx)
		require.ErrorIs(t, err, arm.ErrCancelled)
		assert.False(t, errors.Is(err, arm.ErrNoMorePages))
		assert.False(t, pager.More())
	})

	t.Run("deadline is reported as cancelled", func(t *testing.T) {
		t.Parallel()

		transport := arm.TransportFunc(func(ctx context.Context, req *arm.RequestDescriptor) (*arm.RawResponse, error) {
			<-ctx.Done()

			return nil, ctx.Err()
		})
		client := newTestClient(t, transport)

		pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err = pager.All(ctx)
		require.ErrorIs(t, err, arm.ErrCancelled)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("transport error is a failure", func(t *testing.T) {
		t.Parallel()

		transport := arm.TransportFunc(func(ctx context.Context, req *arm.RequestDescriptor) (*arm.RawResponse, error) {
			return nil, errors.New("connection reset")
		})
		client := newTestClient(t, transport)

		pager, err := client.GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		_, err = pager.All(context.Background())
		require.ErrorIs(t, err, arm.ErrRequestFailed)
		assert.False(t, arm.IsCancelled(err))
	})
}

func TestPageStream(t *testing.T) {
	t.Parallel()

	t.Run("yields the same pages as the blocking pager", func(t *testing.T) {
		t.Parallel()

		blocking, err := newTestClient(t, newScriptedTransport(twoPageScript())).GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		var want []*arm.Page

		for page, err := range blocking.Pages(context.Background()) {
			require.NoError(t, err)

			want = append(want, page)
		}

		streaming, err := newTestClient(t, newScriptedTransport(twoPageScript())).GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		stream := streaming.Stream(context.Background())
		defer stream.Close()

		var got []*arm.Page
		for page := range stream.Pages() {
			got = append(got, page)
		}

		require.NoError(t, stream.Err())
		assert.Equal(t, want, got)
	})

	t.Run("reports the terminal error", func(t *testing.T) {
		t.Parallel()

		pager, err := newTestClient(t, newScriptedTransport(map[string]scripted{
			firstURL(groupsPath): {status: http.StatusOK, body: `{"value":[1],"nextlink":"` + page2URL + `"}`},
			page2URL:             {status: http.StatusBadGateway},
		})).GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		stream := pager.Stream(context.Background())

		count := 0
		for range stream.Pages() {
			count++
		}

		assert.Equal(t, 1, count)
		require.ErrorIs(t, stream.Err(), arm.ErrRequestFailed)
	})

	t.Run("close stops the fetch loop", func(t *testing.T) {
		t.Parallel()

		var (
			mu    sync.Mutex
			calls int
		)

		transport := arm.TransportFunc(func(ctx context.Context, req *arm.RequestDescriptor) (*arm.RawResponse, error) {
			mu.Lock()
			calls++
			mu.Unlock()

			return newScriptedTransport(map[string]scripted{
				req.URL: {status: http.StatusOK, body: `{"value":[1],"nextlink":"` + page2URL + `"}`},
			}).Send(ctx, req)
		})

		pager, err := newTestClient(t, transport).GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		stream := pager.Stream(context.Background())

		page := <-stream.Pages()
		require.NotNil(t, page)

		stream.Close()

		_, open := <-stream.Pages()
		assert.False(t, open)
		require.ErrorIs(t, stream.Err(), arm.ErrCancelled)

		mu.Lock()
		defer mu.Unlock()
		assert.LessOrEqual(t, calls, 2)
	})

	t.Run("parent cancellation is not silent", func(t *testing.T) {
		t.Parallel()

		pager, err := newTestClient(t, newScriptedTransport(twoPageScript())).GetPaged(groupsPath, testAPIVersion, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stream := pager.Stream(ctx)
		for range stream.Pages() {
			t.Fatal("no page expected after cancellation")
		}

		require.ErrorIs(t, stream.Err(), arm.ErrCancelled)
		require.ErrorIs(t, stream.Err(), context.Canceled)
	})
}
