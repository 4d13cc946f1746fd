// Package arm is a generic client for Azure Resource Manager style APIs.
//
// # Overview
//
// Instead of one typed method per resource, ResourceClient exposes uniform
// verbs keyed by a resource path and an api-version and returns raw JSON:
//
//	client, err := arm.NewResourceClient("https://management.azure.com", transport)
//	if err != nil { return err }
//
//	res, err := client.Get(ctx, "/subscriptions/sub/resourceGroups/rg", "2020-06-01")
//	if err != nil { return err }
//	if !res.Found() { /* 404 on GET is not an error */ }
//
// Transports are injected. See pkg/armclient for a fully wired client with
// authentication, retries, logging and telemetry.
//
// # Pagination
//
// List calls return a Pager that follows next links lazily. Item and next
// link property names default to "value" and "nextlink" and can be changed
// through PageOptions:
//
//	pager, err := client.GetPaged("/subscriptions/sub/resourceGroups", "2020-06-01", nil)
//	if err != nil { return err }
//
//	for item, err := range pager.Items(ctx) {
//	  if err != nil { return err }
//	  fmt.Println(item)
//	}
//
// Pager.Stream delivers the same pages on a channel from a background fetch
// loop. Every Page carries the cursor that produced it and the cursor of the
// following page; passing either back as PageOptions.ContinuationToken
// resumes iteration, including across process restarts.
//
// # Errors
//
// Every error wraps one of ErrInvalidArgument, ErrMalformedResponse,
// ErrRequestFailed or ErrCancelled. A cancelled context always surfaces as
// ErrCancelled and never as a silently shortened collection.
//
// # Interceptors
//
// InterceptorChain observes every call before it is sent and after it
// completes. Ready-made interceptors cover logging, rate limiting, metrics and
// circuit breaking; internal/telemetry adds tracing and Prometheus.
package arm
