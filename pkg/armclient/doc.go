// Package armclient is the entry point for constructing a Resource Manager
// client that implements arm.Client.
//
// It layers configuration, HTTP transport, authentication and observability
// interceptors on top of the generic request engine in package arm. Most
// applications build a client here, then use the returned *arm.ResourceClient
// to read, write and list resources by path.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/armclient/pkg/arm"
//	  "github.com/fivetwenty-io/armclient/pkg/armclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Signed-in Azure CLI user against public cloud.
//	  cli, err := armclient.New(ctx, &arm.Config{Auth: arm.AuthCLI})
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with a token you already have:
//	  cli, err = armclient.NewWithToken(ctx, "https://management.azure.com", "eyJ0eXAi...")
//
//	  // List resource groups, following next links lazily.
//	  pager, err := cli.GetPaged("/subscriptions/<id>/resourcegroups", "2020-06-01", nil)
//	  if err != nil { log.Fatal(err) }
//
//	  for item, err := range pager.Items(ctx) {
//	    if err != nil { log.Fatal(err) }
//	    log.Println(item)
//	  }
//	}
//
// # Transports
//
// Config.Transport selects "retryable" (go-retryablehttp, the default) or
// "azcore" (an Azure SDK pipeline). Both retry throttling and server errors
// and both attach bearer tokens; the azcore transport additionally honors
// Retry-After and emits SDK telemetry headers.
//
// # Observability
//
// A Logger adds request/response logging, TracerProvider records one span per
// HTTP request and MetricsRegisterer exports Prometheus counters and latency
// histograms.
package armclient
