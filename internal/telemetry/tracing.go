package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/armclient/internal/constants"
	"github.com/fivetwenty-io/armclient/pkg/arm"
)

// Span attributes.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPURL        = "http.url"
	AttrHTTPStatusCode = "http.status_code"
	AttrOperation      = "arm.operation"
	AttrOutcome        = "arm.outcome"
)

const spanKey = "otel_span"

// TracingInterceptors returns a pair of interceptors recording one client
// span per request. The span is a child of the caller's span and its context
// is sent to the service as a W3C traceparent header. The request
// interceptor must be added after any interceptor that can veto a send,
// otherwise a vetoed span is never ended.
func TracingInterceptors(tp trace.TracerProvider) (arm.RequestInterceptor, arm.ResponseInterceptor) {
	tracer := tp.Tracer(constants.TracerName)
	propagator := propagation.TraceContext{}

	onRequest := func(ctx context.Context, req *arm.Request) error {
		spanCtx, span := tracer.Start(ctx, req.Operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String(AttrOperation, req.Operation),
				attribute.String(AttrHTTPMethod, req.Method),
				attribute.String(AttrHTTPURL, req.URL),
			),
		)

		if req.Header == nil {
			req.Header = make(map[string][]string)
		}

		propagator.Inject(spanCtx, propagation.HeaderCarrier(req.Header))

		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[spanKey] = span

		return nil
	}

	onResponse := func(ctx context.Context, req *arm.Request, resp *arm.Response) error {
		span, ok := req.Metadata[spanKey].(trace.Span)
		if !ok {
			return nil
		}
		defer span.End()

		if resp.StatusCode != 0 {
			span.SetAttributes(attribute.Int(AttrHTTPStatusCode, resp.StatusCode))
		}

		switch {
		case resp.Error == nil:
			span.SetAttributes(attribute.String(AttrOutcome, "success"))
			span.SetStatus(codes.Ok, "")
		case arm.IsCancelled(resp.Error):
			span.SetAttributes(attribute.String(AttrOutcome, "cancelled"))
			span.RecordError(resp.Error)
			span.SetStatus(codes.Error, "cancelled")
		default:
			span.SetAttributes(attribute.String(AttrOutcome, "failure"))
			span.RecordError(resp.Error)
			span.SetStatus(codes.Error, resp.Error.Error())
		}

		return nil
	}

	return onRequest, onResponse
}
