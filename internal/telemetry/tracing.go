package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer name fleetkube registers spans under.
const TracerName = "github.com/giantswarm/fleetkube"

// Span attribute keys.
const (
	SpanAttrCluster      = "fleetkube.cluster"
	SpanAttrVerb         = "fleetkube.verb"
	SpanAttrGroupVersion = "k8s.group_version"
	SpanAttrNamespace    = "k8s.namespace"
	SpanAttrResourceType = "k8s.resource_type"
	SpanAttrResourceName = "k8s.resource_name"
	SpanAttrStatusCode   = "http.status_code"
	SpanAttrCacheHit     = "fleetkube.discovery_cache_hit"
	SpanAttrBatchID      = "fleetkube.batch_id"
	SpanAttrBatchSize    = "fleetkube.batch_size"
)

// StartRequestSpan starts a client span for one Do/List/Watch/Connect
// dispatch against a resolved resource.
func StartRequestSpan(ctx context.Context, verb, groupVersion, resourceType, namespace string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(SpanAttrVerb, verb),
		attribute.String(SpanAttrGroupVersion, groupVersion),
		attribute.String(SpanAttrResourceType, resourceType),
	}
	if namespace != "" {
		attrs = append(attrs, attribute.String(SpanAttrNamespace, namespace))
	}

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "fleetkube."+verb,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartDiscoverySpan starts a span for a discovery.Cache.RunDiscovery call.
func StartDiscoverySpan(ctx context.Context, cluster string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "fleetkube.discovery.run",
		trace.WithAttributes(attribute.String(SpanAttrCluster, cluster)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartWatchSpan starts a span covering one watchOnce attempt (a single
// connect-stream-disconnect cycle, not the whole reconnecting Watch call).
func StartWatchSpan(ctx context.Context, cluster, resourceType string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "fleetkube.watch",
		trace.WithAttributes(
			attribute.String(SpanAttrCluster, cluster),
			attribute.String(SpanAttrResourceType, resourceType),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartBatchSpan starts a span covering one batch.Run call, tagged with
// the batch's correlation ID so its child request spans can be found by
// trace ID even after the batch itself has finished.
func StartBatchSpan(ctx context.Context, batchID string, size int) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "fleetkube.batch.run",
		trace.WithAttributes(
			attribute.String(SpanAttrBatchID, batchID),
			attribute.Int(SpanAttrBatchSize, size),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanStatusCode records the HTTP status code an operation received.
func SetSpanStatusCode(span trace.Span, code int) {
	span.SetAttributes(attribute.Int(SpanAttrStatusCode, code))
}

// SetSpanError records err on span and marks the span's status as Error.
// A nil err is a no-op so callers can unconditionally defer this.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the span's status as Ok.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "" if none.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
