// Package telemetry provides the OpenTelemetry tracing spans and
// Prometheus metrics fleetkube emits around discovery, the request
// runtime, and watch reconnects.
//
// Instrumentation is opt-in and zero-cost when disabled: every Metrics
// method is a no-op on a nil receiver, and the Start*Span helpers fall back to the
// global no-op tracer provider until the caller installs a real one via
// otel.SetTracerProvider.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	metrics, err := telemetry.NewMetrics(meter, cfg.DetailedLabels)
//	...
//	ctx, span := telemetry.StartRequestSpan(ctx, "get", "v1", "pods", "default")
//	defer span.End()
package telemetry
