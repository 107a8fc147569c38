package telemetry

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName identifies this client in traces/metrics (default: fleetkube).
	ServiceName string

	// Enabled determines whether metrics/tracing are active. Default false
	// for zero overhead; set FLEETKUBE_INSTRUMENTATION_ENABLED=true.
	Enabled bool

	// MetricsExporter selects the metrics exporter: "prometheus" or "stdout";
	// NewProvider disables metrics for any other value.
	MetricsExporter string

	// TracingExporter holds TRACING_EXPORTER ("otlp", "stdout", "none").
	// NewProvider reads neither it nor the OTLP and sampling fields below:
	// spans go to whatever tracer provider the caller installs with
	// otel.SetTracerProvider.
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint, e.g. "http://localhost:4318".
	OTLPEndpoint string

	// OTLPInsecure controls whether OTLP export skips TLS. Never set this in
	// production: trace attributes can include sanitized host/cluster names.
	OTLPInsecure bool

	// TraceSamplingRate is the fraction of requests traced (0.0-1.0).
	TraceSamplingRate float64

	// DetailedLabels controls whether high-cardinality labels (namespace,
	// resource name) are attached to per-request metrics. Leave false for
	// clusters with many namespaces; use traces for that granularity instead.
	DetailedLabels bool

	// PrometheusEndpoint is the path a caller-run HTTP server should expose
	// metrics on (default: "/metrics"). fleetkube does not start its own
	// server; this is informational for the caller wiring one up.
	PrometheusEndpoint string
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	return Config{
		ServiceName:         getEnvOrDefault("OTEL_SERVICE_NAME", "fleetkube"),
		Enabled:             getEnvBoolOrDefault("FLEETKUBE_INSTRUMENTATION_ENABLED", false),
		MetricsExporter:     getEnvOrDefault("METRICS_EXPORTER", "prometheus"),
		TracingExporter:     getEnvOrDefault("TRACING_EXPORTER", "none"),
		OTLPEndpoint:        getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:        getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:   getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:      getEnvBoolOrDefault("FLEETKUBE_DETAILED_LABELS", false),
		PrometheusEndpoint:  getEnvOrDefault("PROMETHEUS_ENDPOINT", "/metrics"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Status values for metric labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// DefaultMetricInterval is the export interval of the periodic reader
	// NewProvider builds for the "stdout" metrics exporter.
	DefaultMetricInterval = 10 * time.Second
)
