package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider bundles the metric reader fleetkube installed as the global
// MeterProvider, so a caller can shut it down cleanly on exit.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *Metrics
}

// Shutdown flushes and stops the underlying metric reader.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.MeterProvider == nil {
		return nil
	}
	return p.MeterProvider.Shutdown(ctx)
}

// NewProvider builds the metrics pipeline described by cfg and installs it
// as the process-wide meter provider. Cfg.MetricsExporter selects the
// reader: "prometheus" registers onto the default Prometheus registerer so
// a caller can serve it with promhttp.Handler(), "stdout" is for local
// debugging, and anything else disables metrics (a valid *Provider is
// still returned, with a nil Metrics, so callers can defer Shutdown
// unconditionally).
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	var reader sdkmetric.Reader
	switch cfg.MetricsExporter {
	case "prometheus":
		exporter, err := otelprometheus.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating prometheus exporter: %w", err)
		}
		reader = exporter
	case "stdout":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating stdout exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricInterval))
	default:
		return &Provider{}, nil
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter(TracerName)

	metrics, err := NewMetrics(meter, cfg.DetailedLabels)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, fmt.Errorf("telemetry: creating instruments: %w", err)
	}

	otel.SetMeterProvider(mp)
	return &Provider{MeterProvider: mp, Metrics: metrics}, nil
}
