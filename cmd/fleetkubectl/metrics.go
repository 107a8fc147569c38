package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giantswarm/fleetkube/internal/telemetry"
)

// startMetrics wires up the instrumentation pipeline described by cfg and,
// if addr is non-empty and cfg.MetricsExporter is "prometheus", starts a
// background HTTP server exposing it on
// cfg.PrometheusEndpoint. It returns the *telemetry.Metrics every
// subsequently built client.Client should be wired to via WithTelemetry
// (nil when cfg disables instrumentation), and a shutdown func that's
// always safe to defer, even when instrumentation or the metrics server is
// disabled.
func startMetrics(cfg telemetry.Config, addr string) (metrics *telemetry.Metrics, shutdown func(context.Context) error, err error) {
	provider, err := telemetry.NewProvider(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}

	if addr == "" || cfg.MetricsExporter != "prometheus" {
		return provider.Metrics, provider.Shutdown, nil
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.PrometheusEndpoint, promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "metrics server: %v\n", err)
		}
	}()

	return provider.Metrics, func(ctx context.Context) error {
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		return provider.Shutdown(ctx)
	}, nil
}
