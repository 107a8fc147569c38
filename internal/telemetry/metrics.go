package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrVerb         = "verb"
	attrGroupVersion = "group_version"
	attrResourceType = "resource_type"
	attrNamespace    = "namespace"
	attrCluster      = "cluster"
	attrStatus       = "status"
	attrStatusCode   = "status_code"
	attrHost         = "host"
	attrReason       = "reason"
)

// Metrics records the Prometheus/OTel metrics fleetkube emits. The zero
// value (or a nil *Metrics) is safe to call methods on; every method
// no-ops when its underlying instrument wasn't initialized, so callers
// that don't want instrumentation can skip NewMetrics entirely.
type Metrics struct {
	requestsTotal         metric.Int64Counter
	requestDuration       metric.Float64Histogram
	discoveryRefreshTotal metric.Int64Counter
	discoveryCacheAge     metric.Float64Gauge
	watchReconnectsTotal  metric.Int64Counter
	watchEventsTotal      metric.Int64Counter
	poolInUse             metric.Int64Gauge
	poolIdle              metric.Int64Gauge
	poolCheckoutWaitTotal metric.Int64Counter
	poolTransportsRetired metric.Int64Counter

	detailedLabels bool
}

// NewMetrics builds every instrument this package records. detailedLabels
// controls whether namespace/resource_type labels (which can be
// high-cardinality in clusters with many namespaces or CRDs) are attached
// to per-request metrics.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	if m.requestsTotal, err = meter.Int64Counter(
		"fleetkube_requests_total",
		metric.WithDescription("Total number of Kubernetes API requests issued"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_requests_total: %w", err)
	}

	if m.requestDuration, err = meter.Float64Histogram(
		"fleetkube_request_duration_seconds",
		metric.WithDescription("Duration of a single Kubernetes API round trip"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_request_duration_seconds: %w", err)
	}

	if m.discoveryRefreshTotal, err = meter.Int64Counter(
		"fleetkube_discovery_refresh_total",
		metric.WithDescription("Total discovery cache refreshes, labeled by result"),
		metric.WithUnit("{refresh}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_discovery_refresh_total: %w", err)
	}

	if m.discoveryCacheAge, err = meter.Float64Gauge(
		"fleetkube_discovery_cache_age_seconds",
		metric.WithDescription("Seconds since a cluster's discovery cache last refreshed successfully"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_discovery_cache_age_seconds: %w", err)
	}

	if m.watchReconnectsTotal, err = meter.Int64Counter(
		"fleetkube_watch_reconnects_total",
		metric.WithDescription("Total watch stream reconnect attempts"),
		metric.WithUnit("{reconnect}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_watch_reconnects_total: %w", err)
	}

	if m.watchEventsTotal, err = meter.Int64Counter(
		"fleetkube_watch_events_total",
		metric.WithDescription("Total watch events delivered to sinks"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_watch_events_total: %w", err)
	}

	if m.poolInUse, err = meter.Int64Gauge(
		"fleetkube_pool_inuse",
		metric.WithDescription("Transports currently checked out of the connection pool"),
		metric.WithUnit("{transport}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_pool_inuse: %w", err)
	}

	if m.poolIdle, err = meter.Int64Gauge(
		"fleetkube_pool_idle",
		metric.WithDescription("Transports sitting idle in the connection pool"),
		metric.WithUnit("{transport}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_pool_idle: %w", err)
	}

	if m.poolCheckoutWaitTotal, err = meter.Int64Counter(
		"fleetkube_pool_checkout_waits_total",
		metric.WithDescription("Total checkouts that had to wait for a transport to free up"),
		metric.WithUnit("{wait}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_pool_checkout_waits_total: %w", err)
	}

	if m.poolTransportsRetired, err = meter.Int64Counter(
		"fleetkube_pool_transports_retired_total",
		metric.WithDescription("Total transports retired from the pool, labeled by reason"),
		metric.WithUnit("{transport}"),
	); err != nil {
		return nil, fmt.Errorf("creating fleetkube_pool_transports_retired_total: %w", err)
	}

	return m, nil
}

// RecordRequest records one Do/List page round trip.
func (m *Metrics) RecordRequest(ctx context.Context, verb, groupVersion, resourceType, namespace string, statusCode int, duration time.Duration) {
	if m == nil || m.requestsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrVerb, verb),
		attribute.String(attrGroupVersion, groupVersion),
		attribute.String(attrStatusCode, strconv.Itoa(statusCode)),
	}
	if m.detailedLabels {
		attrs = append(attrs,
			attribute.String(attrResourceType, resourceType),
			attribute.String(attrNamespace, namespace),
		)
	}

	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDiscoveryRefresh records a discovery.Cache.RunDiscovery outcome.
func (m *Metrics) RecordDiscoveryRefresh(ctx context.Context, cluster, status string) {
	if m == nil || m.discoveryRefreshTotal == nil {
		return
	}
	m.discoveryRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrCluster, cluster),
		attribute.String(attrStatus, status),
	))
}

// SetDiscoveryCacheAge records how stale a cluster's discovery cache is.
func (m *Metrics) SetDiscoveryCacheAge(ctx context.Context, cluster string, age time.Duration) {
	if m == nil || m.discoveryCacheAge == nil {
		return
	}
	m.discoveryCacheAge.Record(ctx, age.Seconds(), metric.WithAttributes(attribute.String(attrCluster, cluster)))
}

// RecordWatchReconnect records one transport.Watch reconnect attempt.
func (m *Metrics) RecordWatchReconnect(ctx context.Context, cluster, resourceType string) {
	if m == nil || m.watchReconnectsTotal == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String(attrCluster, cluster)}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrResourceType, resourceType))
	}
	m.watchReconnectsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordWatchEvent records one event delivered to a watch sink.
func (m *Metrics) RecordWatchEvent(ctx context.Context, cluster, eventType string) {
	if m == nil || m.watchEventsTotal == nil {
		return
	}
	m.watchEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrCluster, cluster),
		attribute.String(attrStatus, eventType),
	))
}

// SetPoolGauges records a pool's current in-use/idle transport counts for
// one (cluster, host) authority. pool.Pool calls it for every authority it
// holds on each tick of its idle-reaper loop.
func (m *Metrics) SetPoolGauges(ctx context.Context, host string, inUse, idle int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrHost, host))
	if m.poolInUse != nil {
		m.poolInUse.Record(ctx, int64(inUse), attrs)
	}
	if m.poolIdle != nil {
		m.poolIdle.Record(ctx, int64(idle), attrs)
	}
}

// RecordPoolCheckoutWait records a checkout that blocked on a waiter
// channel because the pool was at capacity.
func (m *Metrics) RecordPoolCheckoutWait(ctx context.Context, host string) {
	if m == nil || m.poolCheckoutWaitTotal == nil {
		return
	}
	m.poolCheckoutWaitTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrHost, host)))
}

// RecordPoolTransportRetired records a transport leaving the pool.
// reason is one of "broken", "draining", "idle-timeout", or "pool-closed".
func (m *Metrics) RecordPoolTransportRetired(ctx context.Context, host, reason string) {
	if m == nil || m.poolTransportsRetired == nil {
		return
	}
	m.poolTransportsRetired.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrHost, host),
		attribute.String(attrReason, reason),
	))
}
