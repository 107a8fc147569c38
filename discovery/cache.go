package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/internal/logging"
	"github.com/giantswarm/fleetkube/internal/telemetry"
	"github.com/giantswarm/fleetkube/kerrors"
)

// snapshot is the immutable table a Cache points to. Readers load it once
// and never observe a torn state, even while a refresh is replacing it.
type snapshot struct {
	versions    []string
	resources   map[string][]ResourceDescriptor
	refreshedAt time.Time
}

// Cache holds one cluster's discovery data. It is populated lazily on
// first use or by an explicit RunDiscovery, and is safe for concurrent
// readers and a concurrent refresh.
type Cache struct {
	current atomic.Pointer[snapshot]

	group singleflight.Group

	// partial collects a DiscoveryPartialError whenever a single
	// groupVersion's refresh fails during RunDiscovery (the stale entry is
	// kept); PartialErrors drains it.
	mu      sync.Mutex
	partial []*kerrors.DiscoveryPartialError

	cluster string
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewCache returns an empty, unpopulated cache.
func NewCache() *Cache {
	c := &Cache{logger: logging.DefaultLogger().Logger()}
	c.current.Store(&snapshot{resources: map[string][]ResourceDescriptor{}})
	return c
}

// WithTelemetry attaches the cluster name this cache refreshes for, plus
// the logger and metrics RunDiscovery logs and records through. logger may
// be nil to keep the existing default; metrics may be nil to leave the
// cache unmetered. Returns c for chaining onto NewCache.
func (c *Cache) WithTelemetry(cluster string, logger *slog.Logger, metrics *telemetry.Metrics) *Cache {
	c.cluster = cluster
	if logger != nil {
		c.logger = logger
	}
	c.metrics = metrics
	return c
}

// Versions returns the groupVersions currently known, in discovery order.
func (c *Cache) Versions() []string {
	return append([]string(nil), c.current.Load().versions...)
}

// Resources returns the cached descriptors for a groupVersion, or nil if
// that gv has never been successfully discovered.
func (c *Cache) Resources(gv string) []ResourceDescriptor {
	s := c.current.Load()
	descs := s.resources[gv]
	return append([]ResourceDescriptor(nil), descs...)
}

// Populated reports whether RunDiscovery has ever completed at least once.
func (c *Cache) Populated() bool {
	return len(c.current.Load().versions) > 0
}

// PartialErrors drains the groupVersion refresh failures recorded by every
// RunDiscovery pass since the previous PartialErrors call.
func (c *Cache) PartialErrors() []*kerrors.DiscoveryPartialError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.partial
	c.partial = nil
	return out
}

// RunDiscovery rebuilds the cache from driver for conn. Concurrent calls
// for the same Cache are coalesced: only one outbound Versions()+Resources()
// pass is in flight at a time, and all callers observe its result.
//
// A single groupVersion's Resources() failing does not fail the whole
// pass: the previous entry for that gv (if any) is retained and the
// failure is recorded as a DiscoveryPartialError, never returned.
func (c *Cache) RunDiscovery(ctx context.Context, driver Driver, conn connection.Connection) error {
	ctx, span := telemetry.StartDiscoverySpan(ctx, c.cluster)
	defer span.End()

	_, err, _ := c.group.Do("discover", func() (interface{}, error) {
		return nil, c.runDiscoveryOnce(ctx, driver, conn)
	})

	telemetry.SetSpanError(span, err)
	if err == nil {
		telemetry.SetSpanSuccess(span)
	}
	return err
}

func (c *Cache) runDiscoveryOnce(ctx context.Context, driver Driver, conn connection.Connection) error {
	c.logger.Debug("discovery refresh starting", logging.Cluster(c.cluster))

	versions, err := driver.Versions(ctx, conn)
	if err != nil {
		c.logger.Error("discovery refresh failed", logging.Cluster(c.cluster), logging.SanitizedErr(err))
		c.metrics.RecordDiscoveryRefresh(ctx, c.cluster, logging.StatusError)
		return fmt.Errorf("discovery: list versions: %w", err)
	}

	prev := c.current.Load()
	next := &snapshot{versions: versions, resources: map[string][]ResourceDescriptor{}}

	var partial []*kerrors.DiscoveryPartialError
	for _, gv := range versions {
		resources, err := driver.Resources(ctx, gv, conn)
		if err != nil {
			if old, ok := prev.resources[gv]; ok {
				next.resources[gv] = old
			}
			partial = append(partial, &kerrors.DiscoveryPartialError{GroupVersion: gv, Err: err})
			c.logger.Warn("discovery partial refresh", logging.Cluster(c.cluster), logging.GroupVersion(gv), logging.SanitizedErr(err))
			continue
		}
		next.resources[gv] = resources
	}

	next.refreshedAt = time.Now()
	c.current.Store(next)

	if len(partial) > 0 {
		c.mu.Lock()
		c.partial = append(c.partial, partial...)
		c.mu.Unlock()
		c.metrics.RecordDiscoveryRefresh(ctx, c.cluster, "partial")
	} else {
		c.metrics.RecordDiscoveryRefresh(ctx, c.cluster, logging.StatusSuccess)
	}
	c.metrics.SetDiscoveryCacheAge(ctx, c.cluster, 0)
	c.logger.Debug("discovery refresh complete", logging.Cluster(c.cluster), slog.Int("versions", len(versions)), slog.Int("partial", len(partial)))
	return nil
}

// CacheAge reports how long it has been since the last successful
// RunDiscovery pass completed, or zero if RunDiscovery has never run.
func (c *Cache) CacheAge() time.Duration {
	refreshedAt := c.current.Load().refreshedAt
	if refreshedAt.IsZero() {
		return 0
	}
	return time.Since(refreshedAt)
}
