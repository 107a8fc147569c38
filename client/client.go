// Package client is the public caller surface from spec.md §6: the one
// place that resolves an operation.Operation against a registered
// cluster's discovery cache, builds its request, and runs it through the
// transport runtime. Everything under registry/, discovery/, pathbuilder/,
// middleware/, pool/, transport/, batch/, and waiter/ is plumbing this
// package wires together; callers only ever import this one.
package client

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/batch"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/internal/telemetry"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pathbuilder"
	"github.com/giantswarm/fleetkube/pool"
	"github.com/giantswarm/fleetkube/registry"
	"github.com/giantswarm/fleetkube/transport"
	"github.com/giantswarm/fleetkube/waiter"
)

// Client is the entry point every caller constructs once per process (or
// per test). It is safe for concurrent use.
type Client struct {
	registry *registry.Registry
}

// New builds a Client with its own Registry. poolOpts is applied to every
// cluster's connection pool at Register time.
func New(poolOpts pool.Options) *Client {
	return &Client{registry: registry.New(poolOpts)}
}

// WithTelemetry attaches a logger and metrics every cluster registered
// from this point on logs and records request/discovery/pool activity
// through. Call before Register. Returns c for chaining onto New.
func (c *Client) WithTelemetry(logger *slog.Logger, metrics *telemetry.Metrics) *Client {
	c.registry.WithTelemetry(logger, metrics)
	return c
}

// Register adds a cluster under name, usable by every subsequent call
// that takes a cluster name. driver supplies discovery for this cluster;
// pass discovery.NewHTTPDriver(authChain) for a real apiserver.
func (c *Client) Register(name string, conn connection.Connection, driver discovery.Driver, userProviders ...auth.Provider) error {
	_, err := c.registry.Register(name, conn, driver, userProviders...)
	return err
}

// Deregister removes a cluster and closes its pool.
func (c *Client) Deregister(name string) {
	c.registry.Deregister(name)
}

// RunDiscovery refreshes a cluster's resource table. Callers normally
// don't need to call this directly: Run/Stream/Watch/Async trigger it
// automatically the first time a cluster is used and whenever it resolves
// a resource identifier the cache doesn't recognize, but an explicit call
// is useful after a CRD is installed mid-process.
func (c *Client) RunDiscovery(ctx context.Context, cluster string) error {
	entry, err := c.registry.Lookup(cluster)
	if err != nil {
		return err
	}
	return entry.Discovery.RunDiscovery(ctx, entry.Driver, entry.Conn)
}

// resolve looks up cluster, resolves op.Resource against its discovery
// cache (running discovery on first use or on a miss), and returns the
// registered entry, runtime, and descriptor needed to build a request.
func (c *Client) resolve(ctx context.Context, op operation.Operation, cluster string) (*registry.Entry, *transport.Runtime, discovery.ResourceDescriptor, error) {
	if err := op.Validate(); err != nil {
		return nil, nil, discovery.ResourceDescriptor{}, err
	}

	entry, err := c.registry.Lookup(cluster)
	if err != nil {
		return nil, nil, discovery.ResourceDescriptor{}, err
	}

	if !entry.Discovery.Populated() {
		if err := entry.Discovery.RunDiscovery(ctx, entry.Driver, entry.Conn); err != nil {
			return nil, nil, discovery.ResourceDescriptor{}, err
		}
	}

	descs := entry.Discovery.Resources(op.GroupVersion)
	desc, err := discovery.Resolve(descs, op.Resource)
	if err != nil {
		// One refresh in case a CRD landed after the cache was built; a
		// second miss after a refresh is a real not-found.
		if rdErr := entry.Discovery.RunDiscovery(ctx, entry.Driver, entry.Conn); rdErr == nil {
			descs = entry.Discovery.Resources(op.GroupVersion)
			desc, err = discovery.Resolve(descs, op.Resource)
		}
	}
	if err != nil {
		return nil, nil, discovery.ResourceDescriptor{}, err
	}

	rt := transport.New(entry.Conn, entry.Pool, entry.Stack)
	rt.Logger = entry.Logger
	rt.Metrics = entry.Metrics
	return entry, rt, desc, nil
}

// Run executes a unary operation (get, create, update, patch, delete,
// deleteCollection) against cluster.
func (c *Client) Run(ctx context.Context, op operation.Operation, cluster string) (unstructured.Unstructured, error) {
	_, rt, desc, err := c.resolve(ctx, op, cluster)
	if err != nil {
		return unstructured.Unstructured{}, err
	}
	built, err := pathbuilder.Build(op, desc)
	if err != nil {
		return unstructured.Unstructured{}, err
	}
	return rt.Do(ctx, op, built)
}

// Stream runs a list operation to completion, aggregating every
// continuation page. When op.Options.Limit is set, only the first page is
// returned, with its continue token left in place.
func (c *Client) Stream(ctx context.Context, op operation.Operation, cluster string) (unstructured.UnstructuredList, error) {
	_, rt, desc, err := c.resolve(ctx, op, cluster)
	if err != nil {
		return unstructured.UnstructuredList{}, err
	}
	return rt.List(ctx, op, desc)
}

// Watch opens a long-lived watch, delivering events to sink until it
// returns an error, the context is cancelled, a fatal server error (410
// Gone, auth failure) occurs, or Deregister is called on cluster, which
// cancels the context this watch runs under.
func (c *Client) Watch(ctx context.Context, op operation.Operation, cluster string, sink transport.Sink) error {
	entry, rt, desc, err := c.resolve(ctx, op, cluster)
	if err != nil {
		return err
	}
	watchCtx, release := entry.WatchContext(ctx)
	defer release()
	return rt.Watch(watchCtx, op, desc, sink)
}

// Connect opens an exec/attach/portforward session.
func (c *Client) Connect(ctx context.Context, op operation.Operation, cluster string) (*transport.Session, error) {
	_, rt, desc, err := c.resolve(ctx, op, cluster)
	if err != nil {
		return nil, err
	}
	return rt.Connect(ctx, op, desc)
}

// Async runs many operations against the same cluster concurrently,
// bounded by concurrency (0 means bounded only by the cluster's pool
// capacity), preserving input order in the results.
func (c *Client) Async(ctx context.Context, ops []operation.Operation, cluster string, concurrency int) []batch.Result[unstructured.Unstructured] {
	return batch.Run(ctx, len(ops), concurrency, func(ctx context.Context, i int) (unstructured.Unstructured, error) {
		return c.Run(ctx, ops[i], cluster)
	})
}

// Wait polls op (normally a get) until the field at opts.Find satisfies
// opts.Eval/opts.Want or the deadline elapses.
func (c *Client) Wait(ctx context.Context, op operation.Operation, cluster string, opts waiter.Options) (unstructured.Unstructured, error) {
	get := func(ctx context.Context) (unstructured.Unstructured, error) {
		return c.Run(ctx, op, cluster)
	}
	return waiter.Wait(ctx, get, opts)
}

// defaultTimeout is applied by callers that want a sane ceiling on a
// single Run without threading a context deadline through by hand.
const defaultTimeout = 30 * time.Second

// WithDefaultTimeout wraps ctx with defaultTimeout unless it already has
// an earlier deadline.
func WithDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}
