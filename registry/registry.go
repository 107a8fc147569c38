// Package registry is the process-wide-but-injectable clusterName ->
// {connection, discovery cache, pool, middleware stack} mapping from
// spec.md §4.10. Nothing elsewhere in the client keeps its own map of
// clusters; every other component is handed an Entry looked up here.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/internal/logging"
	"github.com/giantswarm/fleetkube/internal/telemetry"
	"github.com/giantswarm/fleetkube/kerrors"
	"github.com/giantswarm/fleetkube/middleware"
	"github.com/giantswarm/fleetkube/pool"
)

// Entry is everything a registered cluster needs to run operations.
type Entry struct {
	Conn      connection.Connection
	Discovery *discovery.Cache
	Pool      *pool.Pool
	Stack     *middleware.Stack
	Driver    discovery.Driver

	// Logger and Metrics are handed to every transport.Runtime built
	// against this entry (see client.resolve), so request-level logging
	// and metrics share the same destination as the entry's pool and
	// discovery cache.
	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	watchMu  sync.Mutex
	watchNum int
	cancels  map[int]context.CancelFunc
}

// WatchContext derives a cancelable context from parent for one
// transport.Watch call and registers its cancel func so Deregister can tear
// the stream down. The returned release func must be called (typically via
// defer) once the watch loop returns, successfully or not, to drop the
// registration; calling it also cancels ctx, so it is safe to defer release
// alone without separately deferring a cancel.
func (e *Entry) WatchContext(parent context.Context) (ctx context.Context, release context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	e.watchMu.Lock()
	if e.cancels == nil {
		e.cancels = make(map[int]context.CancelFunc)
	}
	id := e.watchNum
	e.watchNum++
	e.cancels[id] = cancel
	e.watchMu.Unlock()

	return ctx, func() {
		e.watchMu.Lock()
		delete(e.cancels, id)
		e.watchMu.Unlock()
		cancel()
	}
}

// cancelWatches cancels every outstanding context handed out by
// WatchContext, tearing down in-flight transport.Watch streams on this
// entry's cluster.
func (e *Entry) cancelWatches() {
	e.watchMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(e.cancels))
	for _, cancel := range e.cancels {
		cancels = append(cancels, cancel)
	}
	e.cancels = make(map[int]context.CancelFunc)
	e.watchMu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Registry is safe for concurrent use. The zero value is not usable;
// construct with New.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	poolOpts pool.Options
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// New builds an empty Registry. poolOpts is applied to every cluster's
// pool at Register time.
func New(poolOpts pool.Options) *Registry {
	return &Registry{entries: make(map[string]*Entry), poolOpts: poolOpts, logger: logging.DefaultLogger().Logger()}
}

// WithTelemetry attaches the logger and metrics every cluster registered
// from this point on logs and records request/discovery/pool activity
// through. logger may be nil to keep the existing default; metrics may be
// nil to leave the registry's clusters unmetered. Call before Register.
func (r *Registry) WithTelemetry(logger *slog.Logger, metrics *telemetry.Metrics) *Registry {
	if logger != nil {
		r.logger = logger
	}
	r.metrics = metrics
	return r
}

// Register adds (or replaces) the cluster, building its pool, discovery
// cache, and default middleware stack. If a cluster with this name was
// already registered, its pool is closed; watches still running against
// the old entry are not cancelled, and their checkins against the closed
// pool are no-ops. Callers own cancelling any operations they still have
// in flight against the old entry.
func (r *Registry) Register(name string, conn connection.Connection, driver discovery.Driver, userProviders ...auth.Provider) (*Entry, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}

	tlsCfg, err := conn.TLSConfig()
	if err != nil {
		return nil, err
	}

	poolOpts := r.poolOpts
	poolOpts.TLSConfig = tlsCfg
	poolOpts.Logger = r.logger
	poolOpts.Metrics = r.metrics

	chain := auth.NewChain(userProviders...)
	entry := &Entry{
		Conn:      conn,
		Discovery: discovery.NewCache().WithTelemetry(name, r.logger, r.metrics),
		Pool:      pool.New(poolOpts),
		Stack:     middleware.NewDefaultStack(chain, conn),
		Driver:    driver,
		Logger:    r.logger,
		Metrics:   r.metrics,
	}

	r.mu.Lock()
	old := r.entries[name]
	r.entries[name] = entry
	r.mu.Unlock()

	if old != nil {
		old.Pool.Close()
	}
	return entry, nil
}

// Lookup returns the registered entry for name, or a NotFoundError with
// Kind NotFoundUnknownCluster.
func (r *Registry) Lookup(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, &kerrors.NotFoundError{Kind: kerrors.NotFoundUnknownCluster, Subject: name}
	}
	return e, nil
}

// Deregister removes a cluster, cancels every outstanding watch stream
// opened against it via Entry.WatchContext, and closes its pool. It is not
// an error to deregister a name that was never registered.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	delete(r.entries, name)
	r.mu.Unlock()

	if ok {
		e.cancelWatches()
		e.Pool.Close()
	}
}

// Names lists every currently registered cluster.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	return out
}
