// Package pool implements the per-(cluster, host) bounded transport pool
// from spec.md §4.6. Requests check a *http.Transport out of the pool for
// their destination host, use it, and check it back in; the pool caps how
// many transports exist per host, reaps idle ones, and retires broken ones
// rather than handing them out again.
//
// This mirrors the bookkeeping shape of the teacher's client cache
// (internal/k8s/client_cache.go): a mutex-guarded map plus a background
// ticker loop, generalized from caching one kubeconfig-derived client per
// token to pooling many transports per host.
package pool

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/giantswarm/fleetkube/internal/logging"
	"github.com/giantswarm/fleetkube/internal/telemetry"
	"github.com/giantswarm/fleetkube/kerrors"
)

// Health is a pooled transport's lifecycle state.
type Health int

const (
	// Up means the transport may be checked out again.
	Up Health = iota
	// Draining means in-flight users may finish, but it will not be
	// checked out again and is removed once its count reaches zero.
	Draining
	// Broken means a checkin reported a fatal transport error; it is
	// removed immediately regardless of in-flight count.
	Broken
)

// DefaultPoolSize is the default cap on live transports per host.
const DefaultPoolSize = 10

// DefaultIdleTimeout is how long a transport may sit unused before the
// reaper closes it.
const DefaultIdleTimeout = 90 * time.Second

// DefaultCheckoutTimeout bounds how long Checkout waits for a slot before
// giving up with a TimeoutError.
const DefaultCheckoutTimeout = 30 * time.Second

// pooled is one entry: an authority, its transport, and bookkeeping.
type pooled struct {
	authority string
	transport *http.Transport
	inFlight  int
	idleSince time.Time
	health    Health
}

// Options configures a Pool. Zero values fall back to the package
// defaults.
type Options struct {
	Size            int
	IdleTimeout     time.Duration
	CheckoutTimeout time.Duration
	TLSConfig       *tls.Config

	// Logger receives structured log lines for checkout timeouts and
	// transport retirement. A nil Logger falls back to logging's default.
	Logger *slog.Logger
	// Metrics records fleetkube_pool_* instruments. A nil Metrics leaves
	// the pool unmetered.
	Metrics *telemetry.Metrics
}

// Pool is a bounded set of per-host transports for one cluster.
type Pool struct {
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string][]*pooled
	waiters map[string][]chan struct{}

	stop chan struct{}
	done chan struct{}
}

// New builds a Pool and starts its idle-reaping loop.
func New(opts Options) *Pool {
	if opts.Size <= 0 {
		opts.Size = DefaultPoolSize
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.CheckoutTimeout <= 0 {
		opts.CheckoutTimeout = DefaultCheckoutTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger().Logger()
	}
	p := &Pool{
		opts:    opts,
		logger:  logger,
		hosts:   make(map[string][]*pooled),
		waiters: make(map[string][]chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.reapLoop()
	return p
}

// Checkout returns a transport for authority (host:port) built from the
// pool's base TLSConfig, creating one lazily if the host has spare
// capacity, or blocking (up to opts.CheckoutTimeout or ctx's deadline)
// for one to free up.
func (p *Pool) Checkout(ctx context.Context, authority string) (*http.Transport, error) {
	return p.checkout(ctx, authority, nil)
}

// CheckoutTLS is Checkout, but tlsOverride (a per-credential tls.Config,
// e.g. resolved from an exec plugin's client-certificate response)
// replaces the pool's base TLSConfig for the transport handed back. A
// nil tlsOverride behaves exactly like Checkout. Transports built with
// different client certificates are kept in separate sub-pools, keyed
// by a fingerprint of the certificate, so a credential rotation doesn't
// hand a stale client identity to a new caller; each sub-pool is still
// capped at opts.Size.
func (p *Pool) CheckoutTLS(ctx context.Context, authority string, tlsOverride *tls.Config) (*http.Transport, error) {
	return p.checkout(ctx, authority, tlsOverride)
}

func (p *Pool) checkout(ctx context.Context, authority string, tlsOverride *tls.Config) (*http.Transport, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, p.opts.CheckoutTimeout)
	defer cancel()

	key := poolKey(authority, tlsOverride)

	for {
		p.mu.Lock()
		entries := p.hosts[key]

		for _, e := range entries {
			if e.health == Up && e.inFlight == 0 {
				e.inFlight++
				e.idleSince = time.Time{}
				p.mu.Unlock()
				return e.transport, nil
			}
		}

		if len(entries) < p.opts.Size {
			e := &pooled{
				authority: authority,
				transport: p.newTransport(tlsOverride),
				inFlight:  1,
				health:    Up,
			}
			p.hosts[key] = append(entries, e)
			p.mu.Unlock()
			return e.transport, nil
		}

		ch := make(chan struct{})
		p.waiters[key] = append(p.waiters[key], ch)
		p.mu.Unlock()

		p.opts.Metrics.RecordPoolCheckoutWait(ctx, authority)

		select {
		case <-ch:
			continue
		case <-deadlineCtx.Done():
			p.logger.Warn("pool checkout timed out", logging.Host(authority), logging.Duration(p.opts.CheckoutTimeout))
			return nil, &kerrors.TimeoutError{Kind: kerrors.TimeoutCheckout}
		}
	}
}

// Checkin returns a transport to the pool. broken marks the transport
// unusable so it is retired rather than handed out again. It finds the
// transport by identity rather than by recomputing its pool key, since
// a caller (the request runtime) only has the *http.Transport it was
// handed, not the tlsOverride that selected its sub-pool.
func (p *Pool) Checkin(authority string, transport *http.Transport, broken bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, entries := range p.hosts {
		for i, e := range entries {
			if e.transport != transport {
				continue
			}
			e.inFlight--
			if broken {
				e.health = Broken
			}
			switch {
			case e.health != Up && e.inFlight <= 0:
				// Draining/broken and nothing left using it: retire.
				p.hosts[key] = append(entries[:i:i], entries[i+1:]...)
				reason := "broken"
				if e.health == Draining {
					reason = "draining"
				}
				p.opts.Metrics.RecordPoolTransportRetired(context.Background(), authority, reason)
				p.logger.Debug("pool transport retired", logging.Host(authority), slog.String("reason", reason))
			case e.health == Up && e.inFlight <= 0:
				e.idleSince = time.Now()
			}
			p.wakeLocked(key)
			return
		}
	}
}

// InFlight reports how many transports for authority are currently
// checked out, summed across every TLS sub-pool, for tests and telemetry.
func (p *Pool) InFlight(authority string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, entries := range p.hosts {
		for _, e := range entries {
			if e.authority == authority {
				n += e.inFlight
			}
		}
	}
	return n
}

// Count reports how many transports currently exist for authority,
// in-flight or idle, summed across every TLS sub-pool.
func (p *Pool) Count(authority string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, entries := range p.hosts {
		for _, e := range entries {
			if e.authority == authority {
				n++
			}
		}
	}
	return n
}

// Close stops the reaper and drops every pooled transport.
func (p *Pool) Close() {
	close(p.stop)
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	for host, entries := range p.hosts {
		for _, e := range entries {
			e.transport.CloseIdleConnections()
			p.opts.Metrics.RecordPoolTransportRetired(context.Background(), e.authority, "pool-closed")
		}
		delete(p.hosts, host)
	}
	p.logger.Debug("pool closed")
}

func (p *Pool) wakeLocked(authority string) {
	waiters := p.waiters[authority]
	if len(waiters) == 0 {
		return
	}
	close(waiters[0])
	p.waiters[authority] = waiters[1:]
}

func (p *Pool) newTransport(tlsOverride *tls.Config) *http.Transport {
	tlsCfg := p.opts.TLSConfig
	if tlsOverride != nil {
		tlsCfg = tlsOverride
	}
	t := &http.Transport{
		TLSClientConfig:     tlsCfg,
		MaxIdleConnsPerHost: 1,
	}
	// Kubernetes API servers speak HTTP/2; configuring it explicitly
	// keeps watch and portforward connections multiplexed over one
	// socket per pooled transport instead of silently falling back to
	// HTTP/1.1 when ALPN negotiation is ambiguous.
	_ = http2.ConfigureTransport(t)
	return t
}

// poolKey is the sub-pool a (authority, tlsOverride) pair checks out
// from. A nil override, or one without a client certificate, shares the
// host's default sub-pool; a distinct client certificate gets its own,
// so a credential rotation (a renewed exec-plugin certificate) doesn't
// hand a stale identity to a new caller and instead drains out of the
// idle reaper like any other unused sub-pool.
func poolKey(authority string, tlsOverride *tls.Config) string {
	fp := tlsFingerprint(tlsOverride)
	if fp == "" {
		return authority
	}
	return authority + "#" + fp
}

func tlsFingerprint(cfg *tls.Config) string {
	if cfg == nil || len(cfg.Certificates) == 0 || len(cfg.Certificates[0].Certificate) == 0 {
		return ""
	}
	sum := sha256.Sum256(cfg.Certificates[0].Certificate[0])
	return hex.EncodeToString(sum[:])
}

func (p *Pool) reapLoop() {
	ticker := time.NewTicker(p.opts.IdleTimeout / 3)
	defer ticker.Stop()
	defer close(p.done)
	for {
		select {
		case <-ticker.C:
			p.reapIdle()
			p.sampleGauges()
		case <-p.stop:
			return
		}
	}
}

func (p *Pool) reapIdle() {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for host, entries := range p.hosts {
		kept := entries[:0]
		for _, e := range entries {
			if e.inFlight == 0 && e.health == Up && !e.idleSince.IsZero() && now.Sub(e.idleSince) > p.opts.IdleTimeout {
				e.transport.CloseIdleConnections()
				p.opts.Metrics.RecordPoolTransportRetired(context.Background(), e.authority, "idle-timeout")
				p.logger.Debug("pool transport retired", logging.Host(e.authority), slog.String("reason", "idle-timeout"))
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(p.hosts, host)
		} else {
			p.hosts[host] = kept
		}
	}
}

// sampleGauges records fleetkube_pool_inuse/fleetkube_pool_idle for every
// authority the pool currently holds transports for. Run on the same
// ticker as reapIdle since the pool has no push hook of its own to record
// these on every checkout/checkin.
func (p *Pool) sampleGauges() {
	p.mu.Lock()
	counts := make(map[string][2]int) // authority -> [inUse, idle]
	for _, entries := range p.hosts {
		for _, e := range entries {
			c := counts[e.authority]
			if e.inFlight > 0 {
				c[0]++
			} else {
				c[1]++
			}
			counts[e.authority] = c
		}
	}
	p.mu.Unlock()

	for authority, c := range counts {
		p.opts.Metrics.SetPoolGauges(context.Background(), authority, c[0], c[1])
	}
}

// String joins scheme and host into a "scheme://host" string. The pool
// itself keys transports by the bare authority (host:port), not this form.
func String(scheme, host string) string {
	return fmt.Sprintf("%s://%s", scheme, host)
}
