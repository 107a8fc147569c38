package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/internal/logging"
	"github.com/giantswarm/fleetkube/internal/telemetry"
	"github.com/giantswarm/fleetkube/kerrors"
	"github.com/giantswarm/fleetkube/middleware"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pathbuilder"
)

// Cursor is the watch resume position: the resourceVersion of the last
// event delivered. A zero Cursor means "start from now".
type Cursor struct {
	ResourceVersion string
}

// Event is one decoded watch notification.
type Event struct {
	Type   string // Added, Modified, Deleted, Bookmark, Error
	Object unstructured.Unstructured
}

// Sink receives watch events in delivery order. A non-nil return stops
// the watch permanently (it is not treated as a reconnect-worthy error).
type Sink func(Event) error

// sinkStoppedErr distinguishes a sink-requested stop from a transport
// failure: both unwind watchOnce the same way, but only the latter is
// worth reconnecting for.
type sinkStoppedErr struct{ err error }

func (e *sinkStoppedErr) Error() string { return e.err.Error() }
func (e *sinkStoppedErr) Unwrap() error { return e.err }

// Watch opens a long-lived watch and delivers events to sink, resuming at
// op.Options.ResourceVersion (or Cursor.ResourceVersion once one has been
// observed) across reconnects. Non-fatal transport errors are retried
// with exponential backoff; a 410 Gone or an auth failure is fatal and
// returned to the caller, since resuming from an expired resourceVersion
// can silently skip history rather than replaying it.
func (r *Runtime) Watch(ctx context.Context, op operation.Operation, desc discovery.ResourceDescriptor, sink Sink) error {
	cursor := Cursor{ResourceVersion: op.Options.ResourceVersion}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			r.Metrics.RecordWatchReconnect(ctx, r.Conn.ClusterName, desc.Name)
			r.logger().Info("watch reconnecting", logging.Cluster(r.Conn.ClusterName), logging.ResourceType(desc.Name), slog.Int("attempt", attempt))
		}

		err := r.watchOnce(ctx, op, desc, &cursor, sink)
		if err == nil {
			return nil // server ended the stream cleanly with no sink error
		}
		var stopped *sinkStoppedErr
		if errors.As(err, &stopped) {
			return stopped.err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if isFatalWatchErr(err) {
			r.logger().Error("watch failed fatally", logging.Cluster(r.Conn.ClusterName), logging.ResourceType(desc.Name), logging.SanitizedErr(err))
			return err
		}

		next, bErr := b.NextBackOff()
		if bErr != nil {
			return err
		}
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isFatalWatchErr(err error) bool {
	var httpErr *kerrors.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusGone || httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden
	}
	return false
}

// watchOnce opens one watch connection and streams decoded events to sink
// until the stream ends (returns nil) or an error occurs (returns it).
func (r *Runtime) watchOnce(ctx context.Context, op operation.Operation, desc discovery.ResourceDescriptor, cursor *Cursor, sink Sink) error {
	ctx, span := telemetry.StartWatchSpan(ctx, r.Conn.ClusterName, desc.Name)
	defer span.End()

	page := op
	page.Options.ResourceVersion = cursor.ResourceVersion

	built, err := pathbuilder.Build(page, desc)
	if err != nil {
		telemetry.SetSpanError(span, err)
		return err
	}

	httpResp, checkin, err := r.openStream(ctx, page, built)
	if err != nil {
		telemetry.SetSpanError(span, err)
		return err
	}
	defer checkin()
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(httpResp.Body)
		err := httpError(middleware.Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body})
		telemetry.SetSpanError(span, err)
		return err
	}

	dec := bufio.NewScanner(httpResp.Body)
	dec.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for dec.Scan() {
		var wire struct {
			Type   string                 `json:"type"`
			Object map[string]interface{} `json:"object"`
		}
		if err := json.Unmarshal(dec.Bytes(), &wire); err != nil {
			telemetry.SetSpanError(span, err)
			return &kerrors.DecodeError{Err: err}
		}
		evt := Event{Type: wire.Type, Object: unstructured.Unstructured{Object: wire.Object}}
		if rv := evt.Object.GetResourceVersion(); rv != "" {
			cursor.ResourceVersion = rv
		}
		r.Metrics.RecordWatchEvent(ctx, r.Conn.ClusterName, evt.Type)
		if err := sink(evt); err != nil {
			return &sinkStoppedErr{err: err}
		}
	}
	if err := dec.Err(); err != nil {
		werr := &kerrors.TransportError{Kind: kerrors.TransportReset, Err: err}
		telemetry.SetSpanError(span, werr)
		return werr
	}
	telemetry.SetSpanSuccess(span)
	// Server closed the stream (idle timeout on its side); this is the
	// normal reconnect trigger, not a fatal error.
	return fmt.Errorf("transport: watch stream ended")
}

// openStream builds and sends a watch request, returning the still-open
// *http.Response and a checkin func the caller must invoke exactly once
// after it is done reading the body.
func (r *Runtime) openStream(ctx context.Context, op operation.Operation, built pathbuilder.Built) (*http.Response, func(), error) {
	base, err := url.Parse(r.Conn.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("transport: invalid server URL %q: %w", r.Conn.Server, err)
	}
	target := *base
	target.Path = singleJoiningSlash(base.Path, built.Path)
	target.RawQuery = built.Query.Encode()

	req := middleware.Request{Method: built.Method, URL: target.String(), Header: make(http.Header)}
	req, err = r.Stack.ApplyRequest(req)
	if err != nil {
		return nil, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, nil, err
	}
	httpReq.Header = req.Header

	tr, err := r.Pool.CheckoutTLS(ctx, target.Host, req.TLS)
	if err != nil {
		return nil, nil, err
	}
	client := &http.Client{Transport: tr}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		r.Pool.Checkin(target.Host, tr, true)
		return nil, nil, classifyTransportErr(err)
	}

	checkedIn := false
	checkin := func() {
		if checkedIn {
			return
		}
		checkedIn = true
		r.Pool.Checkin(target.Host, tr, false)
	}
	return httpResp, checkin, nil
}
