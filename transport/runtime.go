// Package transport is the request runtime from spec.md §4.7: it turns a
// pathbuilder.Built request plus a middleware.Stack into bytes on the
// wire, in three modes — Unary (Do), chunked List (List), and long-lived
// Watch — using a pool.Pool-managed *http.Transport per cluster.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/internal/logging"
	"github.com/giantswarm/fleetkube/internal/telemetry"
	"github.com/giantswarm/fleetkube/kerrors"
	"github.com/giantswarm/fleetkube/middleware"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pathbuilder"
	"github.com/giantswarm/fleetkube/pool"
)

// Runtime executes Built requests for one cluster.
type Runtime struct {
	Conn  connection.Connection
	Pool  *pool.Pool
	Stack *middleware.Stack

	// Logger and Metrics are nil-safe: an unset Runtime (e.g. one built
	// directly by a test) falls back to logging's default logger and
	// records no metrics.
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// New builds a Runtime over an already-constructed pool and middleware
// stack for conn.
func New(conn connection.Connection, p *pool.Pool, stack *middleware.Stack) *Runtime {
	return &Runtime{Conn: conn, Pool: p, Stack: stack}
}

func (r *Runtime) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.DefaultLogger().Logger()
}

// Do executes a unary operation (get, create, update, patch, delete,
// deleteCollection) and returns the decoded response body.
func (r *Runtime) Do(ctx context.Context, op operation.Operation, built pathbuilder.Built) (unstructured.Unstructured, error) {
	ctx, span := telemetry.StartRequestSpan(ctx, string(op.Verb), op.GroupVersion, op.Resource, op.Namespace)
	defer span.End()
	start := time.Now()

	resp, err := r.roundTrip(ctx, op, built)

	statusCode := 0
	if err == nil {
		statusCode = resp.StatusCode
		telemetry.SetSpanStatusCode(span, statusCode)
	}
	r.Metrics.RecordRequest(ctx, string(op.Verb), op.GroupVersion, op.Resource, op.Namespace, statusCode, time.Since(start))
	telemetry.SetSpanError(span, err)

	if err != nil {
		r.logger().Error("request failed", logging.Operation(string(op.Verb)), logging.GroupVersion(op.GroupVersion), logging.ResourceType(op.Resource), logging.SanitizedErr(err))
		return unstructured.Unstructured{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := httpError(resp)
		r.logger().Warn("request returned non-2xx", logging.Operation(string(op.Verb)), logging.StatusCode(resp.StatusCode))
		return unstructured.Unstructured{}, herr
	}
	telemetry.SetSpanSuccess(span)
	if len(resp.Body) == 0 {
		return unstructured.Unstructured{}, nil
	}
	var out unstructured.Unstructured
	if err := json.Unmarshal(resp.Body, &out.Object); err != nil {
		return unstructured.Unstructured{}, &kerrors.DecodeError{Err: err}
	}
	return out, nil
}

// roundTrip builds the wire request for op, sends it through one checked-out
// transport, and returns the decoded middleware.Response. Do, and List
// through Do, send every page through it; Watch opens its stream through
// openStream instead.
func (r *Runtime) roundTrip(ctx context.Context, op operation.Operation, built pathbuilder.Built) (middleware.Response, error) {
	base, err := url.Parse(r.Conn.Server)
	if err != nil {
		return middleware.Response{}, fmt.Errorf("transport: invalid server URL %q: %w", r.Conn.Server, err)
	}
	target := *base
	target.Path = singleJoiningSlash(base.Path, built.Path)
	target.RawQuery = built.Query.Encode()

	contentType := "application/json"
	if op.Verb == operation.Patch {
		contentType = pathbuilder.PatchContentType(op.Options.PatchType)
	}

	req := middleware.Request{Method: built.Method, URL: target.String(), Header: make(http.Header)}
	req, err = middleware.EncodeOperationBody(op, contentType)(req)
	if err != nil {
		return middleware.Response{}, &kerrors.InvalidBodyError{Err: err}
	}
	req, err = r.Stack.ApplyRequest(req)
	if err != nil {
		return middleware.Response{}, err
	}
	if req.Header.Get("User-Agent") == "" && r.Conn.UserAgent != "" {
		req.Header.Set("User-Agent", r.Conn.UserAgent)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader(req.Body))
	if err != nil {
		return middleware.Response{}, err
	}
	httpReq.Header = req.Header

	tr, err := r.Pool.CheckoutTLS(ctx, target.Host, req.TLS)
	if err != nil {
		return middleware.Response{}, err
	}
	client := &http.Client{Transport: tr}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		r.Pool.Checkin(target.Host, tr, true)
		return middleware.Response{}, classifyTransportErr(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	r.Pool.Checkin(target.Host, tr, false)
	if err != nil {
		return middleware.Response{}, &kerrors.DecodeError{Err: err}
	}

	resp := middleware.Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}
	return r.Stack.ApplyResponse(resp)
}

func bodyReader(b []byte) io.Reader {
	if len(b) == 0 {
		return nil
	}
	return bytes.NewReader(b)
}

func singleJoiningSlash(a, b string) string {
	aSlash := len(a) > 0 && a[len(a)-1] == '/'
	bSlash := len(b) > 0 && b[0] == '/'
	switch {
	case aSlash && bSlash:
		return a + b[1:]
	case !aSlash && !bSlash:
		return a + "/" + b
	default:
		return a + b
	}
}

func httpError(resp middleware.Response) error {
	herr := &kerrors.HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	var status metav1.Status
	if json.Unmarshal(resp.Body, &status) == nil && status.Kind == "Status" {
		herr.Status = &status
	}
	return herr
}

func classifyTransportErr(err error) error {
	return &kerrors.TransportError{Kind: kerrors.TransportRefused, Err: err}
}
