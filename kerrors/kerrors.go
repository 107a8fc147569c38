// Package kerrors defines the closed taxonomy of errors the client surfaces
// to callers. Every error returned across package boundaries is one of
// these types (or wraps one), so callers can branch with errors.As.
package kerrors

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AuthKind enumerates credential and transport-security failures.
type AuthKind int

const (
	// AuthUnconfigured means no provider in the chain accepted the
	// connection's identity material.
	AuthUnconfigured AuthKind = iota
	// AuthExecFailed means an exec credential plugin exited non-zero.
	AuthExecFailed
	// AuthExpired means a non-refreshable credential expired.
	AuthExpired
	// AuthTLS means client TLS material was invalid.
	AuthTLS
)

func (k AuthKind) String() string {
	switch k {
	case AuthUnconfigured:
		return "Unconfigured"
	case AuthExecFailed:
		return "ExecFailed"
	case AuthExpired:
		return "Expired"
	case AuthTLS:
		return "TLS"
	default:
		return "Unknown"
	}
}

// AuthError is returned by auth providers and the connection layer.
type AuthError struct {
	Kind     AuthKind
	ExitCode int    // set for AuthExecFailed
	Stderr   string // tail of exec plugin stderr, set for AuthExecFailed
	Err      error
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthExecFailed:
		return fmt.Sprintf("auth: exec plugin failed (exit %d): %s", e.ExitCode, e.Stderr)
	default:
		if e.Err != nil {
			return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("auth: %s", e.Kind)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is reports Kind equality so callers can use errors.Is(err,
// kerrors.ErrUnconfigured) without caring about the wrapped Err, ExitCode,
// or Stderr of the error actually returned.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && e.Kind == t.Kind
}

// NotFoundKind enumerates routing problems. These are never retried.
type NotFoundKind int

const (
	NotFoundUnknownCluster NotFoundKind = iota
	NotFoundUnknownResource
	NotFoundUnsupportedVerb
)

func (k NotFoundKind) String() string {
	switch k {
	case NotFoundUnknownCluster:
		return "UnknownCluster"
	case NotFoundUnknownResource:
		return "UnknownResource"
	case NotFoundUnsupportedVerb:
		return "UnsupportedVerb"
	default:
		return "Unknown"
	}
}

// NotFoundError is returned by the registry, resource resolver, and path
// builder.
type NotFoundError struct {
	Kind NotFoundKind
	// Subject is the identifier that could not be resolved (cluster name,
	// kind/resource string, or verb).
	Subject string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.Subject)
}

// Is reports Kind equality so callers can use errors.Is(err,
// kerrors.ErrUnknownCluster) without caring about the specific Subject of
// the error actually returned.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && e.Kind == t.Kind
}

// HTTPError wraps a non-2xx response from the API server. Http.Status(code)
// from spec.md §7.
type HTTPError struct {
	StatusCode int
	// Status holds the parsed Kubernetes Status object when the server
	// returned one (content-type application/json with kind: Status).
	Status *metav1.Status
	Body   []byte
}

func (e *HTTPError) Error() string {
	if e.Status != nil && e.Status.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Status.Message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// InvalidBodyError means the request body could not be encoded.
type InvalidBodyError struct {
	Err error
}

func (e *InvalidBodyError) Error() string { return fmt.Sprintf("invalid body: %v", e.Err) }
func (e *InvalidBodyError) Unwrap() error { return e.Err }

// DecodeError means a response body could not be decoded as JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// TransportKind enumerates pre-response transport failures. Only the watch
// reconnect loop retries these; unary callers see them directly.
type TransportKind int

const (
	TransportTimeout TransportKind = iota
	TransportRefused
	TransportReset
	TransportTLSHandshake
)

func (k TransportKind) String() string {
	switch k {
	case TransportTimeout:
		return "Timeout"
	case TransportRefused:
		return "Refused"
	case TransportReset:
		return "Reset"
	case TransportTLSHandshake:
		return "TLSHandshake"
	default:
		return "Unknown"
	}
}

// TransportError wraps a pre-response network failure.
type TransportError struct {
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Kind, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutKind distinguishes a caller deadline from a waiter deadline.
type TimeoutKind int

const (
	TimeoutDeadline TimeoutKind = iota
	TimeoutWait
	// TimeoutCheckout means a pool's checkout deadline elapsed waiting
	// for a transport to free up.
	TimeoutCheckout
)

func (k TimeoutKind) String() string {
	switch k {
	case TimeoutWait:
		return "Wait"
	case TimeoutCheckout:
		return "Checkout"
	default:
		return "Deadline"
	}
}

// TimeoutError is returned when a caller-set or waiter-set deadline elapses.
type TimeoutError struct {
	Kind TimeoutKind
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("timeout: %s", e.Kind) }

// Is reports Kind equality so callers can use errors.Is(err,
// kerrors.ErrCheckoutTimeout).
func (e *TimeoutError) Is(target error) bool {
	t, ok := target.(*TimeoutError)
	return ok && e.Kind == t.Kind
}

// CancelledError is returned when the caller revokes an operation.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "cancelled" }

// ErrCancelled is a shared instance for errors.Is comparisons.
var ErrCancelled = &CancelledError{}

// Sentinel values for errors.Is checks against the Kind-discriminated error
// types above. Each compares by Kind only (see the Is methods on AuthError,
// NotFoundError, and TimeoutError), so a caller can write
// errors.Is(err, kerrors.ErrUnknownCluster) without unwrapping a
// *NotFoundError and inspecting its Subject by hand.
var (
	ErrUnconfigured    = &AuthError{Kind: AuthUnconfigured}
	ErrExecFailed      = &AuthError{Kind: AuthExecFailed}
	ErrCredExpired     = &AuthError{Kind: AuthExpired}
	ErrUnknownCluster  = &NotFoundError{Kind: NotFoundUnknownCluster}
	ErrUnknownResource = &NotFoundError{Kind: NotFoundUnknownResource}
	ErrUnsupportedVerb = &NotFoundError{Kind: NotFoundUnsupportedVerb}
	ErrCheckoutTimeout = &TimeoutError{Kind: TimeoutCheckout}
)

// DiscoveryPartialError is non-fatal: a single groupVersion failed to
// refresh during runDiscovery while the rest of the cache updated. It is
// attached to telemetry, never returned from resolve/run.
type DiscoveryPartialError struct {
	GroupVersion string
	Err          error
}

func (e *DiscoveryPartialError) Error() string {
	return fmt.Sprintf("discovery: partial refresh of %s: %v", e.GroupVersion, e.Err)
}

func (e *DiscoveryPartialError) Unwrap() error { return e.Err }
