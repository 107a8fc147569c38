// Package waiter implements wait() from spec.md §4.9: poll an operation
// until a field reaches an expected value (or a predicate over it
// returns true), or a deadline elapses.
package waiter

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/kerrors"
	"github.com/giantswarm/fleetkube/objval"
)

// DefaultInterval is how often the waiter re-runs the operation.
const DefaultInterval = time.Second

// Predicate decides whether the field value found at Options.Find
// satisfies the wait. Eval is used when the caller wants more than an
// equality check (e.g. "replicas >= 3" rather than "replicas == 3").
type Predicate func(value interface{}, found bool) bool

// Options configures one Wait call.
type Options struct {
	// Find is the dot/slash path into the object, per objval.Find.
	Find string
	// Want is compared for equality against the found value when Eval is
	// nil.
	Want interface{}
	// Eval, if set, replaces the equality check against Want.
	Eval Predicate
	// Interval overrides DefaultInterval.
	Interval time.Duration
	// TimeoutSeconds bounds the whole wait; 0 means no timeout beyond
	// ctx's own deadline.
	TimeoutSeconds int64
}

// Getter re-fetches the object being waited on, e.g. a transport.Runtime's
// Do bound to a get operation.
type Getter func(ctx context.Context) (unstructured.Unstructured, error)

// Wait polls get at opts.Interval (default DefaultInterval) until the
// field at opts.Find satisfies opts.Eval (or equals opts.Want when Eval
// is nil), returning the satisfying object. It returns a TimeoutError
// with Kind TimeoutWait if opts.TimeoutSeconds elapses first.
func Wait(ctx context.Context, get Getter, opts Options) (unstructured.Unstructured, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if opts.TimeoutSeconds > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	eval := opts.Eval
	if eval == nil {
		want := opts.Want
		eval = func(value interface{}, found bool) bool {
			return found && value == want
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		obj, err := get(waitCtx)
		if err != nil {
			return unstructured.Unstructured{}, err
		}

		value, found := objval.Find(obj, opts.Find)
		if eval(value, found) {
			return obj, nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if opts.TimeoutSeconds > 0 {
				return unstructured.Unstructured{}, &kerrors.TimeoutError{Kind: kerrors.TimeoutWait}
			}
			return unstructured.Unstructured{}, waitCtx.Err()
		}
	}
}
