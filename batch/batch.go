// Package batch implements runMany/Async from spec.md §4.8: running many
// operations against one cluster concurrently, bounded by the cluster's
// pool capacity (so a batch can never starve the rest of the client's
// traffic), preserving input order in the result slice regardless of
// completion order, and never cancelling a sibling operation just
// because another one in the batch failed.
package batch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/giantswarm/fleetkube/internal/telemetry"
	"github.com/giantswarm/fleetkube/kerrors"
)

// Result is one operation's outcome, indexed to match its position in
// the input slice.
type Result[T any] struct {
	Value T
	Err   error
}

type batchIDKey struct{}

// IDFromContext returns the correlation ID of the enclosing batch.Run
// call, or "" if ctx wasn't derived from one. Runner implementations can
// use it to tag their own logs so a batch's per-operation log lines can
// be grepped back together.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(batchIDKey{}).(string)
	return id
}

// Runner executes a single operation; callers supply it bound to their
// transport.Runtime so this package stays generic over what "run one
// operation" means.
type Runner[T any] func(ctx context.Context, index int) (T, error)

// Run executes n operations (indices 0..n-1) through run, bounded by
// concurrency slots (0 means unbounded beyond whatever the underlying
// pool itself enforces). Results preserve input order. If ctx is
// cancelled, every operation still in flight is cancelled and gets a
// CancelledError in its slot; operations that already completed keep
// their real result.
func Run[T any](ctx context.Context, n int, concurrency int, run Runner[T]) []Result[T] {
	results := make([]Result[T], n)
	if n == 0 {
		return results
	}

	id := uuid.New().String()
	ctx = context.WithValue(ctx, batchIDKey{}, id)
	ctx, span := telemetry.StartBatchSpan(ctx, id, n)
	defer span.End()

	var sem chan struct{}
	if concurrency > 0 {
		sem = make(chan struct{}, concurrency)
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i] = Result[T]{Err: kerrors.ErrCancelled}
					return
				}
			}

			select {
			case <-ctx.Done():
				results[i] = Result[T]{Err: kerrors.ErrCancelled}
				return
			default:
			}

			v, err := run(ctx, i)
			if err != nil && ctx.Err() != nil {
				err = kerrors.ErrCancelled
			}
			results[i] = Result[T]{Value: v, Err: err}
		}()
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			telemetry.SetSpanError(span, r.Err)
			return results
		}
	}
	telemetry.SetSpanSuccess(span)
	return results
}
