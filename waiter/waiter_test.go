package waiter

import (
	"context"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/kerrors"
)

func deployment(phase string) unstructured.Unstructured {
	return unstructured.Unstructured{Object: map[string]interface{}{
		"status": map[string]interface{}{"phase": phase},
	}}
}

func TestWaitSucceedsOnEquality(t *testing.T) {
	calls := 0
	get := func(ctx context.Context) (unstructured.Unstructured, error) {
		calls++
		if calls < 3 {
			return deployment("Pending"), nil
		}
		return deployment("Running"), nil
	}

	obj, err := Wait(context.Background(), get, Options{Find: "status.phase", Want: "Running", Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if phase, _ := objValFind(obj); phase != "Running" {
		t.Errorf("got %v", phase)
	}
	if calls != 3 {
		t.Errorf("expected 3 polls, got %d", calls)
	}
}

func objValFind(obj unstructured.Unstructured) (interface{}, bool) {
	v, found, _ := unstructured.NestedString(obj.Object, "status", "phase")
	return v, found
}

func TestWaitSucceedsOnPredicate(t *testing.T) {
	get := func(ctx context.Context) (unstructured.Unstructured, error) {
		return unstructured.Unstructured{Object: map[string]interface{}{
			"status": map[string]interface{}{"readyReplicas": int64(3)},
		}}, nil
	}

	eval := func(value interface{}, found bool) bool {
		n, ok := value.(int64)
		return found && ok && n >= 3
	}

	_, err := Wait(context.Background(), get, Options{Find: "status.readyReplicas", Eval: eval, Interval: time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWaitTimesOut(t *testing.T) {
	get := func(ctx context.Context) (unstructured.Unstructured, error) {
		return deployment("Pending"), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Wait(ctx, get, Options{Find: "status.phase", Want: "Running", Interval: time.Millisecond})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestWaitTimeoutSecondsReportsWaitKind(t *testing.T) {
	get := func(ctx context.Context) (unstructured.Unstructured, error) {
		return deployment("Pending"), nil
	}

	_, err := Wait(context.Background(), get, Options{
		Find: "status.phase", Want: "Running",
		Interval: time.Millisecond, TimeoutSeconds: 1,
	})
	var timeoutErr *kerrors.TimeoutError
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !isTimeoutWait(err, &timeoutErr) {
		t.Errorf("expected TimeoutWait kind, got %v", err)
	}
}

func isTimeoutWait(err error, target **kerrors.TimeoutError) bool {
	te, ok := err.(*kerrors.TimeoutError)
	if !ok {
		return false
	}
	*target = te
	return te.Kind == kerrors.TimeoutWait
}
