package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/middleware"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pool"
)

var podListDesc = discovery.ResourceDescriptor{
	Kind: "Pod", Name: "pods", Namespaced: true,
	Verbs: []string{"get", "list", "watch"},
}

func newTestRuntime(t *testing.T, handler http.Handler) (*Runtime, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	conn := connection.Connection{Server: srv.URL, Anonymous: true}
	p := pool.New(pool.Options{})
	stack := middleware.NewDefaultStack(auth.NewChain(), conn)
	rt := New(conn, p, stack)
	return rt, func() { srv.Close(); p.Close() }
}

func TestListFollowsContinueAndAggregates(t *testing.T) {
	pages := [][]string{{"pod-1", "pod-2"}, {"pod-3"}, {"pod-4", "pod-5"}}

	rt, cleanup := newTestRuntime(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		pageIdx := 0
		if c := req.URL.Query().Get("continue"); c != "" {
			n, _ := strconv.Atoi(c)
			pageIdx = n
		}

		items := make([]interface{}, 0, len(pages[pageIdx]))
		for _, name := range pages[pageIdx] {
			items = append(items, map[string]interface{}{
				"metadata": map[string]interface{}{"name": name},
			})
		}

		metadata := map[string]interface{}{"resourceVersion": "100"}
		if pageIdx+1 < len(pages) {
			metadata["continue"] = strconv.Itoa(pageIdx + 1)
		}

		body, _ := json.Marshal(map[string]interface{}{
			"kind":     "PodList",
			"metadata": metadata,
			"items":    items,
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer cleanup()

	op := operation.NewList("v1", "pods", "default")
	out, err := rt.List(context.Background(), op, podListDesc)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Items) != 5 {
		t.Fatalf("expected 5 aggregated items, got %d", len(out.Items))
	}
	for i, name := range []string{"pod-1", "pod-2", "pod-3", "pod-4", "pod-5"} {
		if out.Items[i].GetName() != name {
			t.Errorf("item %d: got %q, want %q", i, out.Items[i].GetName(), name)
		}
	}

	if cont, found, _ := unstructured.NestedString(out.Object, "metadata", "continue"); found {
		t.Errorf("expected aggregated result to have no continue token, got %q", cont)
	}
}

func TestListReturnsSinglePageWhenLimitSet(t *testing.T) {
	pages := [][]string{{"pod-1", "pod-2"}, {"pod-3"}, {"pod-4", "pod-5"}}
	var requests int

	rt, cleanup := newTestRuntime(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requests++
		pageIdx := 0
		if c := req.URL.Query().Get("continue"); c != "" {
			n, _ := strconv.Atoi(c)
			pageIdx = n
		}

		items := make([]interface{}, 0, len(pages[pageIdx]))
		for _, name := range pages[pageIdx] {
			items = append(items, map[string]interface{}{
				"metadata": map[string]interface{}{"name": name},
			})
		}

		metadata := map[string]interface{}{"resourceVersion": "100"}
		if pageIdx+1 < len(pages) {
			metadata["continue"] = strconv.Itoa(pageIdx + 1)
		}

		body, _ := json.Marshal(map[string]interface{}{
			"kind":     "PodList",
			"metadata": metadata,
			"items":    items,
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer cleanup()

	op := operation.NewList("v1", "pods", "default")
	op.Options.Limit = 2
	out, err := rt.List(context.Background(), op, podListDesc)
	if err != nil {
		t.Fatal(err)
	}

	if requests != 1 {
		t.Errorf("expected exactly one request when Limit is set, got %d", requests)
	}
	if len(out.Items) != 2 {
		t.Fatalf("expected the single first page's 2 items, got %d", len(out.Items))
	}

	cont, found, _ := unstructured.NestedString(out.Object, "metadata", "continue")
	if !found || cont != "1" {
		t.Errorf("expected the first page's continue token to survive, got %q (found=%v)", cont, found)
	}
}
