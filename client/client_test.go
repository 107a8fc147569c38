package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pool"
)

func unstructuredOf(obj map[string]interface{}) unstructured.Unstructured {
	return unstructured.Unstructured{Object: obj}
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{pods: map[string]map[string]interface{}{}}
	return httptest.NewServer(api), api
}

// fakeAPI is a minimal stand-in apiserver: discovery for core/v1 pods, and
// get/create on /api/v1/namespaces/{ns}/pods[/{name}].
type fakeAPI struct {
	pods map[string]map[string]interface{}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case req.URL.Path == "/api":
		json.NewEncoder(w).Encode(map[string]interface{}{"kind": "APIVersions", "versions": []string{"v1"}})
	case req.URL.Path == "/apis":
		json.NewEncoder(w).Encode(map[string]interface{}{"kind": "APIGroupList", "groups": []interface{}{}})
	case req.URL.Path == "/api/v1":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"kind": "APIResourceList",
			"resources": []interface{}{
				map[string]interface{}{"name": "pods", "kind": "Pod", "namespaced": true, "verbs": []string{"get", "list", "create"}},
			},
		})
	case req.Method == "POST" && req.URL.Path == "/api/v1/namespaces/default/pods":
		var body map[string]interface{}
		json.NewDecoder(req.Body).Decode(&body)
		name, _ := body["metadata"].(map[string]interface{})["name"].(string)
		f.pods[name] = body
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	case req.Method == "GET" && req.URL.Path == "/api/v1/namespaces/default/pods/web":
		obj, ok := f.pods["web"]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"kind": "Status", "status": "Failure", "message": "not found", "code": 404})
			return
		}
		json.NewEncoder(w).Encode(obj)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestRunCreateThenGet(t *testing.T) {
	srv, _ := newTestServer(t)
	defer srv.Close()

	c := New(pool.Options{})
	conn := connection.Connection{ClusterName: "test", Server: srv.URL, Anonymous: true}
	if err := c.Register("test", conn, discovery.NewHTTPDriver(auth.NewChain())); err != nil {
		t.Fatal(err)
	}

	body := map[string]interface{}{
		"apiVersion": "v1", "kind": "Pod",
		"metadata": map[string]interface{}{"name": "web"},
	}
	createOp := operation.NewCreate("v1", "pods", "default", unstructuredOf(body))

	if _, err := c.Run(context.Background(), createOp, "test"); err != nil {
		t.Fatalf("create: %v", err)
	}

	getOp := operation.NewGet("v1", "pods", "default", "web")
	obj, err := c.Run(context.Background(), getOp, "test")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if obj.GetName() != "web" {
		t.Errorf("got name %q", obj.GetName())
	}
}

func TestRunUnknownCluster(t *testing.T) {
	c := New(pool.Options{})
	_, err := c.Run(context.Background(), operation.NewGet("v1", "pods", "default", "web"), "nope")
	if err == nil {
		t.Fatal("expected an error for an unregistered cluster")
	}
}
