package pathbuilder

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/operation"
)

var deploymentDesc = discovery.ResourceDescriptor{
	Kind: "Deployment", Name: "deployments", Namespaced: true,
	Verbs: []string{"get", "list", "watch", "create", "update", "patch", "delete", "deletecollection"},
}

var podDesc = discovery.ResourceDescriptor{
	Kind: "Pod", Name: "pods", Namespaced: true,
	Verbs: []string{"get", "list", "watch", "create", "update", "patch", "delete", "deletecollection"},
}

func TestBuildList(t *testing.T) {
	b, err := Build(operation.NewList("apps/v1", "deployments", "prod"), deploymentDesc)
	if err != nil {
		t.Fatal(err)
	}
	if b.Method != "GET" || b.Path != "/apis/apps/v1/namespaces/prod/deployments" {
		t.Errorf("got %s %s", b.Method, b.Path)
	}
}

func TestBuildListAllNamespaces(t *testing.T) {
	b, err := Build(operation.NewList("apps/v1", "deployments", operation.AllNamespaces), deploymentDesc)
	if err != nil {
		t.Fatal(err)
	}
	if b.Path != "/apis/apps/v1/deployments" {
		t.Errorf("got %s", b.Path)
	}
}

func TestBuildGetCore(t *testing.T) {
	b, err := Build(operation.NewGet("v1", "pods", "default", "p1"), podDesc)
	if err != nil {
		t.Fatal(err)
	}
	if b.Method != "GET" || b.Path != "/api/v1/namespaces/default/pods/p1" {
		t.Errorf("got %s %s", b.Method, b.Path)
	}
}

func TestBuildDeterministic(t *testing.T) {
	op := operation.NewList("apps/v1", "deployments", "prod")
	b1, _ := Build(op, deploymentDesc)
	b2, _ := Build(op, deploymentDesc)
	if b1.URL() != b2.URL() || b1.Method != b2.Method {
		t.Errorf("Build is not deterministic: %v vs %v", b1, b2)
	}
}

func TestBuildSubresource(t *testing.T) {
	statusDesc := discovery.ResourceDescriptor{Kind: "Deployment", Name: "deployments/status", Namespaced: true, Verbs: []string{"get", "update", "patch"}}
	op := operation.NewUpdate("apps/v1", "deployments/status", "prod", "web", unstructured.Unstructured{})

	b, err := Build(op, statusDesc)
	if err != nil {
		t.Fatal(err)
	}
	if b.Path != "/apis/apps/v1/namespaces/prod/deployments/web/status" {
		t.Errorf("got %s", b.Path)
	}
}

func TestUnsupportedVerb(t *testing.T) {
	readOnly := discovery.ResourceDescriptor{Kind: "Pod", Name: "pods/log", Namespaced: true, Verbs: []string{"get"}}
	_, err := Build(operation.NewDelete("v1", "pods/log", "default", "p1"), readOnly)
	if err == nil {
		t.Fatal("expected unsupported verb error")
	}
}
