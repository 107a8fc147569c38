package middleware

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/operation"
)

func TestEncodeOperationBodyIdentityOnNonModifyingVerbs(t *testing.T) {
	body := unstructured.Unstructured{Object: map[string]interface{}{"spec": map[string]interface{}{"replicas": int64(3)}}}
	verbs := []operation.Operation{
		operation.NewGet("v1", "pods", "default", "p1"),
		operation.NewList("v1", "pods", "default"),
		operation.NewWatch("v1", "pods", "default"),
		operation.NewDelete("v1", "pods", "default", "p1"),
		operation.NewDeleteCollection("v1", "pods", "default"),
	}
	for _, op := range verbs {
		op.Body = body
		mw := EncodeOperationBody(op, "application/json")
		req, err := mw(Request{})
		if err != nil {
			t.Fatalf("verb %q: %v", op.Verb, err)
		}
		if req.Body != nil {
			t.Errorf("verb %q: expected no body, got %q", op.Verb, req.Body)
		}
	}
}

func TestEncodeOperationBodyEncodesOnModifyingVerbs(t *testing.T) {
	body := unstructured.Unstructured{Object: map[string]interface{}{"kind": "Pod"}}
	op := operation.NewCreate("v1", "pods", "default", body)
	mw := EncodeOperationBody(op, "application/json")

	req, err := mw(Request{})
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Body) == 0 {
		t.Fatal("expected a non-empty encoded body")
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("got Content-Type %q", req.Header.Get("Content-Type"))
	}
}

func TestInitializeSetsAcceptAndAnonymousHeaders(t *testing.T) {
	chain := auth.NewChain()
	conn := connection.Connection{Anonymous: true}
	mw := Initialize(chain, conn)

	req, err := mw(Request{})
	if err != nil {
		t.Fatal(err)
	}
	if req.Header.Get("Accept") != "application/json" {
		t.Errorf("expected Accept header set, got %q", req.Header.Get("Accept"))
	}
	if req.Header.Get("Authorization") != "" {
		t.Errorf("expected no Authorization header for anonymous connection")
	}
}

func TestStackAddSetList(t *testing.T) {
	s := NewStack()
	identity := func(r Request) (Request, error) { return r, nil }
	s.AddRequest(identity)
	s.AddRequest(identity)
	if len(s.ListRequest()) != 2 {
		t.Fatalf("expected 2 middlewares after two adds, got %d", len(s.ListRequest()))
	}

	s.SetRequest([]RequestFunc{identity})
	if len(s.ListRequest()) != 1 {
		t.Fatalf("expected 1 middleware after Set, got %d", len(s.ListRequest()))
	}
}
