package discovery

import "testing"

func TestResolvePlural(t *testing.T) {
	descs := []ResourceDescriptor{{Kind: "Deployment", Name: "deployments", Namespaced: true}}

	for _, arg := range []string{"deployments", "Deployment", "deployment"} {
		got, err := Resolve(descs, arg)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", arg, err)
		}
		if got.Name != "deployments" {
			t.Errorf("Resolve(%q) = %+v", arg, got)
		}
	}
}

func TestResolveSubresourceDisambiguation(t *testing.T) {
	descs := []ResourceDescriptor{
		{Kind: "Deployment", Name: "deployments", Namespaced: true},
		{Kind: "Deployment", Name: "deployments/status", Namespaced: true},
	}

	got, err := Resolve(descs, "Deployment")
	if err != nil || got.Name != "deployments" {
		t.Fatalf("Resolve(Deployment) = %+v, %v", got, err)
	}

	got, err = Resolve(descs, "deployments/status")
	if err != nil || got.Name != "deployments/status" {
		t.Fatalf("Resolve(deployments/status) = %+v, %v", got, err)
	}
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve(nil, "widgets")
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestResolveUnique(t *testing.T) {
	// The invariant from spec.md §8: for any cache, resolve is unique or
	// absent. Exercise every rule tier with data that could only match
	// one descriptor each.
	descs := []ResourceDescriptor{
		{Kind: "Pod", Name: "pods"},
		{Kind: "Pod", Name: "pods/log"},
		{Kind: "Pod", Name: "pods/exec"},
	}
	for _, arg := range []string{"pods", "pods/log", "pods/exec", "Pod", "pod"} {
		if _, err := Resolve(descs, arg); err != nil {
			t.Errorf("Resolve(%q) unexpected error: %v", arg, err)
		}
	}
}
