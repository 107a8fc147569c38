// Package discovery queries /api and /apis, caches groupVersion -> resource
// tables per cluster, and resolves a caller's loose resource identifier
// against that cache (spec.md §4.2, §4.3).
package discovery

// ResourceDescriptor is one entry of a discovered resource list. A
// subresource is a descriptor whose Name contains a "/", e.g.
// "deployments/status".
type ResourceDescriptor struct {
	Kind       string
	Name       string
	Namespaced bool
	Verbs      []string
	ShortNames []string
}
