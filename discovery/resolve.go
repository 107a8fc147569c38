package discovery

import (
	"strings"

	"github.com/giantswarm/fleetkube/kerrors"
)

// Resolve implements spec.md §4.3: given the cached resource table for one
// groupVersion and a caller identifier (kind, pluralized name, or
// subresource), return at most one descriptor. Rules are tried in order;
// the first match wins.
//
//  1. Exact name equality (matches subresources, which contain "/").
//  2. Exact kind equality, where the descriptor's name has no "/".
//  3. Lowercased kind equality, where the descriptor's name has no "/".
//  4. Lowercased arg equals name.
func Resolve(descriptors []ResourceDescriptor, arg string) (ResourceDescriptor, error) {
	for _, d := range descriptors {
		if d.Name == arg {
			return d, nil
		}
	}
	for _, d := range descriptors {
		if d.Kind == arg && !strings.Contains(d.Name, "/") {
			return d, nil
		}
	}
	lower := strings.ToLower(arg)
	for _, d := range descriptors {
		if strings.ToLower(d.Kind) == lower && !strings.Contains(d.Name, "/") {
			return d, nil
		}
	}
	for _, d := range descriptors {
		if strings.ToLower(d.Name) == lower {
			return d, nil
		}
	}
	return ResourceDescriptor{}, &kerrors.NotFoundError{Kind: kerrors.NotFoundUnknownResource, Subject: arg}
}
