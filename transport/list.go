package transport

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/operation"
	"github.com/giantswarm/fleetkube/pathbuilder"
)

// List runs a list operation per spec.md §4.7: when the caller sets
// Options.Limit, it returns the single page the server handed back,
// continue token and all, so the caller can page further itself; when
// Limit is unset, it transparently follows continue tokens until the
// server stops returning one, aggregating every page's items into a
// single result and stripping the (now meaningless) continue token from
// the aggregate per spec.md §8. A failure partway through returns
// whatever pages were aggregated so far alongside the error, never
// silently dropped.
func (r *Runtime) List(ctx context.Context, op operation.Operation, desc discovery.ResourceDescriptor) (unstructured.UnstructuredList, error) {
	var out unstructured.UnstructuredList
	singlePage := op.Options.Limit > 0
	page := op
	first := true

	for {
		built, err := pathbuilder.Build(page, desc)
		if err != nil {
			return out, err
		}

		obj, err := r.Do(ctx, page, built)
		if err != nil {
			return out, err
		}

		items, _, _ := unstructured.NestedSlice(obj.Object, "items")
		for _, it := range items {
			m, ok := it.(map[string]interface{})
			if !ok {
				continue
			}
			out.Items = append(out.Items, unstructured.Unstructured{Object: m})
		}

		if first {
			out.Object = map[string]interface{}{}
			for k, v := range obj.Object {
				if k != "items" {
					out.Object[k] = v
				}
			}
			first = false
		}

		if singlePage {
			// This page's metadata.continue was already copied into
			// out.Object above; leave it intact for the caller to page
			// with, rather than stripping it the way the aggregate case
			// does below.
			break
		}

		cont, _, _ := unstructured.NestedString(obj.Object, "metadata", "continue")
		if cont == "" {
			break
		}
		page.Options.Continue = cont
	}

	if !singlePage {
		// The aggregate has no continue token of its own: it already
		// holds every page.
		unstructured.RemoveNestedField(out.Object, "metadata", "continue")
	}
	return out, nil
}
