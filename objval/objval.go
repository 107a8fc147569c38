// Package objval adds the metadata.* convenience accessors spec.md §9
// asks for on top of k8s.io/apimachinery's unstructured.Unstructured,
// which already implements the "null | bool | number | string | list |
// map" dynamic value shape the design note wants.
package objval

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Name reads metadata.name.
func Name(obj unstructured.Unstructured) string {
	v, _, _ := unstructured.NestedString(obj.Object, "metadata", "name")
	return v
}

// Namespace reads metadata.namespace.
func Namespace(obj unstructured.Unstructured) string {
	v, _, _ := unstructured.NestedString(obj.Object, "metadata", "namespace")
	return v
}

// Labels reads metadata.labels.
func Labels(obj unstructured.Unstructured) map[string]string {
	v, _, _ := unstructured.NestedStringMap(obj.Object, "metadata", "labels")
	return v
}

// ResourceVersion reads metadata.resourceVersion.
func ResourceVersion(obj unstructured.Unstructured) string {
	v, _, _ := unstructured.NestedString(obj.Object, "metadata", "resourceVersion")
	return v
}

// Continue reads metadata.continue, present on list responses that have
// more pages.
func Continue(list unstructured.Unstructured) string {
	v, _, _ := unstructured.NestedString(list.Object, "metadata", "continue")
	return v
}

// StripContinue returns a copy of a list with metadata.continue removed.
// transport.List removes the token itself when aggregating pages and does
// not call this.
func StripContinue(list unstructured.Unstructured) unstructured.Unstructured {
	out := *list.DeepCopy()
	unstructured.RemoveNestedField(out.Object, "metadata", "continue")
	return out
}

// Find extracts the value at a dot/slash path (as used by the waiter's
// `find` option), returning (value, found).
func Find(obj unstructured.Unstructured, path string) (interface{}, bool) {
	fields := splitPath(path)
	v, found, err := unstructured.NestedFieldNoCopy(obj.Object, fields...)
	if err != nil || !found {
		return nil, false
	}
	return v, true
}

func splitPath(path string) []string {
	var fields []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' || path[i] == '/' {
			if i > start {
				fields = append(fields, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		fields = append(fields, path[start:])
	}
	return fields
}
