// Package operation defines the declarative Operation value that drives
// the rest of the client: a verb plus a group/version/kind-or-name
// identifier, optional namespace/name, selectors, body, and options.
//
// Operation values are inert. Building one never touches the network;
// nothing is resolved until it is handed to a client.Client's Run/Stream/
// Watch/Async.
package operation

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Verb is the closed set of operations the client supports.
type Verb string

const (
	Get              Verb = "get"
	List             Verb = "list"
	Create           Verb = "create"
	Update           Verb = "update"
	Patch            Verb = "patch"
	Delete           Verb = "delete"
	DeleteCollection Verb = "deleteCollection"
	Watch            Verb = "watch"
	Connect          Verb = "connect"
)

// PatchType selects the Content-Type used for a Patch operation.
type PatchType string

const (
	StrategicMergePatch PatchType = "strategic-merge"
	MergePatch          PatchType = "merge"
	JSONPatch           PatchType = "json"
)

// Options is the closed set of per-operation query/behavior knobs from
// spec.md §3.
type Options struct {
	Limit                int64
	Continue             string
	ResourceVersion      string
	TimeoutSeconds        int64
	AllowWatchBookmarks  bool
	PropagationPolicy    string
	DryRun               []string
	FieldManager         string
	Force                bool
	SendInitialEvents    bool
	Pretty               bool
	PatchType            PatchType
}

// AllNamespaces is the sentinel namespace value meaning "across every
// namespace". The path builder treats the empty string the same way: for
// a namespaced resource neither value adds a namespace segment, and
// Connection.DefaultNamespace is not applied to operations.
const AllNamespaces = "*"

// Operation is the declarative value a caller builds and hands to a
// client. It is immutable once constructed via the verb constructors.
type Operation struct {
	Verb         Verb
	GroupVersion string
	// Resource is the caller's loose identifier for the resource: a kind
	// ("Deployment"), a plural name ("deployments"), or a subresource
	// ("deployments/status"). Resolved against discovery by the resource
	// resolver, never interpreted here.
	Resource string

	Namespace   string
	Name        string
	Subresource string

	Body unstructured.Unstructured

	LabelSelector string
	FieldSelector string

	Options Options
}

// Validate enforces the invariants from spec.md §3. It is called by the
// client before resolution; pure and side-effect free.
func (o Operation) Validate() error {
	switch o.Verb {
	case List, DeleteCollection:
		if o.Name != "" {
			return fmt.Errorf("operation: verb %q forbids a name", o.Verb)
		}
	case Get, Update, Delete, Patch, Connect:
		if o.Name == "" {
			return fmt.Errorf("operation: verb %q requires a name", o.Verb)
		}
	case Create, Watch:
		// no name constraint
	default:
		return fmt.Errorf("operation: unknown verb %q", o.Verb)
	}
	return nil
}

// NewGet builds a get operation.
func NewGet(gv, resource, namespace, name string) Operation {
	return Operation{Verb: Get, GroupVersion: gv, Resource: resource, Namespace: namespace, Name: name}
}

// NewList builds a list operation. Pass operation.AllNamespaces as
// namespace to list across every namespace.
func NewList(gv, resource, namespace string) Operation {
	return Operation{Verb: List, GroupVersion: gv, Resource: resource, Namespace: namespace}
}

// NewCreate builds a create operation.
func NewCreate(gv, resource, namespace string, body unstructured.Unstructured) Operation {
	return Operation{Verb: Create, GroupVersion: gv, Resource: resource, Namespace: namespace, Body: body}
}

// NewUpdate builds an update operation.
func NewUpdate(gv, resource, namespace, name string, body unstructured.Unstructured) Operation {
	return Operation{Verb: Update, GroupVersion: gv, Resource: resource, Namespace: namespace, Name: name, Body: body}
}

// NewPatch builds a patch operation.
func NewPatch(gv, resource, namespace, name string, patchType PatchType, body unstructured.Unstructured) Operation {
	return Operation{
		Verb: Patch, GroupVersion: gv, Resource: resource, Namespace: namespace, Name: name,
		Body: body, Options: Options{PatchType: patchType},
	}
}

// NewDelete builds a delete operation.
func NewDelete(gv, resource, namespace, name string) Operation {
	return Operation{Verb: Delete, GroupVersion: gv, Resource: resource, Namespace: namespace, Name: name}
}

// NewDeleteCollection builds a deleteCollection operation.
func NewDeleteCollection(gv, resource, namespace string) Operation {
	return Operation{Verb: DeleteCollection, GroupVersion: gv, Resource: resource, Namespace: namespace}
}

// NewWatch builds a watch operation.
func NewWatch(gv, resource, namespace string) Operation {
	return Operation{Verb: Watch, GroupVersion: gv, Resource: resource, Namespace: namespace}
}

// NewConnect builds a connect operation (exec/attach/portforward),
// addressed through the subresource.
func NewConnect(gv, resource, namespace, name, subresource string) Operation {
	return Operation{Verb: Connect, GroupVersion: gv, Resource: resource, Namespace: namespace, Name: name, Subresource: subresource}
}
