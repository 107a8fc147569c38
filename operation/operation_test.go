package operation

import (
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{"list forbids name", Operation{Verb: List, Name: "x"}, true},
		{"list ok", NewList("apps/v1", "deployments", "prod"), false},
		{"get requires name", Operation{Verb: Get}, true},
		{"get ok", NewGet("v1", "pods", "default", "p1"), false},
		{"deleteCollection forbids name", Operation{Verb: DeleteCollection, Name: "x"}, true},
		{"delete requires name", Operation{Verb: Delete}, true},
		{"connect requires name", Operation{Verb: Connect}, true},
		{"create no name constraint", NewCreate("v1", "pods", "default", unstructured.Unstructured{}), false},
		{"unknown verb", Operation{Verb: "bogus"}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.op.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}
