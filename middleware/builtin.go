package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/operation"
)

// NewDefaultStack returns the stack every cluster starts with: Initialize
// as its sole request middleware. EncodeOperationBody is not part of the
// stack itself because it needs the operation.Operation being run, which
// the Request/Response middleware signature in spec.md §4.5 does not
// carry; the request runtime applies it directly before handing the
// result to the stack. Callers may Add or Set further middlewares.
func NewDefaultStack(chain *auth.Chain, conn connection.Connection) *Stack {
	s := NewStack()
	s.AddRequest(Initialize(chain, conn))
	return s
}

// Initialize injects the Authorization/credential headers resolved from
// chain for conn and sets Accept to application/json. It also carries
// the credential's TLS material (if any) onto the request: most
// identities authenticate purely via headers and leave req.TLS nil, but
// an exec-plugin identity that returns a client certificate needs it
// threaded into the transport the pool hands out, the same way its
// headers are threaded onto the wire.
func Initialize(chain *auth.Chain, conn connection.Connection) RequestFunc {
	return func(req Request) (Request, error) {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set("Accept", "application/json")

		cred, err := chain.Resolve(context.Background(), conn)
		if err != nil {
			return Request{}, err
		}
		for k, v := range cred.Headers {
			req.Header.Set(k, v)
		}
		req.TLS = cred.TLS
		return req, nil
	}
}

// EncodeOperationBody serializes op's body to JSON for the modifying
// verbs (create, update, patch, connect) and sets Content-Type
// accordingly. For get, list, watch, delete and deleteCollection it is
// the identity: Body stays empty, matching spec.md §8's invariant that
// encoding a body never adds one to a non-modifying verb.
func EncodeOperationBody(op operation.Operation, contentType string) RequestFunc {
	return func(req Request) (Request, error) {
		switch op.Verb {
		case operation.Get, operation.List, operation.Watch, operation.Delete, operation.DeleteCollection:
			req.Body = nil
			return req, nil
		}

		if len(op.Body.Object) == 0 {
			return req, nil
		}

		buf, err := json.Marshal(op.Body.Object)
		if err != nil {
			return Request{}, err
		}
		req.Body = bytes.TrimSpace(buf)
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}
}
