// Package auth turns a connection.Connection's identity into request-time
// credentials. Each strategy (client-cert, bearer-token, token-file, exec
// plugin, auth-provider plugin) is a Provider; the chain tries
// user-configured providers first, then the built-ins, in registration
// order, and the first provider that accepts the identity wins.
package auth

import (
	"context"
	"crypto/tls"

	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/kerrors"
)

// Credential is what a Provider produces for one request.
type Credential struct {
	Headers   map[string]string
	TLS       *tls.Config
	// Blocking is true when producing this credential may have blocked on
	// an external process (exec plugin), for callers that want to budget
	// deadlines accordingly.
	Blocking bool
}

// Provider is a pluggable credential strategy. Accepts reports whether
// this provider recognizes the connection's identity at all; Credential
// does the (possibly blocking, possibly cached) work of producing headers
// and TLS options.
type Provider interface {
	Name() string
	Accepts(conn connection.Connection) bool
	Credential(ctx context.Context, conn connection.Connection) (Credential, error)
}

// Chain is an ordered list of providers. User-configured providers are
// prepended ahead of the built-ins; the first provider whose Accepts
// returns true is used and the rest are never consulted.
type Chain struct {
	providers []Provider
}

// NewChain builds the default chain: any user providers, then the five
// built-ins in the order spec.md §4.1 lists them.
func NewChain(userProviders ...Provider) *Chain {
	c := &Chain{}
	c.providers = append(c.providers, userProviders...)
	c.providers = append(c.providers,
		&clientCertProvider{},
		&tokenProvider{},
		&tokenFileProvider{},
		newExecProvider(),
		&authProviderPlugin{},
	)
	return c
}

// Resolve finds the first accepting provider and produces a credential.
func (c *Chain) Resolve(ctx context.Context, conn connection.Connection) (Credential, error) {
	if conn.Anonymous {
		return Credential{}, nil
	}
	for _, p := range c.providers {
		if p.Accepts(conn) {
			return p.Credential(ctx, conn)
		}
	}
	return Credential{}, &kerrors.AuthError{Kind: kerrors.AuthUnconfigured}
}
