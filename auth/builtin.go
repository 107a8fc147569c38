package auth

import (
	"context"
	"os"
	"strings"

	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/kerrors"
)

// clientCertProvider sets the TLS client identity only; it never sets an
// Authorization header.
type clientCertProvider struct{}

func (clientCertProvider) Name() string { return "client-cert" }

func (clientCertProvider) Accepts(conn connection.Connection) bool {
	return len(conn.Identity.ClientCertPEM) > 0
}

func (clientCertProvider) Credential(_ context.Context, conn connection.Connection) (Credential, error) {
	tlsCfg, err := conn.TLSConfig()
	if err != nil {
		return Credential{}, &kerrors.AuthError{Kind: kerrors.AuthTLS, Err: err}
	}
	return Credential{TLS: tlsCfg}, nil
}

// tokenProvider uses a static bearer token carried verbatim in the
// kubeconfig.
type tokenProvider struct{}

func (tokenProvider) Name() string { return "token" }

func (tokenProvider) Accepts(conn connection.Connection) bool {
	return conn.Identity.BearerToken != ""
}

func (tokenProvider) Credential(_ context.Context, conn connection.Connection) (Credential, error) {
	return Credential{Headers: map[string]string{"Authorization": "Bearer " + conn.Identity.BearerToken}}, nil
}

// tokenFileProvider re-reads its file on every request; spec.md §4.1.
type tokenFileProvider struct{}

func (tokenFileProvider) Name() string { return "token-file" }

func (tokenFileProvider) Accepts(conn connection.Connection) bool {
	return conn.Identity.TokenFile != ""
}

func (tokenFileProvider) Credential(_ context.Context, conn connection.Connection) (Credential, error) {
	data, err := os.ReadFile(conn.Identity.TokenFile)
	if err != nil {
		return Credential{}, &kerrors.AuthError{Kind: kerrors.AuthUnconfigured, Err: err}
	}
	token := strings.TrimSpace(string(data))
	return Credential{Headers: map[string]string{"Authorization": "Bearer " + token}}, nil
}

// authProviderPlugin is the extension point for auth-provider plugins
// (gcp, azure, oidc, ...). Shipping concrete cloud-SDK implementations is
// outside this module's scope (spec.md §1's external-collaborator list);
// callers who need one register a custom Provider ahead of the chain via
// NewChain's userProviders. Without one, a connection naming an
// auth-provider is reported as Unconfigured rather than silently ignored.
type authProviderPlugin struct{}

func (authProviderPlugin) Name() string { return "auth-provider" }

func (authProviderPlugin) Accepts(conn connection.Connection) bool {
	return conn.Identity.AuthProviderName != ""
}

func (authProviderPlugin) Credential(_ context.Context, conn connection.Connection) (Credential, error) {
	return Credential{}, &kerrors.AuthError{
		Kind: kerrors.AuthUnconfigured,
		Err:  errUnknownAuthProvider(conn.Identity.AuthProviderName),
	}
}

type unknownAuthProviderError string

func (e unknownAuthProviderError) Error() string {
	return "auth-provider " + string(e) + " has no registered implementation"
}

func errUnknownAuthProvider(name string) error { return unknownAuthProviderError(name) }
