package auth

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	clientauthenticationv1 "k8s.io/client-go/pkg/apis/clientauthentication/v1"

	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/kerrors"
)

// execProvider invokes a kubeconfig's exec plugin, parses its JSON
// ExecCredential, and caches the result until its expirationTimestamp.
// Concurrent callers for the same identity are serialized by a per-
// connection mutex so at most one plugin process runs at a time.
type execProvider struct {
	mu    sync.Mutex
	cache map[string]*execCacheEntry
}

type execCacheEntry struct {
	mu         sync.Mutex
	credential Credential
	expiresAt  time.Time
}

func newExecProvider() *execProvider {
	return &execProvider{cache: map[string]*execCacheEntry{}}
}

func (*execProvider) Name() string { return "exec" }

func (*execProvider) Accepts(conn connection.Connection) bool {
	return conn.Identity.Exec != nil
}

func (p *execProvider) Credential(ctx context.Context, conn connection.Connection) (Credential, error) {
	entry := p.entryFor(conn.ClusterName)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.expiresAt.IsZero() && time.Now().Before(entry.expiresAt) {
		return entry.credential, nil
	}

	cred, expiresAt, err := p.run(ctx, conn)
	if err != nil {
		return Credential{}, err
	}
	entry.credential = cred
	entry.expiresAt = expiresAt
	return cred, nil
}

func (p *execProvider) entryFor(cluster string) *execCacheEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.cache[cluster]
	if !ok {
		e = &execCacheEntry{}
		p.cache[cluster] = e
	}
	return e
}

func (p *execProvider) run(ctx context.Context, conn connection.Connection) (Credential, time.Time, error) {
	spec := conn.Identity.Exec

	apiVersion := spec.APIVersion
	if apiVersion == "" {
		apiVersion = "client.authentication.k8s.io/v1"
	}

	req := clientauthenticationv1.ExecCredential{
		TypeMeta: metav1.TypeMeta{Kind: "ExecCredential", APIVersion: apiVersion},
		Spec: clientauthenticationv1.ExecCredentialSpec{
			Interactive: false,
		},
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return Credential{}, time.Time{}, &kerrors.AuthError{Kind: kerrors.AuthExecFailed, Err: err}
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, "KUBERNETES_EXEC_INFO="+string(reqBody))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return Credential{}, time.Time{}, &kerrors.AuthError{
			Kind:     kerrors.AuthExecFailed,
			ExitCode: exitCode,
			Stderr:   tail(stderr.String(), 4096),
			Err:      err,
		}
	}

	var resp clientauthenticationv1.ExecCredential
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Credential{}, time.Time{}, &kerrors.AuthError{Kind: kerrors.AuthExecFailed, Err: fmt.Errorf("decode exec credential: %w", err)}
	}

	cred := Credential{Blocking: true}
	if resp.Status != nil && resp.Status.Token != "" {
		cred.Headers = map[string]string{"Authorization": "Bearer " + resp.Status.Token}
	}
	if resp.Status != nil && len(resp.Status.ClientCertificateData) > 0 {
		tlsCert, err := tls.X509KeyPair([]byte(resp.Status.ClientCertificateData), []byte(resp.Status.ClientKeyData))
		if err != nil {
			return Credential{}, time.Time{}, &kerrors.AuthError{Kind: kerrors.AuthTLS, Err: err}
		}
		tlsCfg, err := conn.TLSConfig()
		if err != nil {
			return Credential{}, time.Time{}, &kerrors.AuthError{Kind: kerrors.AuthTLS, Err: err}
		}
		tlsCfg.Certificates = []tls.Certificate{tlsCert}
		cred.TLS = tlsCfg
	}

	var expiresAt time.Time
	if resp.Status != nil && resp.Status.ExpirationTimestamp != nil {
		expiresAt = resp.Status.ExpirationTimestamp.Time
	} else {
		// No expiry reported: treat as single-use, never cached.
		expiresAt = time.Now()
	}

	return cred, expiresAt, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
