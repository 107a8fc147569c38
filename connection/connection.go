// Package connection holds the per-cluster Connection value: endpoint,
// TLS material, and identity. A Connection is immutable after
// construction; the auth package turns it into request-time credentials.
package connection

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"sigs.k8s.io/yaml"
)

// Identity is the closed set of ways a Connection may authenticate, per
// spec.md §3. Exactly one is populated unless Anonymous is true.
type Identity struct {
	ClientCertPEM []byte
	ClientKeyPEM  []byte

	BearerToken string

	// TokenFile is re-read on every request; content is trimmed and used
	// as a bearer token.
	TokenFile string

	Exec *ExecConfig

	AuthProviderName   string
	AuthProviderConfig map[string]string
}

// ExecConfig mirrors user.exec from a kubeconfig.
type ExecConfig struct {
	Command    string
	Args       []string
	Env        map[string]string
	APIVersion string
}

// Connection is immutable after construction.
type Connection struct {
	ClusterName string

	// Server is scheme+host+port+path-prefix, e.g. https://10.0.0.1:6443.
	Server string

	CACertPEM []byte

	Identity Identity
	// Anonymous is true when the caller explicitly asked for no identity
	// at all (e.g. talking to an anonymous-auth-enabled test apiserver).
	Anonymous bool

	InsecureSkipTLSVerify bool
	ProxyURL              string
	UserAgent             string
	DefaultNamespace      string
}

// Validate enforces the Connection invariant from spec.md §3: at least
// one identity is set, or it is explicitly anonymous.
func (c Connection) Validate() error {
	if c.Anonymous {
		return nil
	}
	id := c.Identity
	if len(id.ClientCertPEM) > 0 || id.BearerToken != "" || id.TokenFile != "" ||
		id.Exec != nil || id.AuthProviderName != "" {
		return nil
	}
	return fmt.Errorf("connection %q: no identity configured and not anonymous", c.ClusterName)
}

// TLSConfig builds the *tls.Config implied by the connection's CA and
// client-cert material. It does not consult other identity kinds (token,
// exec, auth-provider set only the Authorization header, never the TLS
// client identity).
func (c Connection) TLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: c.InsecureSkipTLSVerify} //nolint:gosec // caller opt-in

	if len(c.CACertPEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(c.CACertPEM) {
			return nil, fmt.Errorf("connection %q: no valid certificates in CA bundle", c.ClusterName)
		}
		cfg.RootCAs = pool
	}

	if len(c.Identity.ClientCertPEM) > 0 {
		cert, err := tls.X509KeyPair(c.Identity.ClientCertPEM, c.Identity.ClientKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("connection %q: client certificate: %w", c.ClusterName, err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// FromFileOptions selects which context/user/cluster to extract from a
// kubeconfig that may contain many.
type FromFileOptions struct {
	Context string
	User    string
	Cluster string
}

// FromFile parses a kubeconfig and builds a Connection for the selected
// context (current-context by default). It only performs the YAML-to-struct
// parse and field extraction spec.md §6 requires for credential
// extraction; it does not merge loading rules or multiple kubeconfig
// files the way clientcmd does.
func FromFile(path string, opts FromFileOptions) (Connection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Connection{}, fmt.Errorf("connection: read kubeconfig %s: %w", path, err)
	}

	var cfg clientcmdapi.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Connection{}, fmt.Errorf("connection: parse kubeconfig %s: %w", path, err)
	}

	contextName := opts.Context
	if contextName == "" {
		contextName = cfg.CurrentContext
	}
	kctx, ok := cfg.Contexts[contextName]
	if !ok {
		return Connection{}, fmt.Errorf("connection: context %q not found in %s", contextName, path)
	}

	clusterName := opts.Cluster
	if clusterName == "" {
		clusterName = kctx.Cluster
	}
	cluster, ok := cfg.Clusters[clusterName]
	if !ok {
		return Connection{}, fmt.Errorf("connection: cluster %q not found in %s", clusterName, path)
	}

	userName := opts.User
	if userName == "" {
		userName = kctx.AuthInfo
	}
	user := cfg.AuthInfos[userName]

	conn := Connection{
		ClusterName:           contextName,
		Server:                cluster.Server,
		InsecureSkipTLSVerify: cluster.InsecureSkipTLSVerify,
		DefaultNamespace:      kctx.Namespace,
	}

	if cluster.CertificateAuthorityData != nil {
		conn.CACertPEM = cluster.CertificateAuthorityData
	} else if cluster.CertificateAuthority != "" {
		data, err := os.ReadFile(resolveRelative(path, cluster.CertificateAuthority))
		if err != nil {
			return Connection{}, fmt.Errorf("connection: read CA file: %w", err)
		}
		conn.CACertPEM = data
	}

	if user != nil {
		if err := fillIdentity(&conn.Identity, path, *user); err != nil {
			return Connection{}, err
		}
	} else {
		conn.Anonymous = true
	}

	return conn, nil
}

func fillIdentity(id *Identity, kubeconfigPath string, user clientcmdapi.AuthInfo) error {
	switch {
	case len(user.ClientCertificateData) > 0 || user.ClientCertificate != "":
		certPEM := user.ClientCertificateData
		keyPEM := user.ClientKeyData
		var err error
		if len(certPEM) == 0 {
			certPEM, err = os.ReadFile(resolveRelative(kubeconfigPath, user.ClientCertificate))
			if err != nil {
				return fmt.Errorf("connection: read client cert: %w", err)
			}
		}
		if len(keyPEM) == 0 && user.ClientKey != "" {
			keyPEM, err = os.ReadFile(resolveRelative(kubeconfigPath, user.ClientKey))
			if err != nil {
				return fmt.Errorf("connection: read client key: %w", err)
			}
		}
		id.ClientCertPEM = certPEM
		id.ClientKeyPEM = keyPEM
	case user.Token != "":
		id.BearerToken = user.Token
	case user.TokenFile != "":
		id.TokenFile = resolveRelative(kubeconfigPath, user.TokenFile)
	case user.Exec != nil:
		env := map[string]string{}
		for _, e := range user.Exec.Env {
			env[e.Name] = e.Value
		}
		id.Exec = &ExecConfig{
			Command:    user.Exec.Command,
			Args:       user.Exec.Args,
			Env:        env,
			APIVersion: user.Exec.APIVersion,
		}
	case user.AuthProvider != nil:
		id.AuthProviderName = user.AuthProvider.Name
		id.AuthProviderConfig = user.AuthProvider.Config
	}
	return nil
}

func resolveRelative(kubeconfigPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(kubeconfigPath), p)
}

// ServiceAccountMount is the well-known in-cluster mount point, overridable
// in tests.
const ServiceAccountMount = "/var/run/secrets/kubernetes.io/serviceaccount"

// FromServiceAccount builds a Connection from the service-account mount a
// Pod running in-cluster is given: token, ca.crt, and the
// KUBERNETES_SERVICE_HOST/PORT env pair for the server address.
func FromServiceAccount(root string) (Connection, error) {
	if root == "" {
		root = ServiceAccountMount
	}

	token, err := os.ReadFile(filepath.Join(root, "token"))
	if err != nil {
		return Connection{}, fmt.Errorf("connection: read service account token: %w", err)
	}
	ca, err := os.ReadFile(filepath.Join(root, "ca.crt"))
	if err != nil {
		return Connection{}, fmt.Errorf("connection: read service account ca.crt: %w", err)
	}
	ns, _ := os.ReadFile(filepath.Join(root, "namespace"))

	host := os.Getenv("KUBERNETES_SERVICE_HOST")
	port := os.Getenv("KUBERNETES_SERVICE_PORT")

	var server string
	if host == "" || port == "" {
		// Not every in-cluster runtime sets the env pair (it is populated
		// by the kube-proxy Service link, not the kubelet), so fall back
		// to the well-known in-cluster DNS name rather than erroring.
		server = "https://kubernetes.default.svc"
	} else {
		server = (&url.URL{Scheme: "https", Host: net.JoinHostPort(host, port)}).String()
	}

	return Connection{
		ClusterName:      "in-cluster",
		Server:           server,
		CACertPEM:        ca,
		Identity:         Identity{BearerToken: strings.TrimSpace(string(token))},
		DefaultNamespace: strings.TrimSpace(string(ns)),
	}, nil
}
