package connection

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleKubeconfig = `
apiVersion: v1
kind: Config
current-context: dev
clusters:
- name: dev-cluster
  cluster:
    server: https://dev.example.com:6443
    certificate-authority-data: ` + "ZmFrZS1jYQ==" + `
contexts:
- name: dev
  context:
    cluster: dev-cluster
    user: dev-user
    namespace: team-a
users:
- name: dev-user
  user:
    token: s3cr3t
`

func writeKubeconfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte(sampleKubeconfig), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromFile(t *testing.T) {
	path := writeKubeconfig(t)

	conn, err := FromFile(path, FromFileOptions{})
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}

	if conn.Server != "https://dev.example.com:6443" {
		t.Errorf("Server = %q", conn.Server)
	}
	if conn.DefaultNamespace != "team-a" {
		t.Errorf("DefaultNamespace = %q", conn.DefaultNamespace)
	}
	if conn.Identity.BearerToken != "s3cr3t" {
		t.Errorf("BearerToken = %q", conn.Identity.BearerToken)
	}
	if string(conn.CACertPEM) != "fake-ca" {
		t.Errorf("CACertPEM = %q", conn.CACertPEM)
	}
	if err := conn.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestFromFileUnknownContext(t *testing.T) {
	path := writeKubeconfig(t)
	if _, err := FromFile(path, FromFileOptions{Context: "nope"}); err == nil {
		t.Fatal("expected error for unknown context")
	}
}

func TestValidateRequiresIdentity(t *testing.T) {
	conn := Connection{ClusterName: "x"}
	if err := conn.Validate(); err == nil {
		t.Fatal("expected error for connection with no identity")
	}
	conn.Anonymous = true
	if err := conn.Validate(); err != nil {
		t.Errorf("anonymous connection should validate: %v", err)
	}
}
