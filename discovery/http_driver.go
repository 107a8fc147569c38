package discovery

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/connection"
)

// HTTPDriver implements Driver against a live API server: GET /api and
// GET /apis for versions, GET /api/{v} or GET /apis/{gv} for resources.
type HTTPDriver struct {
	Chain *auth.Chain
	// Timeout bounds each discovery HTTP call. Defaults to 30s, matching
	// spec.md's DiscoveryTimeoutSeconds.
	Timeout time.Duration
}

// NewHTTPDriver returns an HTTPDriver using chain for credentials.
func NewHTTPDriver(chain *auth.Chain) *HTTPDriver {
	return &HTTPDriver{Chain: chain, Timeout: 30 * time.Second}
}

func (d *HTTPDriver) client(conn connection.Connection) (*http.Client, map[string]string, error) {
	cred, err := d.Chain.Resolve(context.Background(), conn)
	if err != nil {
		return nil, nil, err
	}
	tlsCfg := cred.TLS
	if tlsCfg == nil {
		tlsCfg = &tls.Config{InsecureSkipVerify: conn.InsecureSkipTLSVerify} //nolint:gosec
	}
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{TLSClientConfig: tlsCfg},
	}, cred.Headers, nil
}

func (d *HTTPDriver) get(ctx context.Context, conn connection.Connection, path string, out interface{}) error {
	client, headers, err := d.client(conn)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(conn.Server, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("discovery: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discovery: GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Versions concatenates GET /api's .versions[] with GET /apis's
// .groups[].versions[].groupVersion, per spec.md §4.2.
func (d *HTTPDriver) Versions(ctx context.Context, conn connection.Connection) ([]string, error) {
	var core metav1.APIVersions
	if err := d.get(ctx, conn, "/api", &core); err != nil {
		return nil, err
	}

	var groups metav1.APIGroupList
	if err := d.get(ctx, conn, "/apis", &groups); err != nil {
		return nil, err
	}

	versions := append([]string(nil), core.Versions...)
	for _, g := range groups.Groups {
		for _, v := range g.Versions {
			versions = append(versions, v.GroupVersion)
		}
	}
	return versions, nil
}

// Resources issues GET /api/{v} for the core group or GET /apis/{gv}
// otherwise, per spec.md §4.2.
func (d *HTTPDriver) Resources(ctx context.Context, gv string, conn connection.Connection) ([]ResourceDescriptor, error) {
	path := "/apis/" + gv
	if !strings.Contains(gv, "/") {
		path = "/api/" + gv
	}

	var list metav1.APIResourceList
	if err := d.get(ctx, conn, path, &list); err != nil {
		return nil, err
	}

	out := make([]ResourceDescriptor, 0, len(list.APIResources))
	for _, r := range list.APIResources {
		out = append(out, ResourceDescriptor{
			Kind:       r.Kind,
			Name:       r.Name,
			Namespaced: r.Namespaced,
			Verbs:      r.Verbs,
			ShortNames: r.ShortNames,
		})
	}
	return out, nil
}
