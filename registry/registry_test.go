package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/kerrors"
	"github.com/giantswarm/fleetkube/pool"
)

type nopDriver struct{}

func (nopDriver) Versions(context.Context, connection.Connection) ([]string, error) { return nil, nil }
func (nopDriver) Resources(context.Context, string, connection.Connection) ([]discovery.ResourceDescriptor, error) {
	return nil, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New(pool.Options{})
	conn := connection.Connection{ClusterName: "prod", Server: "https://prod.example.com", Anonymous: true}

	entry, err := r.Register("prod", conn, nopDriver{})
	if err != nil {
		t.Fatal(err)
	}
	defer entry.Pool.Close()

	got, err := r.Lookup("prod")
	if err != nil {
		t.Fatal(err)
	}
	if got != entry {
		t.Error("expected Lookup to return the same entry Register built")
	}
}

func TestLookupUnknownCluster(t *testing.T) {
	r := New(pool.Options{})
	_, err := r.Lookup("nope")

	var nf *kerrors.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != kerrors.NotFoundUnknownCluster {
		t.Fatalf("expected NotFoundUnknownCluster, got %v", err)
	}
}

func TestDeregisterClosesPool(t *testing.T) {
	r := New(pool.Options{})
	conn := connection.Connection{ClusterName: "staging", Server: "https://staging.example.com", Anonymous: true}
	if _, err := r.Register("staging", conn, nopDriver{}); err != nil {
		t.Fatal(err)
	}

	r.Deregister("staging")
	if _, err := r.Lookup("staging"); err == nil {
		t.Fatal("expected lookup to fail after deregister")
	}
}

func TestDeregisterCancelsOutstandingWatches(t *testing.T) {
	r := New(pool.Options{})
	conn := connection.Connection{ClusterName: "staging", Server: "https://staging.example.com", Anonymous: true}
	entry, err := r.Register("staging", conn, nopDriver{})
	if err != nil {
		t.Fatal(err)
	}

	watchCtx, release := entry.WatchContext(context.Background())
	defer release()

	r.Deregister("staging")

	select {
	case <-watchCtx.Done():
	default:
		t.Fatal("expected Deregister to cancel the outstanding watch context")
	}
}
