package main

import (
	"fmt"

	"github.com/giantswarm/fleetkube/auth"
	"github.com/giantswarm/fleetkube/client"
	"github.com/giantswarm/fleetkube/connection"
	"github.com/giantswarm/fleetkube/discovery"
	"github.com/giantswarm/fleetkube/pool"
)

// newClient builds a client.Client registered against the cluster named by
// --cluster-name, resolved from --kubeconfig/--context.
func newClient() (*client.Client, string, error) {
	conn, err := connection.FromFile(globalFlags.Kubeconfig, connection.FromFileOptions{Context: globalFlags.Context})
	if err != nil {
		return nil, "", fmt.Errorf("fleetkubectl: %w", err)
	}

	c := client.New(pool.Options{}).WithTelemetry(nil, activeMetrics)
	driver := discovery.NewHTTPDriver(auth.NewChain())
	if err := c.Register(globalFlags.Server, conn, driver); err != nil {
		return nil, "", fmt.Errorf("fleetkubectl: registering cluster %s: %w", globalFlags.Server, err)
	}
	return c, globalFlags.Server, nil
}
