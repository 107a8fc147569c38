package discovery

import (
	"context"

	"github.com/giantswarm/fleetkube/connection"
)

// Driver is the capability every discovery backend implements: list the
// groupVersions a cluster serves, and list the resources under one.
type Driver interface {
	Versions(ctx context.Context, conn connection.Connection) ([]string, error)
	Resources(ctx context.Context, gv string, conn connection.Connection) ([]ResourceDescriptor, error)
}
