package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/giantswarm/fleetkube/connection"
)

// FileDriver reads a fixture directory in place of a live API server;
// used by tests. Layout:
//
//	<dir>/versions.json          -> ["v1", "apps/v1", ...]
//	<dir>/resources/<gv>.json    -> [{"kind": "...", "name": "...", ...}]
//
// groupVersion path components containing "/" use the same on-disk
// escaping as the rest of the package: "/" becomes "_".
type FileDriver struct {
	Dir string
}

func (d *FileDriver) Versions(_ context.Context, _ connection.Connection) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(d.Dir, "versions.json"))
	if err != nil {
		return nil, fmt.Errorf("discovery: file driver: %w", err)
	}
	var versions []string
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, fmt.Errorf("discovery: file driver: %w", err)
	}
	return versions, nil
}

func (d *FileDriver) Resources(_ context.Context, gv string, _ connection.Connection) ([]ResourceDescriptor, error) {
	data, err := os.ReadFile(filepath.Join(d.Dir, "resources", escapeGV(gv)+".json"))
	if err != nil {
		return nil, fmt.Errorf("discovery: file driver: %w", err)
	}
	var resources []ResourceDescriptor
	if err := json.Unmarshal(data, &resources); err != nil {
		return nil, fmt.Errorf("discovery: file driver: %w", err)
	}
	return resources, nil
}

func escapeGV(gv string) string {
	out := make([]byte, len(gv))
	for i := 0; i < len(gv); i++ {
		if gv[i] == '/' {
			out[i] = '_'
		} else {
			out[i] = gv[i]
		}
	}
	return string(out)
}
