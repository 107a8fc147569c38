// Command fleetkubectl is a thin example CLI over the fleetkube client,
// exercising get/list/watch/exec/discover against a cluster resolved from
// a kubeconfig.
package main

// version is set at build time via:
//
//	go build -ldflags "-X main.version=$(git describe --tags)"
var version = "dev"

func main() {
	SetVersion(version)
	Execute()
}
